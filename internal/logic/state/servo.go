package state

import "github.com/cjeanneret/MechGo/internal/logic/mechanism"

// ServoState commands a positional mechanism to an angle. The command is
// instantaneous, so the state reports done as soon as it exists.
type ServoState struct {
	mechanism mechanism.SinglePositional
	target    float64
}

// NewServoState binds mech (not owned, may be nil) to target degrees.
func NewServoState(mech mechanism.SinglePositional, target float64) *ServoState {
	return &ServoState{mechanism: mech, target: target}
}

func (s *ServoState) Kind() Kind { return KindServo }

// Init does nothing: a servo has no control mode to arm.
func (s *ServoState) Init() {}

func (s *ServoState) Run() {
	if s.mechanism != nil {
		s.mechanism.SetAngle(s.target)
	}
}

func (s *ServoState) AtTarget() bool { return true }

func (s *ServoState) GetTarget() float64 { return s.target }
