package state

import (
	"github.com/cjeanneret/MechGo/internal/logic/control"
	"github.com/cjeanneret/MechGo/internal/logic/mechanism"
)

// SingleMotorState moves a single-motor mechanism to one target.
type SingleMotorState struct {
	mechanism mechanism.SingleActuator
	control   *control.Data
	target    float64
	axis      axis
}

// NewSingleMotorState binds mech (not owned) to target.
func NewSingleMotorState(mech mechanism.SingleActuator, control *control.Data, target float64) *SingleMotorState {
	return &SingleMotorState{mechanism: mech, control: control, target: target}
}

// NewSingleMotorStateFromTarget builds the state from a target/constants pair.
func NewSingleMotorStateFromTarget(mech mechanism.SingleActuator, td control.TargetData) *SingleMotorState {
	return NewSingleMotorState(mech, td.Control, td.Target)
}

func (s *SingleMotorState) Kind() Kind { return KindSingleMotor }

func (s *SingleMotorState) Init() {
	s.axis = latch(s.control)
	if s.mechanism == nil {
		return
	}
	if s.control != nil {
		s.mechanism.SetControlConstants(s.control.Slot(), s.control)
	} else {
		s.mechanism.SetControlMode(control.PercentOutput)
	}
}

func (s *SingleMotorState) Run() {
	if s.mechanism != nil {
		s.mechanism.UpdateTarget(s.target)
	}
}

func (s *SingleMotorState) AtTarget() bool {
	if s.mechanism == nil {
		return true
	}
	return s.axis.reached(s.mechanism.GetPosition(), s.mechanism.GetSpeed(), s.target)
}

func (s *SingleMotorState) GetTarget() float64 { return s.target }
