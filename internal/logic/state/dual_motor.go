package state

import (
	"github.com/cjeanneret/MechGo/internal/logic/control"
	"github.com/cjeanneret/MechGo/internal/logic/mechanism"
)

// DualMotorState moves both motors of a dual mechanism to their targets.
type DualMotorState struct {
	mechanism       mechanism.DualActuator
	control         *control.Data
	control2        *control.Data
	primaryTarget   float64
	secondaryTarget float64
	primary         axis
	secondary       axis
}

// NewDualMotorState binds mech (not owned) to the two targets. A nil
// control record drives that motor in percent output.
func NewDualMotorState(mech mechanism.DualActuator, control, control2 *control.Data, primaryTarget, secondaryTarget float64) *DualMotorState {
	return &DualMotorState{
		mechanism:       mech,
		control:         control,
		control2:        control2,
		primaryTarget:   primaryTarget,
		secondaryTarget: secondaryTarget,
	}
}

func (s *DualMotorState) Kind() Kind { return KindDualMotor }

func (s *DualMotorState) Init() {
	s.primary = latch(s.control)
	s.secondary = latch(s.control2)
	if s.mechanism == nil {
		return
	}
	if s.control != nil {
		s.mechanism.SetControlConstants(s.control.Slot(), s.control)
	} else {
		s.mechanism.SetControlMode(control.PercentOutput)
	}
	if s.control2 != nil {
		s.mechanism.SetSecondaryControlConstants(s.control2.Slot(), s.control2)
	} else {
		s.mechanism.SetSecondaryControlMode(control.PercentOutput)
	}
}

func (s *DualMotorState) Run() {
	if s.mechanism != nil {
		s.mechanism.UpdateTargets(s.primaryTarget, s.secondaryTarget)
	}
}

func (s *DualMotorState) AtTarget() bool {
	if s.mechanism == nil {
		return true
	}
	return s.primary.reached(s.mechanism.GetPrimaryPosition(), s.mechanism.GetPrimarySpeed(), s.primaryTarget) &&
		s.secondary.reached(s.mechanism.GetSecondaryPosition(), s.mechanism.GetSecondarySpeed(), s.secondaryTarget)
}

func (s *DualMotorState) GetPrimaryTarget() float64   { return s.primaryTarget }
func (s *DualMotorState) GetSecondaryTarget() float64 { return s.secondaryTarget }

// GetPrimaryRPS returns the measured primary speed, 0.0 without a mechanism.
func (s *DualMotorState) GetPrimaryRPS() float64 {
	if s.mechanism == nil {
		return 0.0
	}
	return s.mechanism.GetPrimarySpeed()
}

// GetSecondaryRPS returns the measured secondary speed, 0.0 without a mechanism.
func (s *DualMotorState) GetSecondaryRPS() float64 {
	if s.mechanism == nil {
		return 0.0
	}
	return s.mechanism.GetSecondarySpeed()
}
