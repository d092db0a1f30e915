// Package state holds the per-command objects that drive mechanisms.
//
// A State binds one mechanism to its target(s) for one motion. The
// sequencer calls Init once, Run every control cycle and polls AtTarget to
// decide when to move on. A new target means a new State; an abandoned
// State needs no cleanup.
package state

import (
	"fmt"
	"math"

	"github.com/cjeanneret/MechGo/internal/logic/control"
)

// State is the Init -> Run -> AtTarget contract.
type State interface {
	// Init loads control constants into the mechanism. Calling it again has
	// the same effect as calling it once.
	Init()
	// Run pushes the stored target(s) to the mechanism.
	Run()
	// AtTarget reports completion without side effects.
	AtTarget() bool
	Kind() Kind
}

// Kind is the closed set of state shapes.
type Kind int

const (
	KindSingleMotor Kind = iota
	KindDualMotor
	KindServo
)

func (k Kind) String() string {
	switch k {
	case KindSingleMotor:
		return "single_motor"
	case KindDualMotor:
		return "dual_motor"
	case KindServo:
		return "servo"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// axis is the latched completion rule of one controlled axis.
type axis struct {
	positionBased bool
	speedBased    bool
	tolerance     float64
}

func latch(cd *control.Data) axis {
	if cd == nil {
		return axis{}
	}
	return axis{
		positionBased: cd.Mode().IsPositionBased(),
		speedBased:    cd.Mode().IsSpeedBased(),
		tolerance:     cd.Tolerance(),
	}
}

// reached compares the measured value selected by the latched mode with
// target. Open-loop axes have no completion criterion and always report true.
func (a axis) reached(position, speed, target float64) bool {
	switch {
	case a.positionBased:
		return math.Abs(position-target) <= a.tolerance
	case a.speedBased:
		return math.Abs(speed-target) <= a.tolerance
	default:
		return true
	}
}
