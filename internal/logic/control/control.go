// Package control holds the closed-loop tuning records shared by mechanisms
// and states, and the PIDF used to emulate a controller slot in simulation.
package control

import (
	"fmt"
	"strings"
)

// Type selects how an actuator interprets its setpoint.
type Type int

const (
	PercentOutput Type = iota // open loop, -1.0..1.0
	Position                  // closed loop on position (degrees or inches)
	Velocity                  // closed loop on speed (rotations per second)
	Voltage                   // open loop, volts
	Current                   // closed loop on current (amps)
	Trapezoid                 // position with a trapezoidal profile
)

var typeNames = map[Type]string{
	PercentOutput: "PERCENT_OUTPUT",
	Position:      "POSITION",
	Velocity:      "VELOCITY",
	Voltage:       "VOLTAGE",
	Current:       "CURRENT",
	Trapezoid:     "TRAPEZOID",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType converts a control file mode name (case-insensitive) to a Type.
func ParseType(s string) (Type, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return PercentOutput, fmt.Errorf("unknown control mode %q", s)
}

// IsPositionBased reports whether completion is measured against position.
func (t Type) IsPositionBased() bool {
	return t == Position || t == Trapezoid
}

// IsSpeedBased reports whether completion is measured against speed.
func (t Type) IsSpeedBased() bool {
	return t == Velocity
}

// IsClosedLoop reports whether the mode needs gains loaded into a slot.
func (t Type) IsClosedLoop() bool {
	return t == Position || t == Velocity || t == Current || t == Trapezoid
}

// Gains are the PIDF terms of one controller slot.
type Gains struct {
	P float64
	I float64
	D float64
	F float64
}

// Params groups every ControlData field for construction.
type Params struct {
	Identifier      string
	Mode            Type
	Slot            int
	Gains           Gains
	IZone           float64
	PeakOutput      float64 // 0 means full scale (1.0)
	Tolerance       float64 // completion band for AtTarget
	CruiseVelocity  float64 // Trapezoid only
	MaxAcceleration float64 // Trapezoid only
}

// Data is an immutable closed-loop tuning record. Construct it with New and
// share the pointer; nothing mutates it after construction.
type Data struct {
	p Params
}

// New validates p and returns the record.
func New(p Params) (*Data, error) {
	if p.Slot < 0 || p.Slot > 3 {
		return nil, fmt.Errorf("control %q: slot must be 0-3, got %d", p.Identifier, p.Slot)
	}
	if p.Tolerance < 0 {
		return nil, fmt.Errorf("control %q: tolerance must be >= 0, got %g", p.Identifier, p.Tolerance)
	}
	if p.PeakOutput < 0 || p.PeakOutput > 1 {
		return nil, fmt.Errorf("control %q: peak output must be between 0 and 1, got %g", p.Identifier, p.PeakOutput)
	}
	if p.PeakOutput == 0 {
		p.PeakOutput = 1
	}
	return &Data{p: p}, nil
}

// MustNew is New for literals known to be valid.
func MustNew(p Params) *Data {
	d, err := New(p)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Data) Identifier() string       { return d.p.Identifier }
func (d *Data) Mode() Type               { return d.p.Mode }
func (d *Data) Slot() int                { return d.p.Slot }
func (d *Data) Gains() Gains             { return d.p.Gains }
func (d *Data) P() float64               { return d.p.Gains.P }
func (d *Data) I() float64               { return d.p.Gains.I }
func (d *Data) D() float64               { return d.p.Gains.D }
func (d *Data) F() float64               { return d.p.Gains.F }
func (d *Data) IZone() float64           { return d.p.IZone }
func (d *Data) PeakOutput() float64      { return d.p.PeakOutput }
func (d *Data) Tolerance() float64       { return d.p.Tolerance }
func (d *Data) CruiseVelocity() float64  { return d.p.CruiseVelocity }
func (d *Data) MaxAcceleration() float64 { return d.p.MaxAcceleration }

func (d *Data) String() string {
	return fmt.Sprintf("%s[%s slot=%d p=%g i=%g d=%g f=%g]",
		d.p.Identifier, d.p.Mode, d.p.Slot, d.p.Gains.P, d.p.Gains.I, d.p.Gains.D, d.p.Gains.F)
}

// TargetData pairs a setpoint with the constants used to reach it, so a mode
// switch and a new setpoint reach the mechanism together.
type TargetData struct {
	Target  float64
	Control *Data
}

// Mode returns the control mode of the pair, PercentOutput when Control is nil.
func (t TargetData) Mode() Type {
	if t.Control == nil {
		return PercentOutput
	}
	return t.Control.Mode()
}
