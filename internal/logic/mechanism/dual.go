package mechanism

import (
	"github.com/cjeanneret/MechGo/internal/debug"
	"github.com/cjeanneret/MechGo/internal/hw/actuator"
	"github.com/cjeanneret/MechGo/internal/logic/control"
	"github.com/cjeanneret/MechGo/internal/telemetry"
)

// Telemetry keys published by DualIndMotors.
const (
	KeySpeedPrimary      = "Speed - Primary"
	KeySpeedSecondary    = "Speed - Secondary"
	KeyPositionPrimary   = "Position - Primary"
	KeyPositionSecondary = "Position - Secondary"
	KeyTargetPrimary     = "Target - Primary"
	KeyTargetSecondary   = "Target - Secondary"
)

// DualIndMotors is a mechanism with two independently driven motors.
type DualIndMotors struct {
	identity
	arena           *actuator.Arena
	primary         actuator.MotorHandle
	secondary       actuator.MotorHandle
	sink            telemetry.Sink
	primaryTarget   float64
	secondaryTarget float64
	entries         [6]telemetry.Entry
}

// NewDualIndMotors creates the mechanism. An empty handle is allowed: it is
// reported once here and every query on that side then reads 0.0.
func NewDualIndMotors(id Identity, arena *actuator.Arena, primary, secondary actuator.MotorHandle, sink telemetry.Sink) *DualIndMotors {
	if sink == nil {
		sink = telemetry.Discard{}
	}
	m := &DualIndMotors{
		identity:  identity{id: id},
		arena:     arena,
		primary:   primary,
		secondary: secondary,
		sink:      sink,
	}
	if _, ok := arena.Motor(primary); !ok {
		debug.ErrorOnce(id.Table+"/primary", "DualIndMotors %s: failed to create primary control", id.Table)
	}
	if _, ok := arena.Motor(secondary); !ok {
		debug.ErrorOnce(id.Table+"/secondary", "DualIndMotors %s: failed to create secondary control", id.Table)
	}
	m.entries[0].Key = KeySpeedPrimary
	m.entries[1].Key = KeySpeedSecondary
	m.entries[2].Key = KeyPositionPrimary
	m.entries[3].Key = KeyPositionSecondary
	m.entries[4].Key = KeyTargetPrimary
	m.entries[5].Key = KeyTargetSecondary
	return m
}

func (m *DualIndMotors) Kind() Kind { return KindDual }

// GetPrimaryPosition returns degrees (rotating) or inches (translating).
func (m *DualIndMotors) GetPrimaryPosition() float64 {
	if mtr, ok := m.arena.Motor(m.primary); ok {
		return mtr.GetRotations() * degreesPerRotation
	}
	return 0.0
}

// GetSecondaryPosition returns degrees (rotating) or inches (translating).
func (m *DualIndMotors) GetSecondaryPosition() float64 {
	if mtr, ok := m.arena.Motor(m.secondary); ok {
		return mtr.GetRotations() * degreesPerRotation
	}
	return 0.0
}

func (m *DualIndMotors) GetPrimarySpeed() float64 {
	if mtr, ok := m.arena.Motor(m.primary); ok {
		return mtr.GetRPS()
	}
	return 0.0
}

func (m *DualIndMotors) GetSecondarySpeed() float64 {
	if mtr, ok := m.arena.Motor(m.secondary); ok {
		return mtr.GetRPS()
	}
	return 0.0
}

func (m *DualIndMotors) GetPrimaryTarget() float64   { return m.primaryTarget }
func (m *DualIndMotors) GetSecondaryTarget() float64 { return m.secondaryTarget }

// SetControlMode switches the primary motor mode.
func (m *DualIndMotors) SetControlMode(mode control.Type) {
	if mtr, ok := m.arena.Motor(m.primary); ok {
		mtr.SetControlMode(mode)
	}
}

// SetSecondaryControlMode switches the secondary motor mode.
func (m *DualIndMotors) SetSecondaryControlMode(mode control.Type) {
	if mtr, ok := m.arena.Motor(m.secondary); ok {
		mtr.SetControlMode(mode)
	}
}

// SetControlConstants loads cd into slot of the primary motor.
func (m *DualIndMotors) SetControlConstants(slot int, cd *control.Data) {
	if mtr, ok := m.arena.Motor(m.primary); ok {
		mtr.SetControlConstants(slot, cd)
	}
}

// SetSecondaryControlConstants loads cd into slot of the secondary motor.
func (m *DualIndMotors) SetSecondaryControlConstants(slot int, cd *control.Data) {
	if mtr, ok := m.arena.Motor(m.secondary); ok {
		mtr.SetControlConstants(slot, cd)
	}
}

// UpdateTargets stores both targets and runs one command-and-log cycle.
func (m *DualIndMotors) UpdateTargets(primary, secondary float64) {
	m.primaryTarget = primary
	m.secondaryTarget = secondary
	m.Update()
}

// Update pushes the stored targets to the motors, then logs.
func (m *DualIndMotors) Update() {
	if mtr, ok := m.arena.Motor(m.primary); ok {
		if err := mtr.Set(m.primaryTarget); err != nil {
			debug.ErrorOnce(m.id.Table+"/primary/set", "%s: primary %s: %v", m.id.Table, mtr.Name(), err)
		}
	}
	if mtr, ok := m.arena.Motor(m.secondary); ok {
		if err := mtr.Set(m.secondaryTarget); err != nil {
			debug.ErrorOnce(m.id.Table+"/secondary/set", "%s: secondary %s: %v", m.id.Table, mtr.Name(), err)
		}
	}
	m.LogData()
}

// LogData writes the six telemetry values on every call.
func (m *DualIndMotors) LogData() {
	m.entries[0].Value = m.GetPrimarySpeed()
	m.entries[1].Value = m.GetSecondarySpeed()
	m.entries[2].Value = m.GetPrimaryPosition()
	m.entries[3].Value = m.GetSecondaryPosition()
	m.entries[4].Value = m.primaryTarget
	m.entries[5].Value = m.secondaryTarget
	m.sink.Log(m.id.Table, m.entries[:])
}
