package mechanism

import (
	"github.com/cjeanneret/MechGo/internal/debug"
	"github.com/cjeanneret/MechGo/internal/hw/actuator"
	"github.com/cjeanneret/MechGo/internal/logic/control"
	"github.com/cjeanneret/MechGo/internal/telemetry"
)

// Telemetry keys published by SingleIndMotor.
const (
	KeySpeed    = "Speed"
	KeyPosition = "Position"
	KeyTarget   = "Target"
)

// SingleIndMotor is a mechanism driven by one motor.
type SingleIndMotor struct {
	identity
	arena   *actuator.Arena
	motor   actuator.MotorHandle
	sink    telemetry.Sink
	target  float64
	entries [3]telemetry.Entry
}

// NewSingleIndMotor creates the mechanism; an empty handle is reported once.
func NewSingleIndMotor(id Identity, arena *actuator.Arena, motor actuator.MotorHandle, sink telemetry.Sink) *SingleIndMotor {
	if sink == nil {
		sink = telemetry.Discard{}
	}
	if _, ok := arena.Motor(motor); !ok {
		debug.ErrorOnce(id.Table+"/motor", "SingleIndMotor %s: failed to create control", id.Table)
	}
	m := &SingleIndMotor{identity: identity{id: id}, arena: arena, motor: motor, sink: sink}
	m.entries[0].Key = KeySpeed
	m.entries[1].Key = KeyPosition
	m.entries[2].Key = KeyTarget
	return m
}

// NewIntake builds the intake: one motor, tuned by intake.yaml, logged to IntakeNT.
func NewIntake(arena *actuator.Arena, motor actuator.MotorHandle, sink telemetry.Sink) *SingleIndMotor {
	return NewSingleIndMotor(Identity{Type: Intake, ControlFile: "intake.yaml", Table: "IntakeNT"}, arena, motor, sink)
}

func (m *SingleIndMotor) Kind() Kind { return KindSingle }

func (m *SingleIndMotor) GetPosition() float64 {
	if mtr, ok := m.arena.Motor(m.motor); ok {
		return mtr.GetRotations() * degreesPerRotation
	}
	return 0.0
}

func (m *SingleIndMotor) GetSpeed() float64 {
	if mtr, ok := m.arena.Motor(m.motor); ok {
		return mtr.GetRPS()
	}
	return 0.0
}

func (m *SingleIndMotor) GetTarget() float64 { return m.target }

// SetControlMode switches the motor mode without touching its slots.
func (m *SingleIndMotor) SetControlMode(mode control.Type) {
	if mtr, ok := m.arena.Motor(m.motor); ok {
		mtr.SetControlMode(mode)
	}
}

func (m *SingleIndMotor) SetControlConstants(slot int, cd *control.Data) {
	if mtr, ok := m.arena.Motor(m.motor); ok {
		mtr.SetControlConstants(slot, cd)
	}
}

// UpdateTarget stores target and runs one command-and-log cycle.
func (m *SingleIndMotor) UpdateTarget(target float64) {
	m.target = target
	m.Update()
}

func (m *SingleIndMotor) Update() {
	if mtr, ok := m.arena.Motor(m.motor); ok {
		if err := mtr.Set(m.target); err != nil {
			debug.ErrorOnce(m.id.Table+"/set", "%s: %s: %v", m.id.Table, mtr.Name(), err)
		}
	}
	m.LogData()
}

func (m *SingleIndMotor) LogData() {
	m.entries[0].Value = m.GetSpeed()
	m.entries[1].Value = m.GetPosition()
	m.entries[2].Value = m.target
	m.sink.Log(m.id.Table, m.entries[:])
}
