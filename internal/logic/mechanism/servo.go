package mechanism

import (
	"github.com/cjeanneret/MechGo/internal/debug"
	"github.com/cjeanneret/MechGo/internal/hw/actuator"
	"github.com/cjeanneret/MechGo/internal/telemetry"
)

// Telemetry keys published by SingleServo.
const (
	KeyAngle       = "Angle"
	KeyAngleTarget = "Target"
)

// SingleServo is a mechanism with one positional actuator. It has no
// completion tracking: a commanded angle counts as reached.
type SingleServo struct {
	identity
	arena   *actuator.Arena
	servo   actuator.ServoHandle
	sink    telemetry.Sink
	target  float64
	entries [2]telemetry.Entry
}

// NewSingleServo creates the mechanism; an empty handle is reported once.
func NewSingleServo(id Identity, arena *actuator.Arena, servo actuator.ServoHandle, sink telemetry.Sink) *SingleServo {
	if sink == nil {
		sink = telemetry.Discard{}
	}
	if _, ok := arena.Servo(servo); !ok {
		debug.ErrorOnce(id.Table+"/servo", "SingleServo %s: failed to create servo", id.Table)
	}
	m := &SingleServo{identity: identity{id: id}, arena: arena, servo: servo, sink: sink}
	m.entries[0].Key = KeyAngle
	m.entries[1].Key = KeyAngleTarget
	return m
}

func (m *SingleServo) Kind() Kind { return KindServo }

// SetAngle moves the servo to angle degrees and logs.
func (m *SingleServo) SetAngle(angle float64) {
	m.target = angle
	if s, ok := m.arena.Servo(m.servo); ok {
		if err := s.SetAngle(angle); err != nil {
			debug.ErrorOnce(m.id.Table+"/set", "%s: %s: %v", m.id.Table, s.Name(), err)
		}
	}
	m.LogData()
}

// GetAngle returns the last angle accepted by the servo, 0.0 without one.
func (m *SingleServo) GetAngle() float64 {
	if s, ok := m.arena.Servo(m.servo); ok {
		return s.GetAngle()
	}
	return 0.0
}

func (m *SingleServo) LogData() {
	m.entries[0].Value = m.GetAngle()
	m.entries[1].Value = m.target
	m.sink.Log(m.id.Table, m.entries[:])
}
