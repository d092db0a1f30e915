// Package actuator owns every actuator driver of the robot. Mechanisms keep
// handles into an Arena rather than the drivers themselves, so a missing
// actuator is an explicit empty handle instead of a nil pointer.
package actuator

import (
	"fmt"

	"github.com/cjeanneret/MechGo/internal/logic/control"
)

// Motor is a motor controller driven once per control cycle.
type Motor interface {
	Name() string
	// GetRotations returns the output shaft position in rotations.
	GetRotations() float64
	// GetRPS returns the output shaft speed in rotations per second.
	GetRPS() float64
	SetControlMode(mode control.Type)
	// SetControlConstants loads cd into slot and selects it.
	SetControlConstants(slot int, cd *control.Data)
	// Set applies value in the units of the current control mode:
	// percent (-1..1), degrees, rotations per second, volts or amps.
	Set(value float64) error
}

// Servo is a positional actuator commanded by angle.
type Servo interface {
	Name() string
	SetAngle(deg float64) error
	GetAngle() float64
}

// MotorHandle references a Motor in an Arena. The zero value is "no motor".
type MotorHandle struct{ idx int }

// ServoHandle references a Servo in an Arena. The zero value is "no servo".
type ServoHandle struct{ idx int }

// Valid reports whether the handle references an actuator.
func (h MotorHandle) Valid() bool { return h.idx > 0 }

// Valid reports whether the handle references an actuator.
func (h ServoHandle) Valid() bool { return h.idx > 0 }

// Arena stores actuator drivers for the process lifetime.
type Arena struct {
	motors []Motor
	servos []Servo
	names  map[string]any
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{names: make(map[string]any)}
}

// AddMotor registers m and returns its handle. Names must be unique.
func (a *Arena) AddMotor(m Motor) (MotorHandle, error) {
	if m == nil {
		return MotorHandle{}, fmt.Errorf("nil motor")
	}
	if _, dup := a.names[m.Name()]; dup {
		return MotorHandle{}, fmt.Errorf("actuator %q already registered", m.Name())
	}
	a.motors = append(a.motors, m)
	h := MotorHandle{idx: len(a.motors)}
	a.names[m.Name()] = h
	return h, nil
}

// AddServo registers s and returns its handle. Names must be unique.
func (a *Arena) AddServo(s Servo) (ServoHandle, error) {
	if s == nil {
		return ServoHandle{}, fmt.Errorf("nil servo")
	}
	if _, dup := a.names[s.Name()]; dup {
		return ServoHandle{}, fmt.Errorf("actuator %q already registered", s.Name())
	}
	a.servos = append(a.servos, s)
	h := ServoHandle{idx: len(a.servos)}
	a.names[s.Name()] = h
	return h, nil
}

// Motor resolves h. It returns false for an empty or foreign handle.
func (a *Arena) Motor(h MotorHandle) (Motor, bool) {
	if a == nil || h.idx <= 0 || h.idx > len(a.motors) {
		return nil, false
	}
	return a.motors[h.idx-1], true
}

// Servo resolves h. It returns false for an empty or foreign handle.
func (a *Arena) Servo(h ServoHandle) (Servo, bool) {
	if a == nil || h.idx <= 0 || h.idx > len(a.servos) {
		return nil, false
	}
	return a.servos[h.idx-1], true
}

// MotorByName returns the handle registered under name, or an empty handle.
func (a *Arena) MotorByName(name string) MotorHandle {
	if a == nil {
		return MotorHandle{}
	}
	if h, ok := a.names[name].(MotorHandle); ok {
		return h
	}
	return MotorHandle{}
}

// ServoByName returns the handle registered under name, or an empty handle.
func (a *Arena) ServoByName(name string) ServoHandle {
	if a == nil {
		return ServoHandle{}
	}
	if h, ok := a.names[name].(ServoHandle); ok {
		return h
	}
	return ServoHandle{}
}

// Len returns the number of motors and servos.
func (a *Arena) Len() (motors, servos int) {
	if a == nil {
		return 0, 0
	}
	return len(a.motors), len(a.servos)
}
