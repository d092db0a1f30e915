// Package mechanism implements the robot sub-assemblies commanded by states.
//
// Three capability sets exist, each with one implementation:
//
//   - [SingleActuator]: one driven motor ([SingleIndMotor])
//   - [DualActuator]: two independently driven motors ([DualIndMotors])
//   - [SinglePositional]: one positional actuator such as a servo ([SingleServo])
//
// Every accessor degrades to a neutral value when the backing actuator is
// missing; nothing here returns an error on the control path.
package mechanism

import (
	"fmt"
	"strings"

	"github.com/cjeanneret/MechGo/internal/logic/control"
)

// Type tags what a mechanism is on the robot.
type Type int

const (
	Unknown Type = iota
	Intake
	Arm
	BallRelease
	Shooter
	Climber
)

var typeNames = map[Type]string{
	Unknown:     "UNKNOWN",
	Intake:      "INTAKE",
	Arm:         "ARM",
	BallRelease: "BALL_RELEASE",
	Shooter:     "SHOOTER",
	Climber:     "CLIMBER",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

var tableNames = map[Type]string{
	Intake:      "IntakeNT",
	Arm:         "ArmNT",
	BallRelease: "BallReleaseNT",
	Shooter:     "ShooterNT",
	Climber:     "ClimberNT",
}

// DefaultTable is the telemetry table used when the config names none.
func (t Type) DefaultTable() string {
	if s, ok := tableNames[t]; ok {
		return s
	}
	return "UnknownNT"
}

// DefaultControlFile is the control file used when the config names none.
func (t Type) DefaultControlFile() string {
	return strings.ToLower(t.String()) + ".yaml"
}

// ParseType converts a config name (case-insensitive) to a Type.
func ParseType(s string) (Type, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for t, n := range typeNames {
		if n == name && t != Unknown {
			return t, nil
		}
	}
	return Unknown, fmt.Errorf("unknown mechanism type %q", s)
}

// Kind is the closed set of mechanism shapes.
type Kind int

const (
	KindSingle Kind = iota
	KindDual
	KindServo
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindDual:
		return "dual"
	case KindServo:
		return "servo"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind converts a config name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single":
		return KindSingle, nil
	case "dual":
		return KindDual, nil
	case "servo":
		return KindServo, nil
	default:
		return KindSingle, fmt.Errorf("unknown mechanism kind %q", s)
	}
}

// Mechanism is the identity and telemetry surface shared by all mechanisms.
type Mechanism interface {
	GetType() Type
	Kind() Kind
	// GetControlFileName names the file holding the tuning constants.
	GetControlFileName() string
	// GetNetworkTableName names the telemetry table.
	GetNetworkTableName() string
	LogData()
}

// SingleActuator is a mechanism driven by one motor.
type SingleActuator interface {
	Mechanism
	GetPosition() float64
	GetSpeed() float64
	GetTarget() float64
	SetControlMode(mode control.Type)
	SetControlConstants(slot int, cd *control.Data)
	UpdateTarget(target float64)
	Update()
}

// DualActuator is a mechanism driven by two independent motors.
type DualActuator interface {
	Mechanism
	GetPrimaryPosition() float64
	GetSecondaryPosition() float64
	GetPrimarySpeed() float64
	GetSecondarySpeed() float64
	GetPrimaryTarget() float64
	GetSecondaryTarget() float64
	SetControlMode(mode control.Type)
	SetSecondaryControlMode(mode control.Type)
	SetControlConstants(slot int, cd *control.Data)
	SetSecondaryControlConstants(slot int, cd *control.Data)
	UpdateTargets(primary, secondary float64)
	Update()
}

// SinglePositional is a mechanism with one actuator commanded by angle.
type SinglePositional interface {
	Mechanism
	SetAngle(angle float64)
	GetAngle() float64
}

// Identity is fixed at construction and never changes.
type Identity struct {
	Type        Type
	ControlFile string
	Table       string
}

type identity struct {
	id Identity
}

func (i identity) GetType() Type               { return i.id.Type }
func (i identity) GetControlFileName() string  { return i.id.ControlFile }
func (i identity) GetNetworkTableName() string { return i.id.Table }

// degreesPerRotation converts actuator rotations to mechanism degrees.
const degreesPerRotation = 360.0
