package input

import (
	"fmt"
	"strings"
)

// FunctionID names a logical robot function independent of the physical
// control bound to it.
type FunctionID int

const (
	ArcadeThrottle FunctionID = iota
	ArcadeSteer
	Intake
	Expel
	RotateArmUp
	RotateArmDown
	Release
	MaxFunctions
)

var functionNames = [MaxFunctions]string{
	ArcadeThrottle: "ARCADE_THROTTLE",
	ArcadeSteer:    "ARCADE_STEER",
	Intake:         "INTAKE",
	Expel:          "EXPEL",
	RotateArmUp:    "ROTATE_ARM_UP",
	RotateArmDown:  "ROTATE_ARM_DOWN",
	Release:        "RELEASE",
}

func (f FunctionID) String() string {
	if f >= 0 && f < MaxFunctions {
		return functionNames[f]
	}
	return fmt.Sprintf("FunctionID(%d)", int(f))
}

func (f FunctionID) valid() bool { return f >= 0 && f < MaxFunctions }

// ParseFunction converts a config name to a FunctionID.
func ParseFunction(s string) (FunctionID, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range functionNames {
		if n == name {
			return FunctionID(i), nil
		}
	}
	return MaxFunctions, fmt.Errorf("unknown function %q", s)
}

// AxisID names an analog control of a gamepad.
type AxisID int

const (
	UndefinedAxis AxisID = iota - 1
	LeftJoystickX
	LeftJoystickY
	RightJoystickX
	RightJoystickY
	LeftTrigger
	RightTrigger
	MaxAxes
)

var axisNames = [MaxAxes]string{
	LeftJoystickX:  "LEFT_JOYSTICK_X",
	LeftJoystickY:  "LEFT_JOYSTICK_Y",
	RightJoystickX: "RIGHT_JOYSTICK_X",
	RightJoystickY: "RIGHT_JOYSTICK_Y",
	LeftTrigger:    "LEFT_TRIGGER",
	RightTrigger:   "RIGHT_TRIGGER",
}

func (a AxisID) String() string {
	if a.valid() {
		return axisNames[a]
	}
	if a == UndefinedAxis {
		return "UNDEFINED_AXIS"
	}
	return fmt.Sprintf("AxisID(%d)", int(a))
}

func (a AxisID) valid() bool { return a >= 0 && a < MaxAxes }

// ParseAxis converts a name to an AxisID.
func ParseAxis(s string) (AxisID, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range axisNames {
		if n == name {
			return AxisID(i), nil
		}
	}
	return UndefinedAxis, fmt.Errorf("unknown axis %q", s)
}

// ButtonID names a digital control of a gamepad.
type ButtonID int

const (
	UndefinedButton ButtonID = iota - 1
	AButton
	BButton
	XButton
	YButton
	LeftBumper
	RightBumper
	BackButton
	StartButton
	LeftStickPressed
	RightStickPressed
	MaxButtons
)

var buttonNames = [MaxButtons]string{
	AButton:           "A_BUTTON",
	BButton:           "B_BUTTON",
	XButton:           "X_BUTTON",
	YButton:           "Y_BUTTON",
	LeftBumper:        "LEFT_BUMPER",
	RightBumper:       "RIGHT_BUMPER",
	BackButton:        "BACK_BUTTON",
	StartButton:       "START_BUTTON",
	LeftStickPressed:  "LEFT_STICK_PRESSED",
	RightStickPressed: "RIGHT_STICK_PRESSED",
}

func (b ButtonID) String() string {
	if b.valid() {
		return buttonNames[b]
	}
	if b == UndefinedButton {
		return "UNDEFINED_BUTTON"
	}
	return fmt.Sprintf("ButtonID(%d)", int(b))
}

func (b ButtonID) valid() bool { return b >= 0 && b < MaxButtons }

// ParseButton converts a name to a ButtonID.
func ParseButton(s string) (ButtonID, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range buttonNames {
		if n == name {
			return ButtonID(i), nil
		}
	}
	return UndefinedButton, fmt.Errorf("unknown button %q", s)
}

// Profile shapes an axis response curve.
type Profile int

const (
	ProfileLinear Profile = iota
	ProfileSquared
	ProfileCubed
)

func (p Profile) String() string {
	switch p {
	case ProfileLinear:
		return "linear"
	case ProfileSquared:
		return "squared"
	case ProfileCubed:
		return "cubed"
	default:
		return fmt.Sprintf("Profile(%d)", int(p))
	}
}

// ParseProfile converts a config name to a Profile.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "linear":
		return ProfileLinear, nil
	case "squared":
		return ProfileSquared, nil
	case "cubed":
		return ProfileCubed, nil
	default:
		return ProfileLinear, fmt.Errorf("unknown axis profile %q", s)
	}
}

// Deadband widths around an axis' rest position.
const (
	DeadbandNone     = 0.0
	DeadbandStandard = 0.1
	DeadbandLarge    = 0.25
)
