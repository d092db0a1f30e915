package input

import (
	"bytes"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cjeanneret/MechGo/internal/debug"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func newBoundTeleop() (*Teleop, *SimGamepad) {
	pad := NewSimGamepad(PadXBox)
	return NewTeleop([]Gamepad{pad}), pad
}

// ---------- bindings ----------

func TestNewTeleop_DefaultBindingsOnPortZero(t *testing.T) {
	tc, _ := newBoundTeleop()
	if diff := cmp.Diff(DefaultBindings(), tc.Bindings()); diff != "" {
		t.Errorf("bindings mismatch (-want +got):\n%s", diff)
	}
	b := tc.Binding(RotateArmUp)
	if b.Controller != 0 || b.Button != YButton || b.Axis != UndefinedAxis {
		t.Errorf("ROTATE_ARM_UP = %+v, want controller 0 Y_BUTTON", b)
	}
}

func TestNewTeleop_NoPadLeavesEverythingUnbound(t *testing.T) {
	tc := NewTeleop(nil)
	for f := FunctionID(0); f < MaxFunctions; f++ {
		if got := tc.Binding(f); got != Unbound {
			t.Errorf("%v = %+v, want unbound", f, got)
		}
		if tc.IsButtonPressed(f) {
			t.Errorf("%v pressed without controller", f)
		}
		if v := tc.GetAxisValue(f); v != 0 {
			t.Errorf("%v axis = %v without controller", f, v)
		}
	}
}

func TestNewTeleop_GenericPadGetsNoBindings(t *testing.T) {
	tc := NewTeleop([]Gamepad{NewSimGamepad(PadGeneric)})
	if tc.Binding(Intake) != Unbound {
		t.Error("generic pad on port 0 should not be bound")
	}
}

func TestIsButtonPressed_UnboundFunction(t *testing.T) {
	tc, pad := newBoundTeleop()
	if err := tc.Bind(RotateArmUp, Unbound); err != nil {
		t.Fatal(err)
	}
	pad.SetButton(YButton, true)
	if tc.IsButtonPressed(RotateArmUp) {
		t.Error("unbound ROTATE_ARM_UP should read false")
	}
}

func TestIsButtonPressed_Bound(t *testing.T) {
	tc, pad := newBoundTeleop()
	pad.SetButton(RightBumper, true)
	if !tc.IsButtonPressed(Intake) {
		t.Error("INTAKE should be pressed")
	}
	if tc.IsButtonPressed(Expel) {
		t.Error("EXPEL should not be pressed")
	}
	if tc.IsButtonPressed(ArcadeThrottle) {
		t.Error("axis function should never read as a button")
	}
}

func TestBind_Errors(t *testing.T) {
	tc, _ := newBoundTeleop()
	if err := tc.Bind(MaxFunctions, Unbound); err == nil {
		t.Error("expected error for invalid function")
	}
	if err := tc.Bind(Intake, Binding{Controller: MaxPorts, Button: AButton}); err == nil {
		t.Error("expected error for out-of-range controller")
	}
	if err := tc.Bind(Intake, Binding{Controller: -7, Button: AButton}); err != nil {
		t.Fatal(err)
	}
	if tc.Binding(Intake) != Unbound {
		t.Error("negative controller should normalize to unbound")
	}
}

func TestAttach_LatePad(t *testing.T) {
	tc := NewTeleop(nil)
	pad := NewSimGamepad(PadGeneric)
	pad.SetButton(XButton, true)
	if err := tc.Bind(Release, Binding{Controller: 2, Axis: UndefinedAxis, Button: XButton}); err != nil {
		t.Fatal(err)
	}
	if tc.IsButtonPressed(Release) {
		t.Error("empty port should read false")
	}
	if err := tc.Attach(2, pad); err != nil {
		t.Fatal(err)
	}
	if !tc.IsButtonPressed(Release) {
		t.Error("RELEASE should be pressed after attach")
	}
	if err := tc.Attach(MaxPorts, pad); err == nil {
		t.Error("expected error for out-of-range port")
	}
}

// ---------- axis shaping ----------

func TestGetAxisValue_Shaping(t *testing.T) {
	cases := []struct {
		name     string
		raw      float64
		deadband float64
		profile  Profile
		scale    float64
		flipped  bool
		want     float64
	}{
		{"linear", 0.5, 0, ProfileLinear, 1, false, 0.5},
		{"inside_deadband", 0.05, 0.1, ProfileLinear, 1, false, 0},
		{"deadband_rescales", 0.55, 0.1, ProfileLinear, 1, false, 0.5},
		{"full_scale_with_deadband", 1, 0.1, ProfileLinear, 1, false, 1},
		{"squared_keeps_sign", -0.5, 0, ProfileSquared, 1, false, -0.25},
		{"cubed", 0.5, 0, ProfileCubed, 1, false, 0.125},
		{"scaled", 1, 0, ProfileLinear, 0.5, false, 0.5},
		{"scale_clamped", 1, 0, ProfileLinear, 3, false, 1},
		{"flipped", 0.4, 0, ProfileLinear, 1, true, -0.4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tel, pad := newBoundTeleop()
			tel.SetDeadBand(ArcadeThrottle, tc.deadband)
			tel.SetAxisProfile(ArcadeThrottle, tc.profile)
			tel.SetAxisScaleFactor(ArcadeThrottle, tc.scale)
			tel.SetAxisFlipped(ArcadeThrottle, tc.flipped)
			pad.SetAxis(LeftJoystickY, tc.raw)
			if got := tel.GetAxisValue(ArcadeThrottle); !almostEqual(got, tc.want) {
				t.Errorf("GetAxisValue() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGetAxisValue_RawClamped(t *testing.T) {
	tel, pad := newBoundTeleop()
	pad.SetAxis(RightJoystickX, 4)
	if got := tel.GetAxisValue(ArcadeSteer); got != 1 {
		t.Errorf("GetAxisValue() = %v, want 1", got)
	}
}

func TestShapeSetters_NoOpWhenUnbound(t *testing.T) {
	tel, pad := newBoundTeleop()
	// INTAKE is a button function; shaping it must not touch any axis.
	tel.SetAxisScaleFactor(Intake, 0)
	tel.SetAxisFlipped(Intake, true)
	pad.SetAxis(LeftJoystickY, 0.5)
	if got := tel.GetAxisValue(ArcadeThrottle); got != 0.5 {
		t.Errorf("GetAxisValue() = %v, want 0.5", got)
	}
	if got := tel.GetAxisValue(Intake); got != 0 {
		t.Errorf("button function axis = %v, want 0", got)
	}
}

// ---------- names ----------

func TestParseNames(t *testing.T) {
	if f, err := ParseFunction("rotate_arm_down"); err != nil || f != RotateArmDown {
		t.Errorf("ParseFunction = %v, %v", f, err)
	}
	if _, err := ParseFunction("jump"); err == nil {
		t.Error("expected error for unknown function")
	}
	if a, err := ParseAxis("RIGHT_TRIGGER"); err != nil || a != RightTrigger {
		t.Errorf("ParseAxis = %v, %v", a, err)
	}
	if b, err := ParseButton("start_button"); err != nil || b != StartButton {
		t.Errorf("ParseButton = %v, %v", b, err)
	}
	if p, err := ParseProfile("cubed"); err != nil || p != ProfileCubed {
		t.Errorf("ParseProfile = %v, %v", p, err)
	}
	if UndefinedAxis.String() != "UNDEFINED_AXIS" || UndefinedButton.String() != "UNDEFINED_BUTTON" {
		t.Error("sentinel names changed")
	}
}

// ---------- WebGamepad ----------

func TestWebGamepad_ApplyAndTimeout(t *testing.T) {
	now := time.Unix(100, 0)
	g := NewWebGamepad(PadXBox, time.Second)
	g.now = func() time.Time { return now }

	if g.RawButton(AButton) {
		t.Error("pad that never reported should be idle")
	}
	unknown := g.Apply(Report{
		Axes:    map[string]float64{"left_joystick_y": -0.5, "wheel": 1},
		Buttons: map[string]bool{"A_BUTTON": true},
	})
	if diff := cmp.Diff([]string{"wheel"}, unknown); diff != "" {
		t.Errorf("unknown mismatch (-want +got):\n%s", diff)
	}
	if !g.RawButton(AButton) || g.RawAxis(LeftJoystickY) != -0.5 {
		t.Error("report not applied")
	}

	now = now.Add(2 * time.Second)
	if g.RawButton(AButton) || g.RawAxis(LeftJoystickY) != 0 {
		t.Error("stale pad should read idle")
	}
}

func TestWebGamepad_ApplyReplacesState(t *testing.T) {
	g := NewWebGamepad(PadXBox, 0)
	g.Apply(Report{Buttons: map[string]bool{"B_BUTTON": true}})
	g.Apply(Report{Buttons: map[string]bool{"X_BUTTON": true}})
	if g.RawButton(BButton) {
		t.Error("second report should release B")
	}
	if !g.RawButton(XButton) {
		t.Error("X should be pressed")
	}
}

func TestWebGamepad_KeepsKind(t *testing.T) {
	if k := NewWebGamepad(PadGeneric, 0).Kind(); k != PadGeneric {
		t.Errorf("Kind = %v, want generic", k)
	}
	if k := NewWebGamepad(PadXBox, 0).Kind(); k != PadXBox {
		t.Errorf("Kind = %v, want xbox", k)
	}
}

func TestNewTeleop_LogsEmptyPortsOnce(t *testing.T) {
	var buf bytes.Buffer
	debug.SetOutput(&buf)
	debug.Init(debug.LevelInfo)
	t.Cleanup(func() {
		debug.Init(debug.LevelOff)
		debug.SetOutput(os.Stdout)
	})

	pads := make([]Gamepad, MaxPorts)
	pads[2] = NewSimGamepad(PadGeneric)
	tp := NewTeleop(pads)
	_ = tp.GetAxisValue(ArcadeThrottle)
	_ = tp.IsButtonPressed(Intake)

	got := buf.String()
	if n := strings.Count(got, "no controller plugged into port 0"); n != 1 {
		t.Errorf("port 0 warning logged %d times, want 1:\n%s", n, got)
	}
	for _, port := range []string{"1", "3", "4", "5"} {
		if n := strings.Count(got, "controller "+port+" not handled"); n != 1 {
			t.Errorf("port %s warning logged %d times, want 1", port, n)
		}
	}
	if strings.Contains(got, "controller 2 not handled") {
		t.Error("occupied port 2 should not be reported")
	}
}
