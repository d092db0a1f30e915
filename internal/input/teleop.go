// Package input maps logical robot functions to physical gamepad controls.
//
// Robot code asks [Teleop] for a function ("is INTAKE pressed?") and never
// names a stick or button. Unbound functions and missing controllers read
// as 0.0 / false.
package input

import (
	"fmt"
	"math"
	"sync"

	"github.com/samber/lo"

	"github.com/cjeanneret/MechGo/internal/debug"
)

// MaxPorts is the number of controller ports scanned at construction.
const MaxPorts = 6

// Binding ties a function to one control on one port. Controller is -1 for
// an unbound function.
type Binding struct {
	Controller int
	Axis       AxisID
	Button     ButtonID
}

// Unbound is the binding every function starts with.
var Unbound = Binding{Controller: -1, Axis: UndefinedAxis, Button: UndefinedButton}

// IsAxis reports whether b reads an analog axis.
func (b Binding) IsAxis() bool { return b.Controller >= 0 && b.Axis != UndefinedAxis }

// IsButton reports whether b reads a button.
func (b Binding) IsButton() bool { return b.Controller >= 0 && b.Button != UndefinedButton }

func (b Binding) String() string {
	switch {
	case b.IsAxis():
		return fmt.Sprintf("controller %d %s", b.Controller, b.Axis)
	case b.IsButton():
		return fmt.Sprintf("controller %d %s", b.Controller, b.Button)
	default:
		return "unbound"
	}
}

// DefaultBindings is the function table applied to an XBox pad on port 0.
func DefaultBindings() [MaxFunctions]Binding {
	var t [MaxFunctions]Binding
	for i := range t {
		t[i] = Unbound
	}
	t[ArcadeThrottle] = Binding{Controller: 0, Axis: LeftJoystickY, Button: UndefinedButton}
	t[ArcadeSteer] = Binding{Controller: 0, Axis: RightJoystickX, Button: UndefinedButton}
	t[Intake] = Binding{Controller: 0, Axis: UndefinedAxis, Button: RightBumper}
	t[Expel] = Binding{Controller: 0, Axis: UndefinedAxis, Button: LeftBumper}
	t[RotateArmUp] = Binding{Controller: 0, Axis: UndefinedAxis, Button: YButton}
	t[RotateArmDown] = Binding{Controller: 0, Axis: UndefinedAxis, Button: AButton}
	t[Release] = Binding{Controller: 0, Axis: UndefinedAxis, Button: BButton}
	return t
}

type axisShape struct {
	deadband float64
	profile  Profile
	scale    float64
	flipped  bool
}

var defaultShape = axisShape{deadband: DeadbandNone, profile: ProfileLinear, scale: 1.0}

// Teleop owns the controller ports and the function binding table. It is
// created once at startup and passed to whoever reads operator input.
type Teleop struct {
	mu       sync.RWMutex
	pads     [MaxPorts]Gamepad
	bindings [MaxFunctions]Binding
	shapes   [MaxPorts][MaxAxes]axisShape
}

// NewTeleop scans pads (index = port, nil = empty) and builds the binding
// table. Only an XBox pad on port 0 receives bindings; every empty port is
// reported once.
func NewTeleop(pads []Gamepad) *Teleop {
	t := &Teleop{}
	for i := range t.bindings {
		t.bindings[i] = Unbound
	}
	for p := range t.shapes {
		for a := range t.shapes[p] {
			t.shapes[p][a] = defaultShape
		}
	}
	for port := 0; port < MaxPorts && port < len(pads); port++ {
		t.pads[port] = pads[port]
	}

	switch pad := t.pads[0]; {
	case pad == nil:
		debug.Errorf("TeleopControl: no controller plugged into port 0")
	case pad.Kind() == PadXBox:
		t.bindings = DefaultBindings()
	default:
		debug.Errorf("TeleopControl: controller 0 not handled")
	}
	for port := 1; port < MaxPorts; port++ {
		if t.pads[port] == nil {
			debug.Errorf("TeleopControl: controller %d not handled", port)
		}
	}
	return t
}

// Binding returns the current binding of f.
func (t *Teleop) Binding(f FunctionID) Binding {
	if !f.valid() {
		return Unbound
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bindings[f]
}

// Bindings returns a copy of the whole table.
func (t *Teleop) Bindings() [MaxFunctions]Binding {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bindings
}

// Bind replaces the binding of f. Binding to an empty port is allowed: the
// function then reads as inactive until a pad is attached.
func (t *Teleop) Bind(f FunctionID, b Binding) error {
	if !f.valid() {
		return fmt.Errorf("bind: invalid function %v", f)
	}
	if b.Controller >= MaxPorts {
		return fmt.Errorf("bind %v: controller %d out of range", f, b.Controller)
	}
	if b.Controller < 0 {
		b = Unbound
	}
	t.mu.Lock()
	t.bindings[f] = b
	t.mu.Unlock()
	return nil
}

// Attach plugs pad into port, replacing any previous pad.
func (t *Teleop) Attach(port int, pad Gamepad) error {
	if port < 0 || port >= MaxPorts {
		return fmt.Errorf("attach: port %d out of range", port)
	}
	t.mu.Lock()
	t.pads[port] = pad
	t.mu.Unlock()
	return nil
}

// Pad returns the gamepad on port, nil if empty.
func (t *Teleop) Pad(port int) Gamepad {
	if port < 0 || port >= MaxPorts {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pads[port]
}

// resolveAxis returns the pad and axis behind f, or false when f is not an
// axis function or its controller is missing.
func (t *Teleop) resolveAxis(f FunctionID) (Gamepad, int, AxisID, bool) {
	if !f.valid() {
		return nil, 0, UndefinedAxis, false
	}
	b := t.bindings[f]
	if !b.IsAxis() || !b.Axis.valid() {
		return nil, 0, UndefinedAxis, false
	}
	pad := t.pads[b.Controller]
	if pad == nil {
		return nil, 0, UndefinedAxis, false
	}
	return pad, b.Controller, b.Axis, true
}

// GetAxisValue reads the axis bound to f with deadband, profile, scale and
// flip applied. The result is in [-1, 1]; 0.0 when f is unavailable.
func (t *Teleop) GetAxisValue(f FunctionID) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pad, port, axis, ok := t.resolveAxis(f)
	if !ok {
		return 0.0
	}
	return t.shapes[port][axis].apply(pad.RawAxis(axis))
}

// IsButtonPressed reads the button bound to f; false when f is unavailable.
func (t *Teleop) IsButtonPressed(f FunctionID) bool {
	if !f.valid() {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	b := t.bindings[f]
	if !b.IsButton() || !b.Button.valid() {
		return false
	}
	pad := t.pads[b.Controller]
	if pad == nil {
		return false
	}
	return pad.RawButton(b.Button)
}

func (t *Teleop) shape(f FunctionID, edit func(*axisShape)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, port, axis, ok := t.resolveAxis(f)
	if !ok {
		return
	}
	edit(&t.shapes[port][axis])
}

// SetAxisScaleFactor limits the output range of f's axis. The factor is
// clamped to [0, 1].
func (t *Teleop) SetAxisScaleFactor(f FunctionID, scale float64) {
	scale = lo.Clamp(scale, 0.0, 1.0)
	t.shape(f, func(s *axisShape) { s.scale = scale })
}

// SetDeadBand sets the rest zone of f's axis, clamped to [0, 0.95].
func (t *Teleop) SetDeadBand(f FunctionID, deadband float64) {
	deadband = lo.Clamp(deadband, 0.0, 0.95)
	t.shape(f, func(s *axisShape) { s.deadband = deadband })
}

// SetAxisProfile sets the response curve of f's axis.
func (t *Teleop) SetAxisProfile(f FunctionID, p Profile) {
	t.shape(f, func(s *axisShape) { s.profile = p })
}

// SetAxisFlipped inverts f's axis.
func (t *Teleop) SetAxisFlipped(f FunctionID, flipped bool) {
	t.shape(f, func(s *axisShape) { s.flipped = flipped })
}

func (s axisShape) apply(raw float64) float64 {
	v := clampUnit(raw)
	mag := math.Abs(v)
	if mag < s.deadband || mag == 0 {
		return 0.0
	}
	mag = (mag - s.deadband) / (1 - s.deadband)
	switch s.profile {
	case ProfileSquared:
		mag *= mag
	case ProfileCubed:
		mag = mag * mag * mag
	}
	v = math.Copysign(mag*s.scale, v)
	if s.flipped {
		v = -v
	}
	return clampUnit(v)
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return lo.Clamp(v, -1.0, 1.0)
}
