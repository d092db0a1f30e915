package input

import (
	"sync"
	"time"
)

// PadKind identifies the controller family plugged into a port. Only
// XBox-style pads get the default function bindings.
type PadKind int

const (
	PadXBox PadKind = iota
	PadGeneric
)

func (k PadKind) String() string {
	if k == PadXBox {
		return "xbox"
	}
	return "generic"
}

// Gamepad is a raw controller on one port. Values are unshaped: axes in
// [-1, 1], buttons pressed or not.
type Gamepad interface {
	Kind() PadKind
	RawAxis(a AxisID) float64
	RawButton(b ButtonID) bool
}

// SimGamepad is a Gamepad whose controls are set programmatically.
type SimGamepad struct {
	mu      sync.RWMutex
	kind    PadKind
	axes    [MaxAxes]float64
	buttons [MaxButtons]bool
}

// NewSimGamepad returns an idle pad of the given kind.
func NewSimGamepad(kind PadKind) *SimGamepad {
	return &SimGamepad{kind: kind}
}

func (g *SimGamepad) Kind() PadKind { return g.kind }

func (g *SimGamepad) RawAxis(a AxisID) float64 {
	if !a.valid() {
		return 0
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.axes[a]
}

func (g *SimGamepad) RawButton(b ButtonID) bool {
	if !b.valid() {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.buttons[b]
}

// SetAxis sets a raw axis value, clamped to [-1, 1].
func (g *SimGamepad) SetAxis(a AxisID, v float64) {
	if !a.valid() {
		return
	}
	g.mu.Lock()
	g.axes[a] = clampUnit(v)
	g.mu.Unlock()
}

// SetButton presses or releases a button.
func (g *SimGamepad) SetButton(b ButtonID, pressed bool) {
	if !b.valid() {
		return
	}
	g.mu.Lock()
	g.buttons[b] = pressed
	g.mu.Unlock()
}

// Reset releases everything.
func (g *SimGamepad) Reset() {
	g.mu.Lock()
	g.axes = [MaxAxes]float64{}
	g.buttons = [MaxButtons]bool{}
	g.mu.Unlock()
}

// Report is one full controller sample posted by the web UI.
type Report struct {
	Axes    map[string]float64 `json:"axes"`
	Buttons map[string]bool    `json:"buttons"`
}

// WebGamepad is fed by HTTP reports. A pad that has not reported within
// its timeout reads as idle so a closed browser tab cannot leave a motor
// running.
type WebGamepad struct {
	SimGamepad
	timeout time.Duration
	now     func() time.Time

	seenMu sync.Mutex
	seen   time.Time
}

// NewWebGamepad returns a pad of the given layout; timeout <= 0 means 500ms.
func NewWebGamepad(kind PadKind, timeout time.Duration) *WebGamepad {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &WebGamepad{SimGamepad: SimGamepad{kind: kind}, timeout: timeout, now: time.Now}
}

// Apply replaces the pad state with r. Unknown control names are
// collected and returned; known ones are still applied.
func (g *WebGamepad) Apply(r Report) []string {
	var unknown []string
	var axes [MaxAxes]float64
	var buttons [MaxButtons]bool
	for name, v := range r.Axes {
		a, err := ParseAxis(name)
		if err != nil {
			unknown = append(unknown, name)
			continue
		}
		axes[a] = clampUnit(v)
	}
	for name, v := range r.Buttons {
		b, err := ParseButton(name)
		if err != nil {
			unknown = append(unknown, name)
			continue
		}
		buttons[b] = v
	}
	g.mu.Lock()
	g.axes = axes
	g.buttons = buttons
	g.mu.Unlock()

	g.seenMu.Lock()
	g.seen = g.now()
	g.seenMu.Unlock()
	return unknown
}

func (g *WebGamepad) fresh() bool {
	g.seenMu.Lock()
	defer g.seenMu.Unlock()
	return !g.seen.IsZero() && g.now().Sub(g.seen) <= g.timeout
}

func (g *WebGamepad) RawAxis(a AxisID) float64 {
	if !g.fresh() {
		return 0
	}
	return g.SimGamepad.RawAxis(a)
}

func (g *WebGamepad) RawButton(b ButtonID) bool {
	if !g.fresh() {
		return false
	}
	return g.SimGamepad.RawButton(b)
}
