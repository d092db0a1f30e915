package actuator

import (
	"math"
	"time"

	"github.com/cjeanneret/MechGo/internal/debug"
	"github.com/cjeanneret/MechGo/internal/logic/control"
)

const busVoltage = 12.0

// SimConfig describes a simulated motor controller.
type SimConfig struct {
	Name      string
	FreeRPS   float64       // output speed at full output; default 100
	Period    time.Duration // simulated time per Set call; default 20ms
	Inverted  bool          // open-loop output direction
	StartRots float64
}

// SimMotor emulates a smart motor controller: four gain slots, an onboard
// PIDF per slot and a first-order shaft model advanced on every Set.
type SimMotor struct {
	cfg     SimConfig
	mode    control.Type
	slots   [4]*control.Data
	pids    [4]*control.PID
	active  int
	rots    float64
	rps     float64
	lastOut float64
}

// NewSimMotor creates a simulated motor.
func NewSimMotor(cfg SimConfig) *SimMotor {
	if cfg.FreeRPS <= 0 {
		cfg.FreeRPS = 100
	}
	if cfg.Period <= 0 {
		cfg.Period = 20 * time.Millisecond
	}
	m := &SimMotor{cfg: cfg, rots: cfg.StartRots}
	for i := range m.pids {
		m.pids[i] = control.NewPID(nil)
	}
	return m
}

func (m *SimMotor) Name() string { return m.cfg.Name }

func (m *SimMotor) GetRotations() float64 { return m.rots }

func (m *SimMotor) GetRPS() float64 { return m.rps }

// Output returns the last applied output in -1..1.
func (m *SimMotor) Output() float64 { return m.lastOut }

// Mode returns the current control mode.
func (m *SimMotor) Mode() control.Type { return m.mode }

// Slot returns the constants loaded into slot, nil if none.
func (m *SimMotor) Slot(slot int) *control.Data {
	if slot < 0 || slot >= len(m.slots) {
		return nil
	}
	return m.slots[slot]
}

func (m *SimMotor) SetControlMode(mode control.Type) {
	if mode != m.mode {
		debug.Trace("SimMotor %s: mode %s -> %s", m.cfg.Name, m.mode, mode)
		m.pids[m.active].Reset()
	}
	m.mode = mode
}

func (m *SimMotor) SetControlConstants(slot int, cd *control.Data) {
	if slot < 0 || slot >= len(m.slots) || cd == nil {
		return
	}
	m.slots[slot] = cd
	m.pids[slot] = control.NewPID(cd)
	m.active = slot
	m.SetControlMode(cd.Mode())
}

func (m *SimMotor) Set(value float64) error {
	dt := m.cfg.Period.Seconds()

	var out float64
	switch m.mode {
	case control.PercentOutput:
		out = value
	case control.Voltage:
		out = value / busVoltage
	case control.Position, control.Trapezoid:
		out = m.pids[m.active].Compute(value/360.0, m.rots, dt)
		if cd := m.slots[m.active]; cd != nil && m.mode == control.Trapezoid && cd.CruiseVelocity() > 0 {
			limit := cd.CruiseVelocity() / m.cfg.FreeRPS
			out = math.Max(-limit, math.Min(limit, out))
		}
	case control.Velocity:
		out = m.pids[m.active].Compute(value, m.rps, dt)
	case control.Current:
		out = value / 40.0 // stall current of the simulated motor
	}
	out = math.Max(-1, math.Min(1, out))
	// closed-loop modes invert sensor and output together
	if m.cfg.Inverted && !m.mode.IsClosedLoop() {
		out = -out
	}

	m.lastOut = out
	m.rps = out * m.cfg.FreeRPS
	m.rots += m.rps * dt
	return nil
}
