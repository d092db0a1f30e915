package actuator

import (
	"fmt"
	"math"
	"time"

	"github.com/cjeanneret/MechGo/internal/debug"
	"github.com/cjeanneret/MechGo/internal/hw/gpio"
	"github.com/cjeanneret/MechGo/internal/logic/control"
)

// StepperConfig holds the hardware configuration for a stepper motor
// behind an A4988-style STEP/DIR driver.
type StepperConfig struct {
	Name             string
	StepPin          int
	DirPin           int
	EnablePin        int // A4988 ENABLE pin (BCM). 0 = not used. Active LOW.
	StepsPerRev      int
	Microstepping    int
	PulseWidth       time.Duration // half-cycle of the STEP pulse; default 2µs
	MaxStepsPerCycle int           // step budget per Set call; default 50
	Period           time.Duration // control period used to derive speed; default 20ms
}

// Stepper drives a stepper motor as a Motor. Each Set emits at most
// MaxStepsPerCycle pulses so the control cycle stays bounded; the position
// is tracked by counting steps (open loop).
type Stepper struct {
	gpio      gpio.Driver
	cfg       StepperConfig
	mode      control.Type
	slot      *control.Data
	steps     int
	lastSteps int
	enabled   bool
}

// NewStepper creates a stepper motor driver and enables it.
func NewStepper(g gpio.Driver, cfg StepperConfig) (*Stepper, error) {
	if cfg.StepsPerRev <= 0 {
		return nil, fmt.Errorf("stepper %q: steps_per_rev must be > 0", cfg.Name)
	}
	if cfg.Microstepping <= 0 {
		cfg.Microstepping = 1
	}
	if cfg.PulseWidth <= 0 {
		cfg.PulseWidth = 2 * time.Microsecond
	}
	if cfg.MaxStepsPerCycle <= 0 {
		cfg.MaxStepsPerCycle = 50
	}
	if cfg.Period <= 0 {
		cfg.Period = 20 * time.Millisecond
	}

	if err := g.SetupPin(cfg.StepPin, gpio.Output); err != nil {
		return nil, fmt.Errorf("stepper %q: setup step pin: %w", cfg.Name, err)
	}
	if err := g.SetupPin(cfg.DirPin, gpio.Output); err != nil {
		return nil, fmt.Errorf("stepper %q: setup dir pin: %w", cfg.Name, err)
	}

	s := &Stepper{gpio: g, cfg: cfg, mode: control.Position}

	// A4988 ENABLE: active LOW. LOW = enabled, HIGH = disabled.
	if cfg.EnablePin > 0 {
		if err := g.SetupPin(cfg.EnablePin, gpio.Output); err != nil {
			return nil, fmt.Errorf("stepper %q: setup enable pin: %w", cfg.Name, err)
		}
		if err := s.Enable(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Stepper) Name() string { return s.cfg.Name }

func (s *Stepper) stepsPerRot() float64 {
	return float64(s.cfg.StepsPerRev * s.cfg.Microstepping)
}

func (s *Stepper) GetRotations() float64 {
	return float64(s.steps) / s.stepsPerRot()
}

func (s *Stepper) GetRPS() float64 {
	return float64(s.lastSteps) / s.stepsPerRot() / s.cfg.Period.Seconds()
}

func (s *Stepper) SetControlMode(mode control.Type) {
	s.mode = mode
}

// SetControlConstants records the slot; a STEP/DIR driver has no gains.
func (s *Stepper) SetControlConstants(slot int, cd *control.Data) {
	if cd == nil {
		return
	}
	debug.Verbose("Stepper %s: slot %d uses %s (gains ignored, open loop)", s.cfg.Name, slot, cd)
	s.slot = cd
	s.mode = cd.Mode()
}

func (s *Stepper) Set(value float64) error {
	var want int
	budget := s.cfg.MaxStepsPerCycle
	switch s.mode {
	case control.Position, control.Trapezoid:
		want = int(math.Round(value/360.0*s.stepsPerRot())) - s.steps
		if s.slot != nil && s.slot.Tolerance() > 0 {
			if math.Abs(float64(want))/s.stepsPerRot()*360.0 <= s.slot.Tolerance() {
				want = 0
			}
		}
	case control.Velocity:
		want = int(math.Round(value * s.stepsPerRot() * s.cfg.Period.Seconds()))
	case control.PercentOutput:
		want = int(math.Round(value * float64(budget)))
	default:
		return fmt.Errorf("stepper %q: unsupported control mode %s", s.cfg.Name, s.mode)
	}
	if want > budget {
		want = budget
	} else if want < -budget {
		want = -budget
	}
	return s.moveSteps(want)
}

// moveSteps moves the motor by a number of steps (positive or negative).
func (s *Stepper) moveSteps(steps int) error {
	s.lastSteps = 0
	if steps == 0 {
		return nil
	}

	dirLevel := gpio.High
	n := steps
	if steps < 0 {
		dirLevel = gpio.Low
		n = -steps
	}

	debug.Trace("Stepper %s: moving %d steps on pin %d", s.cfg.Name, steps, s.cfg.StepPin)

	if err := s.gpio.WritePin(s.cfg.DirPin, dirLevel); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := s.stepPulse(); err != nil {
			return err
		}
		if steps > 0 {
			s.steps++
			s.lastSteps++
		} else {
			s.steps--
			s.lastSteps--
		}
	}
	return nil
}

func (s *Stepper) stepPulse() error {
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.High); err != nil {
		return err
	}
	time.Sleep(s.cfg.PulseWidth)
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.Low); err != nil {
		return err
	}
	time.Sleep(s.cfg.PulseWidth)
	return nil
}

// Enable turns on the motor driver (A4988 ENABLE=LOW). Motors hold position.
func (s *Stepper) Enable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	s.enabled = true
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.Low)
}

// Disable turns off the motor driver (A4988 ENABLE=HIGH). Motors freewheel.
func (s *Stepper) Disable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	s.enabled = false
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.High)
}

// Enabled reports whether the driver currently holds the motor.
func (s *Stepper) Enabled() bool { return s.enabled || s.cfg.EnablePin <= 0 }
