package actuator

import (
	"fmt"
	"math"

	"github.com/cjeanneret/MechGo/internal/hw/gpio"
)

const (
	pwmClockHz   = 1_000_000 // 1 tick = 1µs
	servoFrameUs = 20_000    // 50 Hz servo frame
)

// ServoRange maps an angle range onto a pulse width range.
type ServoRange struct {
	MinAngle   float64 // default 0
	MaxAngle   float64 // default 180
	MinPulseUs float64 // default 1000
	MaxPulseUs float64 // default 2000
}

func (r ServoRange) withDefaults() ServoRange {
	if r.MaxAngle == 0 && r.MinAngle >= 0 {
		r.MaxAngle = 180
	}
	if r.MaxAngle < r.MinAngle {
		r.MaxAngle = r.MinAngle
	}
	if r.MinPulseUs <= 0 {
		r.MinPulseUs = 1000
	}
	if r.MaxPulseUs <= 0 {
		r.MaxPulseUs = 2000
	}
	return r
}

// clampAngle limits deg to the configured range.
func (r ServoRange) clampAngle(deg float64) float64 {
	return math.Max(r.MinAngle, math.Min(r.MaxAngle, deg))
}

// PulseUs converts an angle (clamped to the range) to a pulse width.
func (r ServoRange) PulseUs(deg float64) float64 {
	deg = r.clampAngle(deg)
	span := r.MaxAngle - r.MinAngle
	if span == 0 {
		return r.MinPulseUs
	}
	return r.MinPulseUs + (deg-r.MinAngle)/span*(r.MaxPulseUs-r.MinPulseUs)
}

// PWMServoConfig describes a hobby servo on a hardware PWM pin.
type PWMServoConfig struct {
	Name  string
	Pin   int
	Range ServoRange
}

// PWMServo drives a hobby servo from a hardware PWM pin.
type PWMServo struct {
	gpio  gpio.Driver
	cfg   PWMServoConfig
	angle float64
}

// NewPWMServo configures the pin for a 50 Hz servo frame.
func NewPWMServo(g gpio.Driver, cfg PWMServoConfig) (*PWMServo, error) {
	cfg.Range = cfg.Range.withDefaults()
	if err := g.SetupPWM(cfg.Pin, pwmClockHz); err != nil {
		return nil, fmt.Errorf("servo %q: setup pwm: %w", cfg.Name, err)
	}
	return &PWMServo{gpio: g, cfg: cfg, angle: cfg.Range.MinAngle}, nil
}

func (s *PWMServo) Name() string { return s.cfg.Name }

func (s *PWMServo) GetAngle() float64 { return s.angle }

func (s *PWMServo) SetAngle(deg float64) error {
	pulse := s.cfg.Range.PulseUs(deg)
	if err := s.gpio.WriteDuty(s.cfg.Pin, uint32(math.Round(pulse)), servoFrameUs); err != nil {
		return err
	}
	s.angle = s.cfg.Range.clampAngle(deg)
	return nil
}
