package actuator

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/tarm/serial"

	"github.com/cjeanneret/MechGo/internal/debug"
)

// Pololu Maestro serial commands.
const (
	maestroSetTarget = 0x84
	maestroSetSpeed  = 0x87
	maestroGoHome    = 0xa2
)

// MaestroConfig holds the serial link to a Maestro servo controller.
type MaestroConfig struct {
	Device  string // e.g. "/dev/ttyACM0"
	Baud    int    // ignored by USB CDC; default 9600
	Number  uint8  // device number for the Pololu protocol
	Compact bool   // use the compact protocol (single device on the bus)
}

// Maestro is a Pololu Maestro servo controller.
type Maestro struct {
	port io.WriteCloser
	cfg  MaestroConfig
	buf  [6]byte
}

// OpenMaestro opens the serial port of a Maestro controller.
func OpenMaestro(cfg MaestroConfig) (*Maestro, error) {
	if cfg.Baud <= 0 {
		cfg.Baud = 9600
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	debug.Info("Maestro servo controller on %s", cfg.Device)
	return NewMaestro(port, cfg), nil
}

// NewMaestro wraps an already open port (tests use an in-memory writer).
func NewMaestro(port io.WriteCloser, cfg MaestroConfig) *Maestro {
	return &Maestro{port: port, cfg: cfg}
}

func (m *Maestro) preamble(command uint8) []byte {
	if m.cfg.Compact {
		m.buf[0] = command
		return m.buf[:1]
	}
	m.buf[0] = 0xaa
	m.buf[1] = m.cfg.Number
	m.buf[2] = command & 0x7f
	return m.buf[:3]
}

func (m *Maestro) channelCmd(command, channel uint8, value uint16) error {
	cmd := m.preamble(command)
	cmd = append(cmd, channel, byte(value&0x7f), byte((value>>7)&0x7f))
	debug.Trace("Maestro: % x", cmd)
	_, err := m.port.Write(cmd)
	return err
}

// SetTarget sets a channel target in quarter-microseconds.
func (m *Maestro) SetTarget(channel uint8, quarterUs uint16) error {
	return m.channelCmd(maestroSetTarget, channel, quarterUs)
}

// SetSpeed limits a channel speed (0 = unlimited).
func (m *Maestro) SetSpeed(channel uint8, speed uint16) error {
	return m.channelCmd(maestroSetSpeed, channel, speed)
}

// GoHome sends all channels to their home position.
func (m *Maestro) GoHome() error {
	_, err := m.port.Write(m.preamble(maestroGoHome))
	return err
}

// Close closes the serial port.
func (m *Maestro) Close() error {
	return m.port.Close()
}

// MaestroServoConfig describes one servo channel on a Maestro.
type MaestroServoConfig struct {
	Name    string
	Channel uint8
	Range   ServoRange
}

// MaestroServo is a Servo on one Maestro channel.
type MaestroServo struct {
	ctrl  *Maestro
	cfg   MaestroServoConfig
	angle float64
}

// NewMaestroServo binds a channel of ctrl.
func NewMaestroServo(ctrl *Maestro, cfg MaestroServoConfig) *MaestroServo {
	cfg.Range = cfg.Range.withDefaults()
	return &MaestroServo{ctrl: ctrl, cfg: cfg, angle: cfg.Range.MinAngle}
}

func (s *MaestroServo) Name() string { return s.cfg.Name }

func (s *MaestroServo) GetAngle() float64 { return s.angle }

func (s *MaestroServo) SetAngle(deg float64) error {
	quarter := uint16(math.Round(s.cfg.Range.PulseUs(deg) * 4))
	if err := s.ctrl.SetTarget(s.cfg.Channel, quarter); err != nil {
		return err
	}
	s.angle = s.cfg.Range.clampAngle(deg)
	return nil
}
