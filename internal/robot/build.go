// Package robot assembles actuators, mechanisms, input and telemetry from a
// config and drives them from a periodic loop.
package robot

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/multierr"

	"github.com/cjeanneret/MechGo/internal/config"
	"github.com/cjeanneret/MechGo/internal/debug"
	"github.com/cjeanneret/MechGo/internal/hw/actuator"
	"github.com/cjeanneret/MechGo/internal/hw/gpio"
	"github.com/cjeanneret/MechGo/internal/input"
	"github.com/cjeanneret/MechGo/internal/logic/control"
	"github.com/cjeanneret/MechGo/internal/logic/mechanism"
	"github.com/cjeanneret/MechGo/internal/telemetry"
)

// Robot is the process-wide context: everything the loop, the web server
// and the CLI share. Build it once and pass it down.
type Robot struct {
	Config   *config.Config
	Arena    *actuator.Arena
	Registry *mechanism.Registry
	Teleop   *input.Teleop
	Tables   *telemetry.Tables
	Recorder *telemetry.SQLiteRecorder // nil when recording is off
	Sink     telemetry.Sink

	// Controls holds the loaded control file of each mechanism type.
	Controls map[mechanism.Type]*config.ControlFile
	// WebPads are the gamepads fed over HTTP, by port.
	WebPads map[int]*input.WebGamepad
	// SimPads are the programmatic gamepads, by port.
	SimPads map[int]*input.SimGamepad

	// Problems collects every definition that could not be built. The robot
	// still runs: the affected functions degrade to no-ops.
	Problems error

	steppers []*actuator.Stepper
	closers  []io.Closer
}

// Build creates the robot described by cfg on top of g.
func Build(ctx context.Context, cfg *config.Config, g gpio.Driver) (*Robot, error) {
	r := &Robot{
		Config:   cfg,
		Arena:    actuator.NewArena(),
		Registry: mechanism.NewRegistry(),
		Tables:   telemetry.NewTables(),
		Controls: map[mechanism.Type]*config.ControlFile{},
		WebPads:  map[int]*input.WebGamepad{},
		SimPads:  map[int]*input.SimGamepad{},
		Problems: cfg.Skipped,
	}

	debug.Step(1, "Opening telemetry")
	r.Sink = r.Tables
	if path := cfg.Telemetry.SQLitePath; path != "" {
		rec := telemetry.NewSQLiteRecorder(path)
		if err := rec.Init(ctx); err != nil {
			return nil, fmt.Errorf("open telemetry recorder: %w", err)
		}
		label := cfg.Telemetry.RunLabel
		if label == "" {
			label = "teleop"
		}
		runID, err := rec.StartRun(ctx, label)
		if err != nil {
			_ = rec.Close()
			return nil, fmt.Errorf("start telemetry run: %w", err)
		}
		debug.Value("Telemetry run", runID)
		r.Recorder = rec
		r.closers = append(r.closers, rec)
		r.Sink = telemetry.Multi{r.Tables, rec}
	}

	debug.Step(2, "Initializing actuators")
	r.buildActuators(cfg, g)

	debug.Step(3, "Building mechanisms")
	r.buildMechanisms(cfg)

	debug.Step(4, "Scanning controllers")
	r.buildTeleop(cfg)

	motors, servos := r.Arena.Len()
	debug.Info("Robot ready: %d motors, %d servos, %d mechanisms", motors, servos, r.Registry.Len())
	if r.Problems != nil {
		for _, err := range multierr.Errors(r.Problems) {
			debug.Warn("skipped: %v", err)
		}
	}
	return r, nil
}

func (r *Robot) problem(err error) {
	r.Problems = multierr.Append(r.Problems, err)
}

func (r *Robot) buildActuators(cfg *config.Config, g gpio.Driver) {
	var maestro *actuator.Maestro
	for _, a := range cfg.Actuators {
		rng := actuator.ServoRange{
			MinAngle:   a.MinAngle,
			MaxAngle:   a.MaxAngle,
			MinPulseUs: a.MinPulseUs,
			MaxPulseUs: a.MaxPulseUs,
		}
		var err error
		switch a.Kind {
		case config.KindSimMotor:
			_, err = r.Arena.AddMotor(actuator.NewSimMotor(actuator.SimConfig{
				Name:     a.Name,
				FreeRPS:  a.FreeRPS,
				Period:   cfg.Period(),
				Inverted: a.Inverted,
			}))
		case config.KindStepper:
			var s *actuator.Stepper
			s, err = actuator.NewStepper(g, actuator.StepperConfig{
				Name:             a.Name,
				StepPin:          a.StepPin,
				DirPin:           a.DirPin,
				EnablePin:        a.EnablePin,
				StepsPerRev:      a.StepsPerRev,
				Microstepping:    a.Microstepping,
				MaxStepsPerCycle: a.MaxStepsPerCycle,
				Period:           cfg.Period(),
			})
			if err == nil {
				r.steppers = append(r.steppers, s)
				_, err = r.Arena.AddMotor(s)
			}
		case config.KindPWMServo:
			var s *actuator.PWMServo
			s, err = actuator.NewPWMServo(g, actuator.PWMServoConfig{Name: a.Name, Pin: a.Pin, Range: rng})
			if err == nil {
				_, err = r.Arena.AddServo(s)
			}
		case config.KindMaestroServo:
			if maestro == nil {
				maestro, err = openMaestro(cfg.Serial)
				if err != nil {
					r.problem(fmt.Errorf("actuator %q: %w", a.Name, err))
					continue
				}
				r.closers = append(r.closers, maestro)
			}
			_, err = r.Arena.AddServo(actuator.NewMaestroServo(maestro, actuator.MaestroServoConfig{
				Name:    a.Name,
				Channel: uint8(a.Channel),
				Range:   rng,
			}))
		default:
			err = fmt.Errorf("unknown kind %q", a.Kind)
		}
		if err != nil {
			r.problem(fmt.Errorf("actuator %q: %w", a.Name, err))
			continue
		}
		debug.PrintStruct("Actuator "+a.Name, a)
	}
}

func openMaestro(sc *config.SerialConfig) (*actuator.Maestro, error) {
	if sc == nil || sc.Device == "" {
		return nil, fmt.Errorf("maestro servo needs serial.device")
	}
	return actuator.OpenMaestro(actuator.MaestroConfig{
		Device:  sc.Device,
		Baud:    sc.Baud,
		Number:  uint8(sc.DeviceNumber),
		Compact: sc.Compact,
	})
}

func (r *Robot) buildMechanisms(cfg *config.Config) {
	for _, mc := range cfg.Mechanisms {
		m, err := r.buildMechanism(mc)
		if err != nil {
			r.problem(fmt.Errorf("mechanism %q: %w", mc.Name, err))
			continue
		}
		if err := r.Registry.Add(m); err != nil {
			r.problem(fmt.Errorf("mechanism %q: %w", mc.Name, err))
			continue
		}
		debug.Info("Mechanism %s (%s) -> %s", m.GetType(), m.Kind(), m.GetNetworkTableName())

		if file := m.GetControlFileName(); file != "" {
			cf, err := config.LoadControlFile(cfg.ControlFilePath(file))
			if err != nil {
				// Missing tuning is not fatal: states fall back to open loop.
				debug.ErrorOnce("controls/"+file, "mechanism %s: %v", m.GetType(), err)
				continue
			}
			if cf.Skipped != nil {
				r.problem(fmt.Errorf("control file %s: %w", file, cf.Skipped))
			}
			r.Controls[m.GetType()] = cf
			debug.Verbose("%s: %d control records", file, len(cf.Records))
		}
	}
}

func (r *Robot) buildMechanism(mc config.MechanismConfig) (mechanism.Mechanism, error) {
	typ, err := mechanism.ParseType(mc.Type)
	if err != nil {
		return nil, err
	}
	kind, err := mechanism.ParseKind(mc.Kind)
	if err != nil {
		return nil, err
	}
	id := mechanism.Identity{Type: typ, ControlFile: mc.ControlFile, Table: mc.Table}
	if id.Table == "" {
		id.Table = typ.DefaultTable()
	}
	if id.ControlFile == "" && kind != mechanism.KindServo {
		id.ControlFile = typ.DefaultControlFile()
	}

	name := func(i int) string {
		if i < len(mc.Actuators) {
			return mc.Actuators[i]
		}
		return ""
	}
	switch kind {
	case mechanism.KindSingle:
		return mechanism.NewSingleIndMotor(id, r.Arena, r.Arena.MotorByName(name(0)), r.Sink), nil
	case mechanism.KindDual:
		return mechanism.NewDualIndMotors(id, r.Arena, r.Arena.MotorByName(name(0)), r.Arena.MotorByName(name(1)), r.Sink), nil
	case mechanism.KindServo:
		return mechanism.NewSingleServo(id, r.Arena, r.Arena.ServoByName(name(0)), r.Sink), nil
	default:
		return nil, fmt.Errorf("unsupported kind %v", kind)
	}
}

func (r *Robot) buildTeleop(cfg *config.Config) {
	pads := make([]input.Gamepad, input.MaxPorts)
	for _, c := range cfg.Controllers {
		kind := input.PadXBox
		if c.Kind == "generic" {
			kind = input.PadGeneric
		}
		switch c.Source {
		case "web":
			wp := input.NewWebGamepad(kind, 0)
			r.WebPads[c.Port] = wp
			pads[c.Port] = wp
		case "", "sim":
			sp := input.NewSimGamepad(kind)
			r.SimPads[c.Port] = sp
			pads[c.Port] = sp
		default:
			r.problem(fmt.Errorf("controller %d: unknown source %q", c.Port, c.Source))
		}
	}
	r.Teleop = input.NewTeleop(pads)

	for _, b := range cfg.Bindings {
		if err := applyBinding(r.Teleop, b); err != nil {
			r.problem(fmt.Errorf("binding %q: %w", b.Function, err))
		}
	}
}

func applyBinding(t *input.Teleop, b config.BindingConfig) error {
	f, err := input.ParseFunction(b.Function)
	if err != nil {
		return err
	}
	if b.Controller != nil {
		nb := input.Binding{Controller: *b.Controller, Axis: input.UndefinedAxis, Button: input.UndefinedButton}
		if b.Axis != "" {
			if nb.Axis, err = input.ParseAxis(b.Axis); err != nil {
				return err
			}
		}
		if b.Button != "" {
			if nb.Button, err = input.ParseButton(b.Button); err != nil {
				return err
			}
		}
		if err := t.Bind(f, nb); err != nil {
			return err
		}
	}
	if b.Profile != "" {
		p, err := input.ParseProfile(b.Profile)
		if err != nil {
			return err
		}
		t.SetAxisProfile(f, p)
	}
	if b.Deadband != nil {
		t.SetDeadBand(f, *b.Deadband)
	}
	if b.Scale != nil {
		t.SetAxisScaleFactor(f, *b.Scale)
	}
	if b.Flipped {
		t.SetAxisFlipped(f, true)
	}
	return nil
}

// Control returns the control record id of mechanism t, nil if absent.
func (r *Robot) Control(t mechanism.Type, id string) *control.Data {
	if id == "" {
		return nil
	}
	return r.Controls[t].Get(id)
}

// EnableMotors powers every stepper driver.
func (r *Robot) EnableMotors() error {
	var err error
	for _, s := range r.steppers {
		err = multierr.Append(err, s.Enable())
	}
	return err
}

// DisableMotors releases every stepper driver so the axes can be moved by hand.
func (r *Robot) DisableMotors() error {
	var err error
	for _, s := range r.steppers {
		err = multierr.Append(err, s.Disable())
	}
	return err
}

// Close flushes telemetry and releases serial links. The GPIO driver
// belongs to the caller.
func (r *Robot) Close() error {
	var err error
	for i := len(r.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, r.closers[i].Close())
	}
	r.closers = nil
	return err
}
