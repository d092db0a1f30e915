package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes bounds every file read by this package.
const MaxConfigFileBytes = 1 << 20

// Actuator kinds.
const (
	KindSimMotor     = "sim_motor"
	KindStepper      = "stepper"
	KindPWMServo     = "pwm_servo"
	KindMaestroServo = "maestro_servo"
)

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	PeriodMs   int  `yaml:"period_ms"`   // control loop period (default 20ms)
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// ActuatorConfig describes one motor or servo. Which fields matter depends on Kind.
type ActuatorConfig struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"` // sim_motor, stepper, pwm_servo, maestro_servo
	Inverted bool   `yaml:"inverted"`

	// sim_motor
	FreeRPS float64 `yaml:"free_rps"`

	// stepper (A4988 style, BCM pins; enable_pin 0 = not used, active LOW)
	StepPin          int `yaml:"step_pin"`
	DirPin           int `yaml:"dir_pin"`
	EnablePin        int `yaml:"enable_pin"`
	StepsPerRev      int `yaml:"steps_per_rev"`
	Microstepping    int `yaml:"microstepping"`
	MaxStepsPerCycle int `yaml:"max_steps_per_cycle"`

	// pwm_servo uses Pin, maestro_servo uses Channel
	Pin        int     `yaml:"pin"`
	Channel    int     `yaml:"channel"`
	MinAngle   float64 `yaml:"min_angle"`
	MaxAngle   float64 `yaml:"max_angle"`
	MinPulseUs float64 `yaml:"min_pulse_us"`
	MaxPulseUs float64 `yaml:"max_pulse_us"`
}

// MechanismConfig describes one mechanism and the actuators backing it.
type MechanismConfig struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"` // intake, arm, ball_release, shooter, climber
	Kind        string   `yaml:"kind"` // single, dual, servo
	ControlFile string   `yaml:"control_file"`
	Table       string   `yaml:"table"`
	Actuators   []string `yaml:"actuators"` // primary first
}

// ControllerConfig plugs a gamepad into a port.
type ControllerConfig struct {
	Port   int    `yaml:"port"`
	Kind   string `yaml:"kind"`   // xbox (default), generic
	Source string `yaml:"source"` // sim (default), web
}

// BindingConfig overrides the function table and axis shaping.
type BindingConfig struct {
	Function   string   `yaml:"function"`
	Controller *int     `yaml:"controller"` // -1 unbinds
	Axis       string   `yaml:"axis"`
	Button     string   `yaml:"button"`
	Deadband   *float64 `yaml:"deadband"`
	Profile    string   `yaml:"profile"`
	Scale      *float64 `yaml:"scale"`
	Flipped    bool     `yaml:"flipped"`
}

// TeleopConfig holds the targets commanded by the teleop mapping.
type TeleopConfig struct {
	IntakeSpeed    float64    `yaml:"intake_speed"`     // percent output while INTAKE held (default 0.8)
	ExpelSpeed     float64    `yaml:"expel_speed"`      // percent output while EXPEL held (default -0.8)
	IntakeControl  string     `yaml:"intake_control"`   // control record identifier
	ArmUp          [2]float64 `yaml:"arm_up"`           // degrees, primary/secondary
	ArmDown        [2]float64 `yaml:"arm_down"`         // degrees, primary/secondary
	ArmControl     string     `yaml:"arm_control"`      // record for the primary arm motor
	ArmControl2    string     `yaml:"arm_control2"`     // record for the secondary arm motor
	ReleaseAngle   float64    `yaml:"release_angle"`    // servo degrees while RELEASE held (default 90)
	HoldAngle      float64    `yaml:"hold_angle"`       // servo degrees otherwise
	ControlFileDir string     `yaml:"control_file_dir"` // default: directory of the robot config
}

// TelemetryConfig controls recording and the web stream.
type TelemetryConfig struct {
	SQLitePath string `yaml:"sqlite_path"` // empty = no recording
	RunLabel   string `yaml:"run_label"`
	WebPort    int    `yaml:"web_port"` // 0 = no web server
}

// SerialConfig describes the Maestro servo controller link.
type SerialConfig struct {
	Device       string `yaml:"device"`
	Baud         int    `yaml:"baud"`
	DeviceNumber int    `yaml:"device_number"`
	Compact      bool   `yaml:"compact"`
}

// Config aggregates all robot configuration.
type Config struct {
	Defaults    DefaultsConfig     `yaml:"defaults"`
	Actuators   []ActuatorConfig   `yaml:"-"`
	Mechanisms  []MechanismConfig  `yaml:"-"`
	Controllers []ControllerConfig `yaml:"controllers"`
	Bindings    []BindingConfig    `yaml:"bindings"`
	Teleop      TeleopConfig       `yaml:"teleop"`
	Telemetry   TelemetryConfig    `yaml:"telemetry"`
	Serial      *SerialConfig      `yaml:"serial,omitempty"` // optional

	// Skipped collects the definitions dropped while loading.
	Skipped error `yaml:"-"`

	dir string
}

type rawConfig struct {
	Config     `yaml:",inline"`
	Actuators  []yaml.Node `yaml:"actuators"`
	Mechanisms []yaml.Node `yaml:"mechanisms"`
}

// Load reads a YAML file and returns the configuration.
//
// Unknown top-level sections are ignored. Inside an actuator or mechanism
// definition an unknown key or bad value drops that definition only: the
// error is kept in Config.Skipped and loading continues.
func Load(path string) (*Config, error) {
	data, err := readLimited(path)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("config file %s is empty", path)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	cfg := raw.Config
	cfg.dir = filepath.Dir(path)

	var skipped error
	for i := range raw.Actuators {
		var a ActuatorConfig
		if err := decodeStrict(&raw.Actuators[i], &a); err != nil {
			skipped = multierr.Append(skipped, fmt.Errorf("actuators[%d]: %w", i, err))
			continue
		}
		if err := a.validate(); err != nil {
			skipped = multierr.Append(skipped, fmt.Errorf("actuators[%d] %q: %w", i, a.Name, err))
			continue
		}
		cfg.Actuators = append(cfg.Actuators, a)
	}
	for i := range raw.Mechanisms {
		var m MechanismConfig
		if err := decodeStrict(&raw.Mechanisms[i], &m); err != nil {
			skipped = multierr.Append(skipped, fmt.Errorf("mechanisms[%d]: %w", i, err))
			continue
		}
		if err := m.validate(); err != nil {
			skipped = multierr.Append(skipped, fmt.Errorf("mechanisms[%d] %q: %w", i, m.Name, err))
			continue
		}
		cfg.Mechanisms = append(cfg.Mechanisms, m)
	}

	// the first definition wins; later duplicates are skipped
	actuatorNames := map[string]bool{}
	cfg.Actuators = lo.Filter(cfg.Actuators, func(a ActuatorConfig, _ int) bool {
		if actuatorNames[a.Name] {
			skipped = multierr.Append(skipped, fmt.Errorf("actuator %q: duplicate name", a.Name))
			return false
		}
		actuatorNames[a.Name] = true
		return true
	})
	mechanismTypes := map[string]bool{}
	cfg.Mechanisms = lo.Filter(cfg.Mechanisms, func(m MechanismConfig, _ int) bool {
		typ := strings.ToLower(strings.TrimSpace(m.Type))
		if mechanismTypes[typ] {
			skipped = multierr.Append(skipped, fmt.Errorf("mechanism %q: duplicate type %s", m.Name, typ))
			return false
		}
		mechanismTypes[typ] = true
		return true
	})
	cfg.Skipped = skipped

	if cfg.Defaults.PeriodMs <= 0 {
		cfg.Defaults.PeriodMs = 20 // 50Hz
	}
	if cfg.Defaults.PeriodMs > 1000 {
		return nil, fmt.Errorf("period_ms must be <= 1000, got %d", cfg.Defaults.PeriodMs)
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}
	for i, c := range cfg.Controllers {
		if c.Port < 0 || c.Port > 5 {
			return nil, fmt.Errorf("controllers[%d]: port must be between 0 and 5, got %d", i, c.Port)
		}
	}

	if cfg.Teleop.IntakeSpeed == 0 {
		cfg.Teleop.IntakeSpeed = 0.8
	}
	if cfg.Teleop.ExpelSpeed == 0 {
		cfg.Teleop.ExpelSpeed = -0.8
	}
	if cfg.Teleop.ReleaseAngle == 0 {
		cfg.Teleop.ReleaseAngle = 90
	}
	if cfg.Telemetry.WebPort < 0 || cfg.Telemetry.WebPort > 65535 {
		return nil, fmt.Errorf("web_port must be 0-65535, got %d", cfg.Telemetry.WebPort)
	}
	if cfg.Serial != nil && cfg.Serial.Baud <= 0 {
		cfg.Serial.Baud = 9600
	}

	return &cfg, nil
}

func (a *ActuatorConfig) validate() error {
	if a.Name == "" {
		return errors.New("name is required")
	}
	switch a.Kind {
	case KindSimMotor:
	case KindStepper:
		if a.StepPin <= 0 || a.DirPin <= 0 {
			return errors.New("step_pin and dir_pin are required")
		}
	case KindPWMServo:
		if a.Pin <= 0 {
			return errors.New("pin is required")
		}
	case KindMaestroServo:
		if a.Channel < 0 || a.Channel > 23 {
			return fmt.Errorf("channel must be between 0 and 23, got %d", a.Channel)
		}
	default:
		return fmt.Errorf("unknown kind %q", a.Kind)
	}
	if a.MaxAngle == 0 && a.MinAngle >= 180 {
		return fmt.Errorf("max_angle is required when min_angle >= 180")
	}
	if a.MaxAngle != 0 && a.MaxAngle <= a.MinAngle {
		return fmt.Errorf("max_angle must be > min_angle")
	}
	return nil
}

func (m *MechanismConfig) validate() error {
	if m.Type == "" {
		return errors.New("type is required")
	}
	want := 1
	switch m.Kind {
	case "single", "servo":
	case "dual":
		want = 2
	default:
		return fmt.Errorf("unknown kind %q", m.Kind)
	}
	if len(m.Actuators) > want {
		return fmt.Errorf("%s mechanism takes at most %d actuators, got %d", m.Kind, want, len(m.Actuators))
	}
	if m.Name == "" {
		m.Name = m.Type
	}
	return nil
}

// Period returns the control loop period.
func (c *Config) Period() time.Duration {
	return time.Duration(c.Defaults.PeriodMs) * time.Millisecond
}

// Actuator returns the definition named name.
func (c *Config) Actuator(name string) (ActuatorConfig, bool) {
	return lo.Find(c.Actuators, func(a ActuatorConfig) bool { return a.Name == name })
}

// ControlFilePath resolves a mechanism control file relative to the
// configured directory, or to the robot config's directory.
func (c *Config) ControlFilePath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	dir := c.Teleop.ControlFileDir
	if dir == "" {
		dir = c.dir
	}
	return filepath.Join(dir, name)
}

// ValidateConfigPath accepts only .yaml files directly inside a configs/
// directory, with no traversal components.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if strings.Contains(filepath.ToSlash(path), "..") {
		return fmt.Errorf("config path %q must not contain ..", path)
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must end in .yaml", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, MaxConfigFileBytes)
	}
	return data, nil
}

// decodeStrict decodes one mapping node, rejecting unknown keys.
func decodeStrict(n *yaml.Node, out interface{}) error {
	buf, err := yaml.Marshal(n)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	return dec.Decode(out)
}
