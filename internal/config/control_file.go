package config

import (
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/MechGo/internal/logic/control"
)

// ControlRecord is one named set of motor controller constants as written
// in a mechanism control file.
type ControlRecord struct {
	Identifier      string  `yaml:"identifier"`
	Mode            string  `yaml:"mode"` // percent_output, position, velocity, voltage, current, trapezoid
	Slot            int     `yaml:"slot"`
	P               float64 `yaml:"p"`
	I               float64 `yaml:"i"`
	D               float64 `yaml:"d"`
	F               float64 `yaml:"f"`
	IZone           float64 `yaml:"izone"`
	PeakOutput      float64 `yaml:"peak_output"`
	Tolerance       float64 `yaml:"tolerance"`
	CruiseVelocity  float64 `yaml:"cruise_velocity"`
	MaxAcceleration float64 `yaml:"max_acceleration"`
}

// Data converts the record to immutable control constants.
func (r ControlRecord) Data() (*control.Data, error) {
	mode := control.PercentOutput
	if r.Mode != "" {
		m, err := control.ParseType(r.Mode)
		if err != nil {
			return nil, err
		}
		mode = m
	}
	return control.New(control.Params{
		Identifier:      r.Identifier,
		Mode:            mode,
		Slot:            r.Slot,
		Gains:           control.Gains{P: r.P, I: r.I, D: r.D, F: r.F},
		IZone:           r.IZone,
		PeakOutput:      r.PeakOutput,
		Tolerance:       r.Tolerance,
		CruiseVelocity:  r.CruiseVelocity,
		MaxAcceleration: r.MaxAcceleration,
	})
}

// ControlFile is the parsed content of a mechanism control file.
type ControlFile struct {
	Path    string
	Records map[string]*control.Data
	// Skipped collects the records dropped while loading.
	Skipped error
}

// Get returns the record named id, nil if absent.
func (f *ControlFile) Get(id string) *control.Data {
	if f == nil {
		return nil
	}
	return f.Records[id]
}

// Identifiers returns the record names in sorted order.
func (f *ControlFile) Identifiers() []string {
	ids := make([]string, 0, len(f.Records))
	for id := range f.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type rawControlFile struct {
	Controls []yaml.Node `yaml:"controls"`
}

// LoadControlFile reads a control file:
//
//	controls:
//	  - identifier: arm_up
//	    mode: position
//	    slot: 0
//	    p: 0.4
//	    tolerance: 2
//
// A record with an unknown key, a bad value or a duplicate identifier is
// dropped and reported in Skipped; the other records still load.
func LoadControlFile(path string) (*ControlFile, error) {
	data, err := readLimited(path)
	if err != nil {
		return nil, err
	}
	var raw rawControlFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal control file %s: %w", filepath.Base(path), err)
	}

	f := &ControlFile{Path: path, Records: make(map[string]*control.Data, len(raw.Controls))}
	for i := range raw.Controls {
		var r ControlRecord
		if err := decodeStrict(&raw.Controls[i], &r); err != nil {
			f.Skipped = multierr.Append(f.Skipped, fmt.Errorf("controls[%d]: %w", i, err))
			continue
		}
		if r.Identifier == "" {
			f.Skipped = multierr.Append(f.Skipped, fmt.Errorf("controls[%d]: identifier is required", i))
			continue
		}
		if _, dup := f.Records[r.Identifier]; dup {
			f.Skipped = multierr.Append(f.Skipped, fmt.Errorf("controls[%d]: duplicate identifier %q", i, r.Identifier))
			continue
		}
		cd, err := r.Data()
		if err != nil {
			f.Skipped = multierr.Append(f.Skipped, fmt.Errorf("controls[%d] %q: %w", i, r.Identifier, err))
			continue
		}
		f.Records[r.Identifier] = cd
	}
	return f, nil
}
