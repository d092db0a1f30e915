package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cjeanneret/MechGo/internal/telemetry"
)

const goodYAML = `
defaults:
  mock_gpio: true
actuators:
  - {name: intake_motor, kind: sim_motor}
  - {name: release_servo, kind: pwm_servo, pin: 18}
mechanisms:
  - {type: intake, kind: single, actuators: [intake_motor]}
  - {type: ball_release, kind: servo, actuators: [release_servo]}
controllers:
  - {port: 0, kind: xbox}
`

const intakeYAML = `
controls:
  - identifier: intake_pct
    mode: percent_output
`

func writeConfigs(t *testing.T, robotYAML string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "configs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "intake.yaml"), []byte(intakeYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "robot.yaml")
	if err := os.WriteFile(path, []byte(robotYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ---------- validatePort ----------

func TestValidatePort(t *testing.T) {
	cases := []struct {
		port int
		ok   bool
	}{
		{0, true},
		{1, true},
		{8080, true},
		{65535, true},
		{-1, false},
		{65536, false},
	}
	for _, tc := range cases {
		err := validatePort(tc.port)
		if (err == nil) != tc.ok {
			t.Errorf("validatePort(%d) = %v, want ok=%v", tc.port, err, tc.ok)
		}
	}
}

// ---------- loadConfig ----------

func TestLoadConfig_RejectsPathOutsideConfigs(t *testing.T) {
	for _, p := range []string{"robot.yaml", "../configs/robot.yaml", "configs/robot.json"} {
		if _, err := loadConfig(p); err == nil {
			t.Errorf("loadConfig(%q): expected error", p)
		}
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "robot.yaml")
	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfig_Valid(t *testing.T) {
	cfg, err := loadConfig(writeConfigs(t, goodYAML))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if len(cfg.Mechanisms) != 2 {
		t.Errorf("mechanisms = %d, want 2", len(cfg.Mechanisms))
	}
}

// ---------- check ----------

func TestCheckConfig_OK(t *testing.T) {
	var out bytes.Buffer
	if err := checkConfig(context.Background(), &out, writeConfigs(t, goodYAML)); err != nil {
		t.Fatalf("checkConfig: %v\n%s", err, out.String())
	}
	got := out.String()
	for _, want := range []string{
		"actuators: 1 motors, 1 servos",
		"mechanism: INTAKE (single) table=IntakeNT controls=1",
		"ok",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestCheckConfig_ReportsProblems(t *testing.T) {
	bad := goodYAML + `
bindings:
  - {function: warp_drive, controller: 0, button: a_button}
`
	var out bytes.Buffer
	err := checkConfig(context.Background(), &out, writeConfigs(t, bad))
	if err == nil {
		t.Fatal("expected error for bad binding")
	}
	if !strings.Contains(out.String(), "problem: binding \"warp_drive\"") {
		t.Errorf("output missing problem line:\n%s", out.String())
	}
}

// ---------- bindings ----------

func TestPrintBindings(t *testing.T) {
	var out bytes.Buffer
	if err := printBindings(context.Background(), &out, writeConfigs(t, goodYAML)); err != nil {
		t.Fatalf("printBindings: %v", err)
	}
	got := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n")[1:] {
		fields := strings.Fields(line)
		got[fields[0]] = strings.Join(fields[1:], " ")
	}
	want := map[string]string{
		"ARCADE_THROTTLE": "controller 0 LEFT_JOYSTICK_Y",
		"ARCADE_STEER":    "controller 0 RIGHT_JOYSTICK_X",
		"INTAKE":          "controller 0 RIGHT_BUMPER",
		"EXPEL":           "controller 0 LEFT_BUMPER",
		"ROTATE_ARM_UP":   "controller 0 Y_BUTTON",
		"ROTATE_ARM_DOWN": "controller 0 A_BUTTON",
		"RELEASE":         "controller 0 B_BUTTON",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("bindings mismatch (-want +got):\n%s", diff)
	}
}

// ---------- runs / plot ----------

func recordRun(t *testing.T, values []float64) (string, string) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mechgo.db")
	rec := telemetry.NewSQLiteRecorder(path)
	if err := rec.Init(ctx); err != nil {
		t.Fatal(err)
	}
	id, err := rec.StartRun(ctx, "bench")
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range values {
		rec.Log("ArmNT", []telemetry.Entry{{Key: "Position - Primary", Value: v}})
		rec.Tick()
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
	return path, id
}

func TestListRuns(t *testing.T) {
	path, id := recordRun(t, []float64{0, 10, 20})
	var out bytes.Buffer
	if err := listRuns(context.Background(), &out, path); err != nil {
		t.Fatalf("listRuns: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2:\n%s", len(lines), out.String())
	}
	fields := strings.Fields(lines[1])
	if fields[0] != id || fields[1] != "bench" || fields[len(fields)-1] != "3" {
		t.Errorf("unexpected run line %q", lines[1])
	}
}

func TestListRuns_MissingDatabase(t *testing.T) {
	var out bytes.Buffer
	if err := listRuns(context.Background(), &out, filepath.Join(t.TempDir(), "none.db")); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestPlotRun(t *testing.T) {
	path, id := recordRun(t, []float64{0, 10, 20, 30})
	var out bytes.Buffer
	if err := plotRun(context.Background(), &out, path, id, "ArmNT", "Position - Primary", 5); err != nil {
		t.Fatalf("plotRun: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "samples: 4") {
		t.Errorf("output missing sample count:\n%s", got)
	}
	if !strings.Contains(got, "ArmNT / Position - Primary") {
		t.Errorf("output missing caption:\n%s", got)
	}
}

func TestPlotRun_UnknownKey(t *testing.T) {
	path, id := recordRun(t, []float64{1})
	var out bytes.Buffer
	if err := plotRun(context.Background(), &out, path, id, "ArmNT", "nope", 5); err == nil {
		t.Fatal("expected error for unknown key")
	}
}
