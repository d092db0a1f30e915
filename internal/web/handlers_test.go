package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cjeanneret/MechGo/internal/hw/actuator"
	"github.com/cjeanneret/MechGo/internal/input"
	"github.com/cjeanneret/MechGo/internal/logic/mechanism"
	"github.com/cjeanneret/MechGo/internal/telemetry"
)

func newTestHandlers(t *testing.T) (*Handlers, *input.WebGamepad) {
	t.Helper()
	tables := telemetry.NewTables()
	arena := actuator.NewArena()
	reg := mechanism.NewRegistry()
	if err := reg.Add(mechanism.NewIntake(arena, actuator.MotorHandle{}, tables)); err != nil {
		t.Fatal(err)
	}
	pad := input.NewWebGamepad(input.PadXBox, time.Minute)
	staticFS := fstest.MapFS{
		"index.html": {Data: []byte("<html><body>MechGo</body></html>")},
	}
	h := NewHandlers(Deps{
		Broadcaster: NewBroadcaster(),
		Tables:      tables,
		Registry:    reg,
		Teleop:      input.NewTeleop([]input.Gamepad{pad}),
		WebPads:     map[int]*input.WebGamepad{0: pad},
	}, staticFS)
	return h, pad
}

// ---------- HandleGamepad ----------

func TestHandleGamepad_AppliesReport(t *testing.T) {
	h, pad := newTestHandlers(t)
	body := `{"axes":{"LEFT_JOYSTICK_Y":0.5},"buttons":{"Y_BUTTON":true,"TURBO":true}}`
	req := httptest.NewRequest(http.MethodPost, "/gamepad?port=0", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleGamepad(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	var resp struct {
		Port    int      `json:"port"`
		Unknown []string `json:"unknown"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]string{"TURBO"}, resp.Unknown); diff != "" {
		t.Errorf("unknown mismatch (-want +got):\n%s", diff)
	}
	if !pad.RawButton(input.YButton) {
		t.Error("Y should be pressed")
	}
	if !h.Teleop.IsButtonPressed(input.RotateArmUp) {
		t.Error("ROTATE_ARM_UP should read through the teleop table")
	}
}

func TestHandleGamepad_Errors(t *testing.T) {
	h, _ := newTestHandlers(t)
	cases := []struct {
		name string
		url  string
		body string
		want int
	}{
		{"bad_port", "/gamepad?port=x", "{}", http.StatusBadRequest},
		{"no_pad", "/gamepad?port=3", "{}", http.StatusNotFound},
		{"invalid_json", "/gamepad", "{not json", http.StatusBadRequest},
		{"oversized", "/gamepad", `{"axes":{"` + strings.Repeat("a", maxGamepadBody) + `":1}}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.url, strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			h.HandleGamepad(w, req)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

// ---------- HandleConfig ----------

func TestHandleConfig(t *testing.T) {
	h, _ := newTestHandlers(t)
	w := httptest.NewRecorder()
	h.HandleConfig(w, httptest.NewRequest(http.MethodGet, "/config", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var v ConfigView
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []MechanismInfo{{Type: "INTAKE", Kind: "single", Table: "IntakeNT", ControlFile: "intake.yaml"}}
	if diff := cmp.Diff(want, v.Mechanisms); diff != "" {
		t.Errorf("mechanisms mismatch (-want +got):\n%s", diff)
	}
	if len(v.Bindings) != int(input.MaxFunctions) {
		t.Errorf("bindings = %d, want %d", len(v.Bindings), input.MaxFunctions)
	}
	if v.Bindings[input.Release].Binding != "controller 0 B_BUTTON" {
		t.Errorf("RELEASE binding = %q", v.Bindings[input.Release].Binding)
	}
	if diff := cmp.Diff([]int{0}, v.WebPorts); diff != "" {
		t.Errorf("web ports mismatch (-want +got):\n%s", diff)
	}
}

// ---------- HandleTelemetry ----------

func TestHandleTelemetry(t *testing.T) {
	h, _ := newTestHandlers(t)
	intake, _ := h.Registry.Single(mechanism.Intake)
	intake.UpdateTarget(0.5)

	w := httptest.NewRecorder()
	h.HandleTelemetry(w, httptest.NewRequest(http.MethodGet, "/telemetry", nil))

	var got []TableEvent
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []TableEvent{{Table: "IntakeNT", Values: map[string]float64{"Speed": 0, "Position": 0, "Target": 0.5}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("telemetry mismatch (-want +got):\n%s", diff)
	}
}

// ---------- HandleStatusStream ----------

func TestHandleStatusStream(t *testing.T) {
	h, _ := newTestHandlers(t)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleStatusStream))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	if line, _ := r.ReadString('\n'); line != ": connected\n" {
		t.Fatalf("first line = %q", line)
	}
	// Wait for the subscription before broadcasting.
	for h.Broadcaster.Clients() == 0 {
		time.Sleep(time.Millisecond)
	}
	h.Broadcaster.Broadcast("info", "arm at target")

	var lines []string
	for len(lines) < 2 {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatal(err)
		}
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if lines[0] != "event: status" {
		t.Errorf("event line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "data: ") || !strings.Contains(lines[1], "arm at target") {
		t.Errorf("data line = %q", lines[1])
	}
}

// ---------- ServeIndex ----------

func TestServeIndex(t *testing.T) {
	h, _ := newTestHandlers(t)
	w := httptest.NewRecorder()
	h.ServeIndex(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/html; charset=utf-8", ct)
	}
	if !strings.Contains(w.Body.String(), "<html>") {
		t.Error("body should contain HTML content")
	}
}

func TestServer_MuxRoutes(t *testing.T) {
	s, err := NewServer(":0", Deps{Tables: telemetry.NewTables()})
	if err != nil {
		t.Fatal(err)
	}
	mux := s.Mux()
	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/config", http.StatusOK},
		{http.MethodGet, "/telemetry", http.StatusOK},
		{http.MethodGet, "/static/app.js", http.StatusOK},
		{http.MethodPost, "/gamepad", http.StatusNotFound},
		{http.MethodGet, "/gamepad", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}")))
		if w.Code != tc.want {
			t.Errorf("%s %s = %d, want %d", tc.method, tc.path, w.Code, tc.want)
		}
	}
}
