package web

import (
	"encoding/json"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/cjeanneret/MechGo/internal/input"
	"github.com/cjeanneret/MechGo/internal/logic/mechanism"
	"github.com/cjeanneret/MechGo/internal/telemetry"
)

// maxGamepadBody bounds a POST /gamepad request.
const maxGamepadBody = 4 << 10

// MechanismInfo describes one mechanism for GET /config.
type MechanismInfo struct {
	Type        string `json:"type"`
	Kind        string `json:"kind"`
	Table       string `json:"table"`
	ControlFile string `json:"control_file,omitempty"`
}

// BindingInfo describes one function binding for GET /config.
type BindingInfo struct {
	Function string `json:"function"`
	Binding  string `json:"binding"`
}

// ConfigView is the body of GET /config.
type ConfigView struct {
	Mechanisms []MechanismInfo `json:"mechanisms"`
	Bindings   []BindingInfo   `json:"bindings"`
	WebPorts   []int           `json:"web_ports"`
}

// Deps are what the handlers read from the running robot.
type Deps struct {
	Broadcaster *Broadcaster
	Tables      *telemetry.Tables
	Registry    *mechanism.Registry
	Teleop      *input.Teleop
	WebPads     map[int]*input.WebGamepad
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Deps
	staticFS fs.FS
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(deps Deps, staticFS fs.FS) *Handlers {
	return &Handlers{Deps: deps, staticFS: staticFS}
}

// BuildConfigView summarises the mechanisms and bindings.
func BuildConfigView(reg *mechanism.Registry, t *input.Teleop, pads map[int]*input.WebGamepad) ConfigView {
	v := ConfigView{Mechanisms: []MechanismInfo{}, Bindings: []BindingInfo{}, WebPorts: []int{}}
	if reg != nil {
		for _, m := range reg.All() {
			v.Mechanisms = append(v.Mechanisms, MechanismInfo{
				Type:        m.GetType().String(),
				Kind:        m.Kind().String(),
				Table:       m.GetNetworkTableName(),
				ControlFile: m.GetControlFileName(),
			})
		}
	}
	if t != nil {
		for f, b := range t.Bindings() {
			v.Bindings = append(v.Bindings, BindingInfo{Function: input.FunctionID(f).String(), Binding: b.String()})
		}
	}
	for port := 0; port < input.MaxPorts; port++ {
		if _, ok := pads[port]; ok {
			v.WebPorts = append(v.WebPorts, port)
		}
	}
	return v
}

// HandleConfig returns the mechanisms and the function table as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BuildConfigView(h.Registry, h.Teleop, h.WebPads))
}

// HandleTelemetry returns the current value of every telemetry table.
func (h *Handlers) HandleTelemetry(w http.ResponseWriter, r *http.Request) {
	out := []TableEvent{}
	if h.Tables != nil {
		for _, t := range h.Tables.Snapshot(time.Time{}) {
			out = append(out, TableEvent{Table: t.Name, Values: t.Values})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGamepad handles POST /gamepad?port=N with an input.Report body.
func (h *Handlers) HandleGamepad(w http.ResponseWriter, r *http.Request) {
	port := 0
	if s := r.URL.Query().Get("port"); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "invalid port", http.StatusBadRequest)
			return
		}
		port = p
	}
	pad, ok := h.WebPads[port]
	if !ok {
		http.Error(w, "no web gamepad on port "+strconv.Itoa(port), http.StatusNotFound)
		return
	}

	var report input.Report
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGamepadBody))
	if err := dec.Decode(&report); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	unknown := pad.Apply(report)
	if unknown == nil {
		unknown = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"port": port, "unknown": unknown})
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("event: " + evt.Name + "\ndata: " + evt.Data + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
