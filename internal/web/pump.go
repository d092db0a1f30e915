package web

import (
	"context"
	"time"

	"github.com/cjeanneret/MechGo/internal/telemetry"
)

// TelemetryPump polls the telemetry tables and publishes the ones that
// changed. The control loop never waits on a web client.
type TelemetryPump struct {
	tables   *telemetry.Tables
	b        *Broadcaster
	interval time.Duration
	last     time.Time
}

// NewTelemetryPump creates a pump; interval <= 0 means 100ms.
func NewTelemetryPump(tables *telemetry.Tables, b *Broadcaster, interval time.Duration) *TelemetryPump {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &TelemetryPump{tables: tables, b: b, interval: interval}
}

// Poll publishes the tables updated since the previous poll.
func (p *TelemetryPump) Poll() int {
	snap := p.tables.Snapshot(p.last)
	for _, t := range snap {
		if t.Updated.After(p.last) {
			p.last = t.Updated
		}
	}
	if p.b.Clients() > 0 {
		p.b.PublishTables(snap)
	}
	return len(snap)
}

// Run polls until ctx is cancelled.
func (p *TelemetryPump) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll()
		}
	}
}
