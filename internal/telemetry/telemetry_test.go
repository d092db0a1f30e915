package telemetry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type recordingSink struct {
	tables []string
	n      int
}

func (s *recordingSink) Log(table string, entries []Entry) {
	s.tables = append(s.tables, table)
	s.n += len(entries)
}

func fixedClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}
}

func TestTables_LogAndGet(t *testing.T) {
	tbl := NewTables()
	tbl.Log("ArmNT", []Entry{{Key: "Speed - Primary", Value: 1.5}, {Key: "Target - Primary", Value: 90}})
	tbl.Log("ArmNT", []Entry{{Key: "Speed - Primary", Value: 2}})

	if v, ok := tbl.Get("ArmNT", "Speed - Primary"); !ok || v != 2 {
		t.Errorf("Get speed = %v, %v; want 2, true", v, ok)
	}
	if v, ok := tbl.Get("ArmNT", "Target - Primary"); !ok || v != 90 {
		t.Errorf("Get target = %v, %v; want 90, true", v, ok)
	}
	if _, ok := tbl.Get("IntakeNT", "Speed"); ok {
		t.Error("unknown table should miss")
	}
}

func TestTables_SnapshotSince(t *testing.T) {
	tbl := NewTables()
	tbl.now = fixedClock(time.Unix(100, 0))

	tbl.Log("IntakeNT", []Entry{{Key: "Speed", Value: 1}})
	mark := tbl.now()
	tbl.Log("ArmNT", []Entry{{Key: "Angle", Value: 45}})

	all := tbl.Snapshot(time.Time{})
	if diff := cmp.Diff([]string{"ArmNT", "IntakeNT"}, tbl.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
	if len(all) != 2 || all[0].Name != "ArmNT" {
		t.Fatalf("Snapshot(zero) = %+v", all)
	}

	recent := tbl.Snapshot(mark)
	if len(recent) != 1 || recent[0].Name != "ArmNT" {
		t.Fatalf("Snapshot(mark) = %+v, want only ArmNT", recent)
	}

	// the snapshot is a copy
	recent[0].Values["Angle"] = 0
	if v, _ := tbl.Get("ArmNT", "Angle"); v != 45 {
		t.Errorf("snapshot aliased the store: Angle = %v", v)
	}
}

func TestMulti_FansOutInOrder(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	Multi{a, nil, b, Discard{}}.Log("ShooterNT", []Entry{{Key: "Speed", Value: 1}, {Key: "Target", Value: 2}})
	if a.n != 2 || b.n != 2 {
		t.Errorf("entries a=%d b=%d, want 2 each", a.n, b.n)
	}
}

func TestSQLiteRecorder_RunsAndSeries(t *testing.T) {
	ctx := context.Background()
	rec := NewSQLiteRecorder(filepath.Join(t.TempDir(), "telemetry.db"))
	rec.now = fixedClock(time.Unix(1000, 0))
	if err := rec.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer rec.Close()

	// before StartRun nothing is buffered
	rec.Log("ArmNT", []Entry{{Key: "Angle", Value: 1}})
	if rec.Pending() != 0 {
		t.Fatalf("Pending before run = %d, want 0", rec.Pending())
	}

	first, err := rec.StartRun(ctx, "warmup")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	for _, v := range []float64{10, 20, 30} {
		rec.Log("ArmNT", []Entry{{Key: "Angle", Value: v}, {Key: "Target", Value: 30}})
		rec.Tick()
	}
	if rec.Pending() != 6 {
		t.Fatalf("Pending = %d, want 6", rec.Pending())
	}

	second, err := rec.StartRun(ctx, "match")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	rec.Log("ArmNT", []Entry{{Key: "Angle", Value: 5}})
	if err := rec.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	series, err := rec.Series(ctx, first, "ArmNT", "Angle")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if diff := cmp.Diff([]float64{10, 20, 30}, series); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}

	runs, err := rec.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	got := make([][2]any, len(runs))
	for i, r := range runs {
		got[i] = [2]any{r.ID, r.Samples}
	}
	want := [][2]any{{second, 1}, {first, 6}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteRecorder_RequiresInit(t *testing.T) {
	rec := NewSQLiteRecorder("")
	if err := rec.Init(context.Background()); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := rec.Runs(context.Background()); err == nil {
		t.Error("expected error before Init")
	}
}

func TestSQLiteRecorder_FailedFlushKeepsSamples(t *testing.T) {
	ctx := context.Background()
	rec := NewSQLiteRecorder(filepath.Join(t.TempDir(), "telemetry.db"))
	if err := rec.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	id, err := rec.StartRun(ctx, "bench")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	for _, v := range []float64{1, 2, 3} {
		rec.Log("IntakeNT", []Entry{{Key: "Speed", Value: v}})
		rec.Tick()
	}

	// without a database every write fails
	good := rec.db
	rec.db = nil
	if err := rec.Flush(ctx); err == nil {
		t.Fatal("expected flush error")
	}
	if rec.Pending() != 3 {
		t.Fatalf("Pending after failed flush = %d, want 3", rec.Pending())
	}

	rec.Log("IntakeNT", []Entry{{Key: "Speed", Value: 4}})
	rec.db = good
	if err := rec.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	series, err := rec.Series(ctx, id, "IntakeNT", "Speed")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{1, 2, 3, 4}, series); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSQLiteRecorder_BufferBound(t *testing.T) {
	ctx := context.Background()
	rec := NewSQLiteRecorder(filepath.Join(t.TempDir(), "telemetry.db"))
	rec.maxPending = 4
	if err := rec.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer rec.Close()
	if _, err := rec.StartRun(ctx, "bench"); err != nil {
		t.Fatal(err)
	}

	rec.Log("ArmNT", []Entry{{Key: "a"}, {Key: "b"}, {Key: "c"}, {Key: "d"}, {Key: "e"}, {Key: "f"}})
	if rec.Pending() != 4 || rec.Dropped() != 2 {
		t.Errorf("Pending = %d, Dropped = %d; want 4, 2", rec.Pending(), rec.Dropped())
	}
}

func TestSQLiteRecorder_RunFlushesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := NewSQLiteRecorder(filepath.Join(t.TempDir(), "telemetry.db"))
	if err := rec.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer rec.Close()
	if _, err := rec.StartRun(ctx, "bench"); err != nil {
		t.Fatal(err)
	}
	rec.Log("ArmNT", []Entry{{Key: "Angle", Value: 10}})

	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx, time.Hour) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if rec.Pending() != 0 {
		t.Errorf("Pending after Run = %d, want 0", rec.Pending())
	}
}
