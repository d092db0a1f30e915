// Package telemetry publishes live mechanism values to named tables.
package telemetry

import (
	"sort"
	"sync"
	"time"
)

// Entry is one named value written to a table.
type Entry struct {
	Key   string
	Value float64
}

// Sink receives a batch of entries for one table. Implementations must not
// retain the entries slice after Log returns.
type Sink interface {
	Log(table string, entries []Entry)
}

// Table holds the latest value of every key written to it.
type Table struct {
	Name    string
	Values  map[string]float64
	Updated time.Time
}

// Tables is the process-wide store of telemetry tables. Build one at startup
// and pass it to every mechanism.
type Tables struct {
	mu     sync.RWMutex
	tables map[string]*Table
	now    func() time.Time
}

// NewTables creates an empty store.
func NewTables() *Tables {
	return &Tables{
		tables: make(map[string]*Table),
		now:    time.Now,
	}
}

// Log stores entries in the named table, creating it on first use.
func (t *Tables) Log(table string, entries []Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tbl, ok := t.tables[table]
	if !ok {
		tbl = &Table{Name: table, Values: make(map[string]float64, len(entries))}
		t.tables[table] = tbl
	}
	for _, e := range entries {
		tbl.Values[e.Key] = e.Value
	}
	tbl.Updated = t.now()
}

// Get returns the latest value of key in table.
func (t *Tables) Get(table, key string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tbl, ok := t.tables[table]
	if !ok {
		return 0, false
	}
	v, ok := tbl.Values[key]
	return v, ok
}

// Names returns the table names in sorted order.
func (t *Tables) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.tables))
	for n := range t.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a deep copy of every table updated after since.
// A zero since returns all tables.
func (t *Tables) Snapshot(since time.Time) []Table {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Table
	for _, tbl := range t.tables {
		if !since.IsZero() && !tbl.Updated.After(since) {
			continue
		}
		cp := Table{Name: tbl.Name, Updated: tbl.Updated, Values: make(map[string]float64, len(tbl.Values))}
		for k, v := range tbl.Values {
			cp.Values[k] = v
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Multi fans one Log call out to several sinks in order.
type Multi []Sink

func (m Multi) Log(table string, entries []Entry) {
	for _, s := range m {
		if s != nil {
			s.Log(table, entries)
		}
	}
}

// Discard drops everything.
type Discard struct{}

func (Discard) Log(string, []Entry) {}
