package state

// Runner drives the current State of one mechanism: a State installed with
// Set is armed with Init on the next Step, before its first Run.
type Runner struct {
	current State
	armed   bool
	runs    int
}

// Set replaces the current State. The previous one is simply dropped.
func (r *Runner) Set(s State) {
	r.current = s
	r.armed = false
	r.runs = 0
}

// Current returns the installed State, nil if none.
func (r *Runner) Current() State { return r.current }

// Step runs one control cycle.
func (r *Runner) Step() {
	if r.current == nil {
		return
	}
	if !r.armed {
		r.current.Init()
		r.armed = true
	}
	r.current.Run()
	r.runs++
}

// AtTarget reports whether the current State has run at least once and
// reached its target. With no State installed there is nothing to wait for.
func (r *Runner) AtTarget() bool {
	if r.current == nil {
		return true
	}
	return r.runs > 0 && r.current.AtTarget()
}

// Runs returns how many cycles the current State has run.
func (r *Runner) Runs() int { return r.runs }
