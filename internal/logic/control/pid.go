package control

// PID is a discrete PIDF loop driven once per control cycle.
type PID struct {
	gains    Gains
	izone    float64
	peak     float64
	integral float64
	prevErr  float64
	first    bool
}

// NewPID builds a loop from a tuning record.
func NewPID(d *Data) *PID {
	p := &PID{first: true, peak: 1}
	if d != nil {
		p.gains = d.Gains()
		p.izone = d.IZone()
		p.peak = d.PeakOutput()
	}
	return p
}

// Compute returns the output for one step of dt seconds, clamped to the peak output.
func (p *PID) Compute(setpoint, measured, dt float64) float64 {
	err := setpoint - measured

	if p.izone > 0 && abs(err) > p.izone {
		p.integral = 0
	} else if dt > 0 {
		p.integral += err * dt
	}

	var deriv float64
	if !p.first && dt > 0 {
		deriv = (err - p.prevErr) / dt
	}
	p.prevErr = err
	p.first = false

	u := p.gains.F*setpoint + p.gains.P*err + p.gains.I*p.integral + p.gains.D*deriv
	return clamp(u, -p.peak, p.peak)
}

// Reset clears integral and derivative state.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
