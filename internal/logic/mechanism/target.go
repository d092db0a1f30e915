package mechanism

import "github.com/cjeanneret/MechGo/internal/logic/control"

// ApplyTarget switches m to the mode of td and moves it to the setpoint in
// the same call. A pair without constants selects percent output.
func ApplyTarget(m SingleActuator, td control.TargetData) {
	if td.Control != nil {
		m.SetControlConstants(td.Control.Slot(), td.Control)
	} else {
		m.SetControlMode(td.Mode())
	}
	m.UpdateTarget(td.Target)
}

// ApplyTargets is ApplyTarget for both sides of a dual mechanism.
func ApplyTargets(m DualActuator, primary, secondary control.TargetData) {
	if primary.Control != nil {
		m.SetControlConstants(primary.Control.Slot(), primary.Control)
	} else {
		m.SetControlMode(primary.Mode())
	}
	if secondary.Control != nil {
		m.SetSecondaryControlConstants(secondary.Control.Slot(), secondary.Control)
	} else {
		m.SetSecondaryControlMode(secondary.Mode())
	}
	m.UpdateTargets(primary.Target, secondary.Target)
}
