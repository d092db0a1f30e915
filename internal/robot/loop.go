package robot

import (
	"context"
	"time"

	"github.com/cjeanneret/MechGo/internal/debug"
	"github.com/cjeanneret/MechGo/internal/input"
	"github.com/cjeanneret/MechGo/internal/logic/mechanism"
	"github.com/cjeanneret/MechGo/internal/logic/state"
	"github.com/cjeanneret/MechGo/internal/telemetry"
)

// Telemetry table and keys of the operator drive inputs. Chassis control is
// out of scope; the values are only published.
const (
	TeleopTable = "TeleopNT"
	KeyThrottle = "Throttle"
	KeySteer    = "Steer"
)

type command int

const (
	cmdNone command = iota
	cmdIntake
	cmdExpel
	cmdStop
	cmdArmUp
	cmdArmDown
	cmdRelease
	cmdHold
)

// Loop maps operator input to mechanism states once per period.
type Loop struct {
	robot  *Robot
	period time.Duration

	intake  state.Runner
	arm     state.Runner
	release state.Runner

	intakeCmd  command
	armCmd     command
	releaseCmd command
	armDone    bool

	cycles int
	drive  [2]telemetry.Entry
}

// NewLoop creates the loop for r.
func NewLoop(r *Robot) *Loop {
	l := &Loop{robot: r, period: r.Config.Period()}
	l.drive[0].Key = KeyThrottle
	l.drive[1].Key = KeySteer
	return l
}

// Cycles returns the number of completed cycles.
func (l *Loop) Cycles() int { return l.cycles }

// Run steps the loop every period until ctx is cancelled. Steppers are
// enabled for the duration of the run.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.robot.EnableMotors(); err != nil {
		debug.Error(err)
	}
	defer func() {
		if err := l.robot.DisableMotors(); err != nil {
			debug.Error(err)
		}
	}()

	debug.Section("Control loop")
	debug.Value("Period", l.period)

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			debug.Info("Control loop stopped after %d cycles", l.cycles)
			return nil
		case <-ticker.C:
			l.Step()
		}
	}
}

// Step runs one control cycle: read input, pick states, run them. It never
// touches the disk: recorded samples are written by Recorder.Run.
func (l *Loop) Step() {
	r := l.robot
	t := r.Teleop

	l.drive[0].Value = t.GetAxisValue(input.ArcadeThrottle)
	l.drive[1].Value = t.GetAxisValue(input.ArcadeSteer)
	r.Sink.Log(TeleopTable, l.drive[:])

	l.selectIntake(t)
	l.selectArm(t)
	l.selectRelease(t)

	l.intake.Step()
	l.arm.Step()
	l.release.Step()

	if l.arm.Current() != nil {
		done := l.arm.AtTarget()
		if done && !l.armDone {
			debug.Live("Arm at target")
		}
		l.armDone = done
	}

	l.cycles++
	if r.Recorder != nil {
		r.Recorder.Tick()
	}
}

func (l *Loop) selectIntake(t *input.Teleop) {
	m, ok := l.robot.Registry.Single(mechanism.Intake)
	if !ok {
		return
	}
	cmd := cmdStop
	switch {
	case t.IsButtonPressed(input.Intake):
		cmd = cmdIntake
	case t.IsButtonPressed(input.Expel):
		cmd = cmdExpel
	}
	if cmd == l.intakeCmd {
		return
	}
	l.intakeCmd = cmd

	tc := l.robot.Config.Teleop
	speed := 0.0
	switch cmd {
	case cmdIntake:
		speed = tc.IntakeSpeed
	case cmdExpel:
		speed = tc.ExpelSpeed
	}
	cd := l.robot.Control(mechanism.Intake, tc.IntakeControl)
	debug.Live("Intake -> %.2f", speed)
	l.intake.Set(state.NewSingleMotorState(m, cd, speed))
}

// selectArm only replaces the arm state on a new request: with no button
// held the last state keeps holding its target.
func (l *Loop) selectArm(t *input.Teleop) {
	m, ok := l.robot.Registry.Dual(mechanism.Arm)
	if !ok {
		return
	}
	cmd := cmdNone
	switch {
	case t.IsButtonPressed(input.RotateArmUp):
		cmd = cmdArmUp
	case t.IsButtonPressed(input.RotateArmDown):
		cmd = cmdArmDown
	}
	if cmd == cmdNone || cmd == l.armCmd {
		return
	}
	l.armCmd = cmd
	l.armDone = false

	tc := l.robot.Config.Teleop
	target := tc.ArmDown
	if cmd == cmdArmUp {
		target = tc.ArmUp
	}
	c1 := l.robot.Control(mechanism.Arm, tc.ArmControl)
	c2 := l.robot.Control(mechanism.Arm, tc.ArmControl2)
	if c2 == nil {
		c2 = c1
	}
	debug.Live("Arm -> %.1f / %.1f", target[0], target[1])
	l.arm.Set(state.NewDualMotorState(m, c1, c2, target[0], target[1]))
}

func (l *Loop) selectRelease(t *input.Teleop) {
	m, ok := l.robot.Registry.Positional(mechanism.BallRelease)
	if !ok {
		return
	}
	cmd := cmdHold
	if t.IsButtonPressed(input.Release) {
		cmd = cmdRelease
	}
	if cmd == l.releaseCmd {
		return
	}
	l.releaseCmd = cmd

	angle := l.robot.Config.Teleop.HoldAngle
	if cmd == cmdRelease {
		angle = l.robot.Config.Teleop.ReleaseAngle
	}
	debug.Live("Ball release -> %.1f deg", angle)
	l.release.Set(state.NewServoState(m, angle))
}
