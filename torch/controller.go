package torch

import "plasmacore/core"

// Init configures pins and establishes the ADC averaging filter length.
func (c *Controller) Init() {
	defer core.EnterCritical()()

	c.gpio.ConfigureOutput(c.dirPin)
	c.gpio.ConfigureOutput(c.stepPin)
	c.gpio.ConfigureOutput(c.arcStartPin)

	for i := range c.readings {
		c.readings[i] = 0
	}
	c.readIndex = 0
	c.total = 0
	c.torchOn = false
}

// FireTorch engages the arc-start contact.
func (c *Controller) FireTorch() {
	defer core.EnterCritical()()
	c.gpio.SetPin(c.arcStartPin, true)
	c.torchOn = true
	core.RecordTiming(core.EvtTorchFire, 2, core.GetTime(), 1, 0)
}

// ExtinguishTorch releases the arc-start contact.
func (c *Controller) ExtinguishTorch() {
	defer core.EnterCritical()()
	c.gpio.SetPin(c.arcStartPin, false)
	c.torchOn = false
	core.RecordTiming(core.EvtTorchFire, 2, core.GetTime(), 0, 0)
}

// GetTorchState reports whether the arc-start contact is currently
// engaged.
func (c *Controller) GetTorchState() bool {
	defer core.EnterCritical()()
	return c.torchOn
}

// GetPosition returns the current Z position in user units.
func (c *Controller) GetPosition() float64 {
	defer core.EnterCritical()()
	return float64(c.currentPosition) / c.cfg.Z.StepScale
}

// CurrentStepKind reports the Kind of the scripted step presently
// executing (or about to execute), and whether any sequence is active at
// all. Used by the sync package to decide which "abort mid-pierce" chain
// is safe to switch to.
func (c *Controller) CurrentStepKind() (StepKind, bool) {
	defer core.EnterCritical()()
	if c.seqIdx >= len(c.seq) {
		return 0, false
	}
	return c.seq[c.seqIdx].Kind, true
}

// MoveZIncremental commands a non-blocking incremental Z move. condition
// and onComplete may be nil; if condition is non-nil it is checked every
// MoveTick and, when it returns true, ends the move early (used by the
// probe step). onComplete runs exactly once, on whichever of condition-met
// or steps-exhausted happens first.
func (c *Controller) MoveZIncremental(distance, feedrate float64, condition func() bool, onComplete func()) {
	defer core.EnterCritical()()
	c.moveZIncrementalLocked(distance, feedrate, condition, onComplete)
}

func (c *Controller) moveZIncrementalLocked(distance, feedrate float64, condition func() bool, onComplete func()) {
	steps := distance * c.cfg.Z.StepScale
	if steps < 0 {
		steps = -steps
	}
	c.stepsToGo = int64(steps)

	dir := int64(1)
	if distance < 0 {
		dir = -1
	}
	if c.cfg.Z.InvertDir {
		dir = -dir
	}
	c.stepDir = dir

	c.feedDelayUs = cycleDelayFromFeedrate(feedrate, c.cfg.Z.StepScale)
	c.condition = condition
	c.onComplete = onComplete
	c.run = true
}

// cycleDelayFromFeedrate converts a feedrate (user units/sec) into the
// per-step microsecond delay at the given step scale.
func cycleDelayFromFeedrate(feedrate, stepScale float64) uint32 {
	stepsPerSec := feedrate * stepScale
	if stepsPerSec <= 0 {
		return 1000000
	}
	return uint32(1000000.0 / stepsPerSec)
}

// WaitUntil arms a callback to fire once the monotonic millisecond clock
// passes ts. Does not spin.
func (c *Controller) WaitUntil(ts uint32, onComplete func()) {
	defer core.EnterCritical()()
	c.waitUntilTs = ts
	c.waitCallback = onComplete
	c.waitUntilSet = true
	core.RecordTiming(core.EvtWaitUntil, 2, core.GetTime(), ts, 0)
}

// Cancel clears any in-progress move, armed wait_until, and the running
// scripted sequence.
func (c *Controller) Cancel() {
	defer core.EnterCritical()()
	c.cancelLocked()
}

func (c *Controller) cancelLocked() {
	c.stepsToGo = 0
	c.run = false
	c.condition = nil
	c.onComplete = nil
	c.waitUntilSet = false
	c.waitCallback = nil
	c.seq = nil
	c.seqIdx = 0
}

// RunSequence installs a scripted sequence to execute one instruction at
// a time from subsequent MoveTick calls. Replaces any sequence already
// running.
func (c *Controller) RunSequence(steps []Step) {
	defer core.EnterCritical()()
	c.cancelLocked()
	c.seq = steps
	c.seqIdx = 0
}

// SkipToFinish abandons the remaining scripted steps and runs straight to
// the sequence's StepFinish instruction (if any), invoking its callback.
// The sync package's AbortCut does not call it; it installs its own
// retract chains through RunSequence instead.
func (c *Controller) SkipToFinish() {
	defer core.EnterCritical()()
	for _, step := range c.seq {
		if step.Kind == StepFinish {
			c.cancelLocked()
			if step.Finish != nil {
				step.Finish()
			}
			return
		}
	}
	c.cancelLocked()
}

func (c *Controller) pulseZLocked(dir int64) {
	level := dir > 0
	c.gpio.SetPin(c.dirPin, level)
	c.gpio.DelayMicroseconds(20)
	c.gpio.SetPin(c.stepPin, false)
	c.gpio.DelayMicroseconds(20)
	c.gpio.SetPin(c.stepPin, true)
	c.currentPosition += dir
}

// Tick samples arc voltage, updates the running average, and — when
// enabled, the machine is moving faster than CompVelocity, the torch is
// on, and no scripted Z move is already in progress — issues a one-step
// ATHC nudge toward the voltage setpoint. machineSpeed is the planner's
// current cartesian feedrate in user units/sec (threaded explicitly
// rather than read off a shared global, per §9's "explicit owned
// instances" resolution).
func (c *Controller) Tick(machineSpeed float64) {
	defer core.EnterCritical()()

	voltage := c.sampleVoltageLocked()

	if !c.cfg.Enabled || machineSpeed <= c.cfg.CompVelocity || !c.torchOn || c.run {
		return
	}

	delta := voltage - c.cfg.SetVoltage
	if delta < 0 {
		delta = -delta
	}
	if delta <= c.cfg.VoltageTolerance {
		return
	}

	dir := int64(1) // too close (low voltage) -> raise torch
	if voltage > c.cfg.SetVoltage {
		dir = -1 // too far (high voltage) -> lower torch
	}
	if c.cfg.Z.InvertDir {
		dir = -dir
	}
	c.pulseZLocked(dir)
}

func (c *Controller) sampleVoltageLocked() float64 {
	raw, _ := c.analog.ReadAnalog(c.voltagePin)

	c.total -= float64(c.readings[c.readIndex])
	c.readings[c.readIndex] = int(raw)
	c.total += float64(raw)
	c.readIndex = (c.readIndex + 1) % len(c.readings)

	average := c.total / float64(len(c.readings))
	return mapDouble(average, float64(c.cfg.ADCAtZero), float64(c.cfg.ADCAtOneHundred), 0, 100)
}

func mapDouble(x, inMin, inMax, outMin, outMax float64) float64 {
	if inMax == inMin {
		return outMin
	}
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

// MoveTick is the periodic callback invoked from the same 1ms timer
// context as Planner.MotionTick, immediately after it.
func (c *Controller) MoveTick() {
	defer core.EnterCritical()()

	if c.run {
		c.tickRunningMoveLocked()
		return
	}

	if c.waitUntilSet {
		if int32(core.Millis()-c.waitUntilTs) >= 0 {
			c.waitUntilSet = false
			cb := c.waitCallback
			c.waitCallback = nil
			if cb != nil {
				cb()
			}
		}
		return
	}

	c.advanceSequenceLocked()
}

func (c *Controller) tickRunningMoveLocked() {
	if c.condition != nil && c.condition() {
		c.finishMoveLocked()
		return
	}

	now := core.GetTime()
	if uint32(now-c.feedTimestamp) <= c.feedDelayUs {
		return
	}
	c.feedTimestamp = now

	c.pulseZLocked(c.stepDir)
	c.stepsToGo--
	if c.stepsToGo <= 0 {
		c.finishMoveLocked()
	}
}

func (c *Controller) finishMoveLocked() {
	c.run = false
	c.condition = nil
	cb := c.onComplete
	c.onComplete = nil
	if cb != nil {
		cb()
	}
}

// advanceSequenceLocked executes scripted steps until one of them needs
// ticks to complete (a move, a dwell) or the sequence ends.
func (c *Controller) advanceSequenceLocked() {
	for c.seqIdx < len(c.seq) {
		step := c.seq[c.seqIdx]

		switch step.Kind {
		case StepFire:
			c.gpio.SetPin(c.arcStartPin, true)
			c.torchOn = true
			core.RecordTiming(core.EvtTorchFire, 2, core.GetTime(), 1, 0)
			c.seqIdx++
			core.RecordTiming(core.EvtSyncChain, 0, core.GetTime(), uint32(c.seqIdx), 0)
			continue

		case StepExtinguish:
			c.gpio.SetPin(c.arcStartPin, false)
			c.torchOn = false
			core.RecordTiming(core.EvtTorchFire, 2, core.GetTime(), 0, 0)
			c.seqIdx++
			core.RecordTiming(core.EvtSyncChain, 0, core.GetTime(), uint32(c.seqIdx), 0)
			continue

		case StepDwell:
			deadline := core.Millis() + step.DwellMs
			c.seqIdx++
			core.RecordTiming(core.EvtSyncChain, 0, core.GetTime(), uint32(c.seqIdx), 0)
			c.waitUntilTs = deadline
			c.waitCallback = nil
			c.waitUntilSet = true
			return

		case StepProbe, StepRetract, StepMove:
			nextIdx := c.seqIdx + 1
			c.moveZIncrementalLocked(step.DeltaZ, step.Feed, step.Cond, func() {
				c.seqIdx = nextIdx
				core.RecordTiming(core.EvtSyncChain, 0, core.GetTime(), uint32(nextIdx), 0)
			})
			return

		case StepFinish:
			finish := step.Finish
			c.seq = nil
			c.seqIdx = 0
			if finish != nil {
				finish()
			}
			return

		default:
			c.seqIdx++
		}
	}
}
