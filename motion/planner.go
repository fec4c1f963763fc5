package motion

import (
	"math"

	"plasmacore/core"
)

// AxisParams is the subset of an axis's configuration the planner needs:
// step scale, minimum (jerk) velocity and acceleration. It mirrors
// config.AxisConfig without importing the config package, the same
// separation motion/stepper.go draws for pin assignment.
type AxisParams struct {
	StepScale float64
	FeedJerk  float64
	FeedAccel float64
}

// PlannerConfig is everything Planner needs to convert user-unit targets
// to steps and run the velocity ramps.
type PlannerConfig struct {
	X, Y             AxisParams
	MinFeedRate      float64
	FeedRampInterval uint32 // ms between ramp samples (FEED_RAMP_UPDATE_INTERVAL)
}

// CutStart is the data a pierce-starting move carries for the Motion Sync
// "start of cut" chain — populated by the producer from the G-code pierce
// command before the move is pushed.
type CutStart struct {
	PierceHeight, PierceDelay, ClearanceHeight, CutHeight float64
}

// CutStartFunc is invoked when the step emitter loads a move carrying a
// non-nil Cut, in place of stepping it — it is the planner's hook into the
// Motion Sync package, kept as a plain func to avoid an import cycle
// (motion has no dependency on sync; sync depends on motion).
type CutStartFunc func(cut CutStart)

// AbortCutFunc is invoked when Abort/SoftAbort lands while a Motion Sync
// chain is in flight (awaitingSync) — it is the planner's hook to make
// that chain unwind safely instead of leaving the step emitter blocked on
// a SyncFinished that will never come. Kept as a plain func for the same
// reason as CutStartFunc.
type AbortCutFunc func()

// Planner is the real-time core: it owns the move queue, the current
// move, Bresenham stepping state and the trapezoidal velocity ramp, and
// drives a Stepper to emit pulses. Every exported method that touches
// state shared with the tick takes core.EnterCritical() itself, MotionTick
// included, so producer calls and the timer-context tick are serialized
// by that same critical section.
type Planner struct {
	cfg     PlannerConfig
	queue   *Queue
	stepper *Stepper

	currentMove Move
	hasMove     bool

	currentPosition Vector2I // steps
	targetPosition  Vector2I // steps, mirrors currentMove.Target

	lastPushedType MoveType

	// Bresenham state.
	dx, dy     int64
	sx, sy     int64
	err        int64
	xStg, yStg int64

	velX, velY float64 // current_velocity, user units/sec

	run              bool
	pendingFeedhold  bool
	feedholdActive   bool
	pendingSoftAbort bool

	feedDelayUs   uint32 // _Feedrate_delay, microseconds
	feedTimestamp uint32 // core.GetTime() (micros) of last step emitter event
	rampTimestamp uint32 // core.Millis() of last ramp sample

	awaitingSync bool
	onStartCut   CutStartFunc
	onAbortCut   AbortCutFunc
	pendingCut   *CutStart
}

// NewPlanner returns a Planner driving moves out of queue through stepper.
func NewPlanner(cfg PlannerConfig, queue *Queue, stepper *Stepper) *Planner {
	return &Planner{cfg: cfg, queue: queue, stepper: stepper}
}

// SetSyncHooks installs the Motion Sync "start of cut" callback invoked
// when a move carrying CutStart data is loaded as the current move, and
// the "abort in progress" callback invoked when Abort/SoftAbort lands
// while such a chain is running.
func (p *Planner) SetSyncHooks(onStartCut CutStartFunc, onAbortCut AbortCutFunc) {
	p.onStartCut = onStartCut
	p.onAbortCut = onAbortCut
}

// Init zeroes all state and reports success — the timer installation this
// mirrors (motion_timer.begin in the original) always succeeds on a Go
// host/tinygo ticker, but the bool return is kept per the external
// contract so a caller that gets false must not start motion.
func (p *Planner) Init() bool {
	defer core.EnterCritical()()

	p.currentMove = Move{}
	p.hasMove = false
	p.currentPosition = Vector2I{}
	p.targetPosition = Vector2I{}
	p.lastPushedType = Rapid

	p.dx, p.dy, p.sx, p.sy, p.err, p.xStg, p.yStg = 0, 0, 0, 0, 0, 0, 0
	p.velX, p.velY = 0, 0

	p.run = true
	p.pendingFeedhold = false
	p.feedholdActive = false
	p.pendingSoftAbort = false
	p.awaitingSync = false
	p.pendingCut = nil

	p.feedDelayUs = 500000
	p.feedTimestamp = 0
	p.rampTimestamp = 0

	return true
}

func dominant(dxAbs, dyAbs int64, x, y AxisParams) (accel, jerk, scale float64, axis uint8) {
	if dyAbs > dxAbs {
		return y.FeedAccel, y.FeedJerk, y.StepScale, 1
	}
	return x.FeedAccel, x.FeedJerk, x.StepScale, 0
}

// PushTarget enqueues a move to target (user units, F in units/min).
// Returns false if the queue is full; the caller is expected to retry.
func (p *Planner) PushTarget(target Vector3F, moveType MoveType) bool {
	defer core.EnterCritical()()

	txSteps := int64(math.Round(target.X * p.cfg.X.StepScale))
	tySteps := int64(math.Round(target.Y * p.cfg.Y.StepScale))
	fUnitsPerSec := target.F / 60.0

	// Mirrors get_last_moves_target: queue-tail if anything is queued,
	// otherwise the currently loaded move's target — computed fresh here
	// rather than cached, so an Abort() that clears the queue is picked up
	// on the very next PushTarget instead of measuring from a stale,
	// already-discarded target.
	lastX, lastY := p.currentMove.Target.X, p.currentMove.Target.Y
	if last, ok := p.queue.peekTailLocked(); ok {
		lastX, lastY = last.Target.X, last.Target.Y
	}
	dxAbs := abs64(txSteps - lastX)
	dyAbs := abs64(tySteps - lastY)

	accel, jerk, scale, _ := dominant(dxAbs, dyAbs, p.cfg.X, p.cfg.Y)
	domDist := float64(dxAbs)
	if dyAbs > dxAbs {
		domDist = float64(dyAbs)
	}
	domDist /= scale

	peak := FeedFromDistance(accel, domDist/2)
	if fUnitsPerSec <= 0 {
		fUnitsPerSec = jerk
	}
	if peak > fUnitsPerSec {
		peak = fUnitsPerSec
	}

	marker := AccelMarker(accel, p.cfg.MinFeedRate, peak)

	move := Move{
		Type:          moveType,
		AccelMarker:   marker,
		DeccelMarker:  marker,
		EntryVelocity: p.cfg.MinFeedRate,
		ExitVelocity:  p.cfg.MinFeedRate,
	}
	move.Target.X = txSteps
	move.Target.Y = tySteps
	move.Target.F = ToFixedFeed(peak)

	if moveType == Line && p.lastPushedType == Rapid && p.pendingCut != nil {
		cut := *p.pendingCut
		move.Cut = &cut
		p.pendingCut = nil
	}

	if !p.queue.pushLocked(move) {
		return false
	}

	p.lastPushedType = moveType

	if !p.run {
		// Mirrors the original's motion_set_feedrate(entry_velocity) call
		// here. Before any move has been loaded dx==dy==0 and it is a
		// no-op; after an earlier move it primes the feed delay from that
		// move's Bresenham state until the step emitter loads this move.
		p.setFeedRateLocked(move.EntryVelocity)
	}
	if !p.feedholdActive {
		p.run = true
	}

	return true
}

// ArmCutStart stashes the Motion Sync pierce parameters to attach to the
// next LINE move pushed immediately after a RAPID move — the producer
// calls this once, right before pushing that move.
func (p *Planner) ArmCutStart(cut CutStart) {
	defer core.EnterCritical()()
	c := cut
	p.pendingCut = &c
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// GetLastMovesTarget returns the last-enqueued move's target in user
// units, or the current move's target if the queue is empty. F is
// returned in units/min even though X/Y are user units — the external
// boundary convention the upstream G-code layer relies on to accumulate
// incremental moves (§9: "preserve this convention at the boundary").
func (p *Planner) GetLastMovesTarget() Vector3F {
	defer core.EnterCritical()()

	if last, ok := p.queue.peekTailLocked(); ok {
		return Vector3F{
			X: float64(last.Target.X) / p.cfg.X.StepScale,
			Y: float64(last.Target.Y) / p.cfg.Y.StepScale,
			F: FromFixedFeed(last.Target.F) * 60,
		}
	}
	return Vector3F{
		X: float64(p.currentMove.Target.X) / p.cfg.X.StepScale,
		Y: float64(p.currentMove.Target.Y) / p.cfg.Y.StepScale,
		F: FromFixedFeed(p.currentMove.Target.F) * 60,
	}
}

// GetCurrentPosition returns the currently executed position; F is the
// magnitude of current_velocity in units/min.
func (p *Planner) GetCurrentPosition() Vector3F {
	defer core.EnterCritical()()
	return Vector3F{
		X: float64(p.currentPosition.X) / p.cfg.X.StepScale,
		Y: float64(p.currentPosition.Y) / p.cfg.Y.StepScale,
		F: math.Hypot(p.velX, p.velY) * 60,
	}
}

// Feedhold requests a decelerate-to-stop. Idempotent and a no-op while
// idle (run == false).
func (p *Planner) Feedhold() {
	defer core.EnterCritical()()
	p.feedholdLocked()
}

func (p *Planner) feedholdLocked() {
	if p.run {
		p.pendingFeedhold = true
	}
}

// Run clears feed-hold state and resumes motion at the current move's
// original deceleration profile.
func (p *Planner) Run() {
	defer core.EnterCritical()()
	p.currentMove.DeccelMarker = p.currentMove.AccelMarker
	p.run = true
	p.pendingFeedhold = false
	p.feedholdActive = false
}

// SoftAbort requests a feed-hold deceleration to stop, after which the
// tick drains the queue and returns to idle. If a pierce chain is
// currently running, it is unwound to a safe retracted position first
// (the deceleration itself still applies to whatever X/Y motion remains
// queued once the chain lets the step emitter resume).
func (p *Planner) SoftAbort() {
	defer core.EnterCritical()()
	if p.awaitingSync && p.onAbortCut != nil {
		p.onAbortCut()
	}
	p.pendingSoftAbort = true
	p.feedholdLocked()
}

// Abort immediately clears the queue and zeroes Bresenham state. If a
// pierce chain is running, it is unwound to a safe retracted position —
// the queue clear takes effect immediately, but the step emitter stays
// parked until that chain's SyncFinished lands, since the torch must
// never be abandoned mid-probe.
func (p *Planner) Abort() {
	defer core.EnterCritical()()
	if p.awaitingSync && p.onAbortCut != nil {
		p.onAbortCut()
	}
	p.abortLocked()
}

func (p *Planner) abortLocked() {
	p.queue.clearLocked()
	p.dx, p.sx = 0, 0
	p.dy, p.sy = 0, 0
	p.err = 0
	p.xStg = 0
	p.yStg = 0
	p.run = true
	p.pendingFeedhold = false
	p.feedholdActive = false
	p.pendingSoftAbort = false
}

// SyncFinished resumes planner ticking after an out-of-band Motion Sync
// chain (pierce/torch sequence) completes.
func (p *Planner) SyncFinished() {
	defer core.EnterCritical()()
	p.awaitingSync = false
}

// setFeedRateLocked mirrors motion_set_feedrate: recompute feed_delay and
// current_velocity for the active Bresenham move at the given feedrate.
// No-op if dx==dy==0 (no move loaded, or a degenerate zero-length move).
// Caller must already hold the critical section.
func (p *Planner) setFeedRateLocked(feed float64) {
	if p.dx == 0 && p.dy == 0 {
		return
	}
	xDist := float64(p.dx) / p.cfg.X.StepScale
	yDist := float64(p.dy) / p.cfg.Y.StepScale

	if feed == 0 {
		if xDist > yDist {
			feed = p.cfg.X.FeedJerk
		} else {
			feed = p.cfg.Y.FeedJerk
		}
	}

	dist := math.Hypot(xDist, yDist)
	durationSec := dist / feed
	cycles := p.dx
	if p.dy > cycles {
		cycles = p.dy
	}
	if cycles == 0 {
		return
	}

	p.feedDelayUs = uint32(durationSec * 1e6 / float64(cycles))
	p.velX = xDist / durationSec
	p.velY = yDist / durationSec
}

// loadNextMoveLocked pulls the next Move from the queue into current_move
// and recomputes Bresenham state from its target. Caller must hold the
// critical section.
func (p *Planner) loadNextMoveLocked() {
	next, ok := p.queue.pullLocked()
	if !ok {
		p.velX, p.velY = 0, 0
		p.run = false
		return
	}
	p.currentMove = next
	p.hasMove = true

	p.targetPosition = Vector2I{X: next.Target.X, Y: next.Target.Y}
	p.dx = abs64(p.targetPosition.X - p.currentPosition.X)
	p.sx = signOf(p.targetPosition.X - p.currentPosition.X)
	p.dy = abs64(p.targetPosition.Y - p.currentPosition.Y)
	p.sy = signOf(p.targetPosition.Y - p.currentPosition.Y)
	if p.dx > p.dy {
		p.err = p.dx / 2
	} else {
		p.err = -p.dy / 2
	}
	p.xStg = p.dx
	p.yStg = p.dy

	core.RecordTiming(core.EvtLoadMove, 0, core.GetTime(), uint32(p.dx), uint32(p.dy))

	if next.Cut != nil && p.onStartCut != nil {
		p.awaitingSync = true
		p.onStartCut(*next.Cut)
		return
	}

	p.planContinuousMotionLocked()
}

func signOf(v int64) int64 {
	if v < 0 {
		return -1
	}
	return 1
}

// planContinuousMotionLocked is the adjacent-pair continuous-motion pass
// (§4.C/§9): for the newly loaded current move and the moves still
// sitting in the queue, compute each segment's polar angle, map the angle
// of change between consecutive segments onto an exit/entry velocity
// between the previous peak and the dominant axis's jerk, and recompute
// the affected accel/deccel markers. This replaces the original's stub
// (motion_plan_moves_for_continuous_motion) with a working pass modeled
// on its retired *_junk implementation.
func (p *Planner) planContinuousMotionLocked() {
	n := p.queue.lenLocked()
	if n == 0 {
		return
	}

	// Segment -1 is the currently-executing move: its own direction of
	// travel is well-defined (currentPosition -> currentMove.Target), so
	// unlike the original's "360 sentinel" placeholder for "no prior
	// segment", the very first pair below compares two real angles.
	prevTarget := p.currentPosition
	prevMoveIdx := -1 // -1 means "current move"
	lastAngle := vectorAngleDegrees(p.currentPosition, p.targetPosition)

	for i := 0; i <= n; i++ {
		var thisTarget Vector2I
		var thisIdx int
		if i == 0 {
			thisTarget = p.targetPosition
			thisIdx = -1
		} else {
			mv, ok := p.queue.peekLocked(i - 1)
			if !ok {
				break
			}
			thisTarget = Vector2I{X: mv.Target.X, Y: mv.Target.Y}
			thisIdx = i - 1
		}

		angle := vectorAngleDegrees(prevTarget, thisTarget)

		if i > 0 { // i==0 just records segment -1's own angle; no pair yet
			angleOfChange := math.Abs(lastAngle - angle)
			if angleOfChange > 180 {
				angleOfChange = 180
			}

			dxAbs := abs64(thisTarget.X - prevTarget.X)
			dyAbs := abs64(thisTarget.Y - prevTarget.Y)
			accel, jerk, _, _ := dominant(dxAbs, dyAbs, p.cfg.X, p.cfg.Y)

			prevMove := p.currentMoveRefLocked(prevMoveIdx)

			peakFromF := FromFixedFeed(prevMove.Target.F)
			exitVel := mapRange(angleOfChange, 0, 180, peakFromF, jerk)
			if exitVel < jerk {
				exitVel = jerk
			}

			prevMove.ExitVelocity = exitVel
			prevMove.DeccelMarker = AccelMarker(accel, p.cfg.MinFeedRate, peakFromF-exitVel)
			p.setMoveRefLocked(prevMoveIdx, prevMove)

			thisMove := p.currentMoveRefLocked(thisIdx)
			thisMove.EntryVelocity = exitVel
			thisMove.AccelMarker = AccelMarker(accel, p.cfg.MinFeedRate, peakFromF-exitVel)
			p.setMoveRefLocked(thisIdx, thisMove)
		}

		prevTarget = thisTarget
		prevMoveIdx = thisIdx
		lastAngle = angle
	}
}

func (p *Planner) currentMoveRefLocked(idx int) Move {
	if idx == -1 {
		return p.currentMove
	}
	mv, _ := p.queue.peekLocked(idx)
	return mv
}

func (p *Planner) setMoveRefLocked(idx int, m Move) {
	if idx == -1 {
		p.currentMove = m
		return
	}
	p.queue.setLocked(idx, m)
}

func vectorAngleDegrees(from, to Vector2I) float64 {
	angle := math.Atan2(float64(from.Y-to.Y), float64(from.X-to.X)) * 180 / math.Pi
	angle += 180
	if angle >= 360 {
		angle -= 360
	}
	return angle
}

func mapRange(v, inLo, inHi, outLo, outHi float64) float64 {
	return (v-inLo)*(outHi-outLo)/(inHi-inLo) + outLo
}

// MotionTick is the periodic callback invoked from the 1ms timer context,
// in the same tick as (and before) Torch.MoveTick. It must complete
// within one tick period — there are no suspension points.
func (p *Planner) MotionTick() {
	defer core.EnterCritical()()

	if !p.run || p.awaitingSync {
		return
	}

	if nowMs := core.Millis(); uint32(nowMs-p.rampTimestamp) > p.cfg.FeedRampInterval {
		p.rampSampleLocked()
		p.rampTimestamp = nowMs
	}

	if nowUs := core.GetTime(); uint32(nowUs-p.feedTimestamp) > p.feedDelayUs {
		p.stepEmitterLocked()
		p.feedTimestamp = nowUs
	}
}

func (p *Planner) rampSampleLocked() {
	domDistSteps := p.dx
	domStg := p.xStg
	accel, _, scale, _ := dominant(p.dx, p.dy, p.cfg.X, p.cfg.Y)
	if p.dy > p.dx {
		domDistSteps = p.dy
		domStg = p.yStg
	}
	if domStg <= 0 {
		return
	}

	distanceLeft := float64(domStg) / scale
	distanceIn := float64(domDistSteps)/scale - distanceLeft

	if p.currentMove.Type == Rapid {
		if p.pendingFeedhold {
			p.pendingFeedhold = false
			p.feedholdActive = true
			p.currentMove.FeedholdMarker = distanceLeft
		}
		if !p.feedholdActive {
			var newFeed float64
			changed := false
			if distanceIn-p.currentMove.FeedholdMarker < p.currentMove.AccelMarker {
				newFeed = FeedFromDistance(accel, distanceIn-p.currentMove.FeedholdMarker)
				changed = true
			}
			if distanceLeft < p.currentMove.DeccelMarker {
				newFeed = FeedFromDistance(accel, distanceLeft)
				changed = true
			}
			if changed {
				targetF := FromFixedFeed(p.currentMove.Target.F)
				if newFeed > p.cfg.MinFeedRate && newFeed < targetF {
					p.setFeedRateLocked(newFeed)
				}
			}
		} else {
			traveledSinceHold := p.currentMove.FeedholdMarker - distanceLeft
			newFeed := FeedFromDistance(accel, p.currentMove.DeccelMarker-traveledSinceHold)
			if newFeed > p.cfg.MinFeedRate {
				p.setFeedRateLocked(newFeed)
			} else {
				p.run = false
				p.currentMove.FeedholdMarker = distanceIn
				core.RecordTiming(core.EvtFeedhold, 0, core.GetTime(), 0, 0)
				if p.pendingSoftAbort {
					p.pendingSoftAbort = false
					p.abortLocked()
				}
			}
		}
		return
	}

	// LINE move: constant commanded feedrate; a feed-hold stops motion
	// immediately rather than ramping (the original draws this same
	// distinction — continuous-motion moves have no decel ramp defined).
	if p.pendingFeedhold {
		p.pendingFeedhold = false
		p.feedholdActive = true
		p.run = false
		core.RecordTiming(core.EvtFeedhold, 0, core.GetTime(), 0, 0)
		if p.pendingSoftAbort {
			p.pendingSoftAbort = false
			p.abortLocked()
		}
		return
	}
	p.setFeedRateLocked(FromFixedFeed(p.currentMove.Target.F))
}

func (p *Planner) stepEmitterLocked() {
	domStg := p.xStg
	if p.dy > p.dx {
		domStg = p.yStg
	}

	if domStg <= 0 {
		p.loadNextMoveLocked()
		return
	}

	if p.err > -p.dx {
		p.err -= p.dy
		p.currentPosition.X += p.sx
		p.xStg--
		p.stepper.PulseX(int(p.sx))
		core.RecordTiming(core.EvtStepPulse, 0, core.GetTime(), uint32(p.currentPosition.X), 0)
	}
	if p.err < p.dy {
		p.err += p.dx
		p.currentPosition.Y += p.sy
		p.yStg--
		p.stepper.PulseY(int(p.sy))
		core.RecordTiming(core.EvtStepPulse, 1, core.GetTime(), uint32(p.currentPosition.Y), 0)
	}
}
