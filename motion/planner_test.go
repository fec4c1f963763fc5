package motion

import (
	"math"
	"testing"

	"plasmacore/core"
)

// testConfig mirrors the S1-S6 scenarios: step_scale=518 on both axes,
// accel_x=7, accel_y=6, jerk=0.05, MinFeedRate=jerk.
func testConfig() PlannerConfig {
	return PlannerConfig{
		X:                AxisParams{StepScale: 518, FeedJerk: 0.05, FeedAccel: 7},
		Y:                AxisParams{StepScale: 518, FeedJerk: 0.05, FeedAccel: 6},
		MinFeedRate:      0.05,
		FeedRampInterval: 20,
	}
}

func newTestPlanner(t *testing.T) (*Planner, *core.MockGPIO) {
	t.Helper()
	gpio := core.NewMockGPIO()
	stepper := NewStepper(gpio,
		AxisDrive{StepPin: 0, DirPin: 1},
		AxisDrive{StepPin: 2, DirPin: 3},
	)
	stepper.Init()
	p := NewPlanner(testConfig(), NewQueue(8), stepper)
	p.Init()
	return p, gpio
}

// tickToIdle drives the planner's ramp sampler and step emitter directly,
// bypassing the 1ms/microsecond cadence gate in MotionTick, until the
// queue and current move are both drained (run goes false) or maxTicks is
// exceeded. Isolates the stepping/ramp algorithm from tick timing, which
// is covered separately.
func tickToIdle(p *Planner, maxTicks int) int {
	n := 0
	for ; n < maxTicks; n++ {
		if !p.run || p.awaitingSync {
			return n
		}
		p.rampSampleLocked()
		p.stepEmitterLocked()
	}
	return n
}

// TestBresenhamMonotonicity is testable property 1: after exhausting a
// move, current_position lands exactly on the target, on both axes.
func TestBresenhamMonotonicity(t *testing.T) {
	p, _ := newTestPlanner(t)

	if !p.PushTarget(Vector3F{X: 1, Y: 0, F: 60}, Rapid) {
		t.Fatal("push_target returned false on an empty queue")
	}

	ticks := tickToIdle(p, 10000)
	if ticks >= 10000 {
		t.Fatal("move did not complete within tick budget")
	}

	want := int64(math.Round(1 * 518))
	if p.currentPosition.X != want || p.currentPosition.Y != 0 {
		t.Errorf("final position = (%d,%d), want (%d,0)", p.currentPosition.X, p.currentPosition.Y, want)
	}
}

// TestPushTargetTriangularPeak exercises S1: the queued move's peak never
// exceeds the triangular limit sqrt(2*accel*(length/2)) = sqrt(7) ~= 2.646.
// The commanded 60 units/min (1 unit/sec) is below that limit, so here
// the peak is the commanded feed.
func TestPushTargetTriangularPeak(t *testing.T) {
	p, _ := newTestPlanner(t)
	p.PushTarget(Vector3F{X: 1, Y: 0, F: 60}, Rapid)

	mv, ok := p.queue.peekLocked(0)
	if !ok {
		t.Fatal("expected one queued move")
	}
	peak := FromFixedFeed(mv.Target.F)
	limit := FeedFromDistance(7, 1.0/2)
	if peak > limit+1e-9 {
		t.Errorf("peak feed %v exceeds triangular limit %v", peak, limit)
	}
}

// TestQueueFullBackpressure covers push_target's back-pressure contract:
// false on a full queue, no data dropped.
func TestQueueFullBackpressure(t *testing.T) {
	gpio := core.NewMockGPIO()
	stepper := NewStepper(gpio, AxisDrive{StepPin: 0, DirPin: 1}, AxisDrive{StepPin: 2, DirPin: 3})
	p := NewPlanner(testConfig(), NewQueue(1), stepper)
	p.Init()

	if !p.PushTarget(Vector3F{X: 1, Y: 0, F: 60}, Rapid) {
		t.Fatal("first push should succeed")
	}
	if p.PushTarget(Vector3F{X: 2, Y: 0, F: 60}, Rapid) {
		t.Fatal("push past capacity should return false")
	}
}

// TestFeedholdRunRoundTrip is testable property 5: feedhold mid-move
// decelerates to MinFeedRate and halts (run=false); run() resumes and the
// move completes exactly.
func TestFeedholdRunRoundTrip(t *testing.T) {
	p, _ := newTestPlanner(t)
	p.PushTarget(Vector3F{X: 10, Y: 0, F: 600}, Rapid)

	// Tick partway into the move.
	for i := 0; i < 50; i++ {
		p.rampSampleLocked()
		p.stepEmitterLocked()
	}
	if p.currentPosition.X == 0 {
		t.Fatal("expected partial progress before feedhold")
	}

	p.Feedhold()
	ticks := 0
	for p.run && ticks < 100000 {
		p.rampSampleLocked()
		p.stepEmitterLocked()
		ticks++
	}
	if p.run {
		t.Fatal("feedhold did not bring the planner to a stop")
	}
	if !p.feedholdActive {
		t.Error("feedholdActive should stay latched until Run() clears it")
	}

	stoppedAt := p.currentPosition.X

	p.Run()
	if !p.run {
		t.Fatal("Run() should resume motion")
	}
	remaining := tickToIdle(p, 100000)
	if remaining >= 100000 {
		t.Fatal("resumed move did not complete within tick budget")
	}
	if p.currentPosition.X <= stoppedAt {
		t.Errorf("position after resume (%d) did not advance past feedhold point (%d)", p.currentPosition.X, stoppedAt)
	}
	if p.currentPosition.X != int64(math.Round(10*518)) {
		t.Errorf("final position = %d, want %d", p.currentPosition.X, int64(math.Round(10*518)))
	}
}

// TestSoftAbortDrainsAfterDecel is testable property 6: soft_abort clears
// the queue only once the decel ramp has brought velocity to MinFeedRate.
func TestSoftAbortDrainsAfterDecel(t *testing.T) {
	p, _ := newTestPlanner(t)
	p.PushTarget(Vector3F{X: 10, Y: 0, F: 600}, Rapid)
	p.PushTarget(Vector3F{X: 20, Y: 0, F: 600}, Rapid)

	for i := 0; i < 50; i++ {
		p.rampSampleLocked()
		p.stepEmitterLocked()
	}

	p.SoftAbort()
	ticks := 0
	for p.run && ticks < 200000 {
		p.rampSampleLocked()
		p.stepEmitterLocked()
		ticks++
	}
	if p.run {
		t.Fatal("soft_abort did not settle the planner to idle")
	}
	if p.queue.lenLocked() != 0 {
		t.Errorf("soft_abort should drop the remaining queue once decel lands, queue len = %d", p.queue.lenLocked())
	}
}

// TestAdjacentPairCollinear is testable property 7: two collinear moves
// keep the junction at the dominant peak feed (no angle of change).
func TestAdjacentPairCollinear(t *testing.T) {
	p, _ := newTestPlanner(t)
	p.PushTarget(Vector3F{X: 1, Y: 0, F: 600}, Rapid)
	p.PushTarget(Vector3F{X: 2, Y: 0, F: 600}, Line)

	// Load the first move so planContinuousMotionLocked has run against
	// the real currentMove/queue pairing.
	p.rampSampleLocked()
	p.stepEmitterLocked()

	first := p.currentMove
	second, _ := p.queue.peekLocked(0)

	if math.Abs(first.ExitVelocity-second.EntryVelocity) > 1e-9 {
		t.Errorf("collinear junction: exit=%v entry=%v, want equal", first.ExitVelocity, second.EntryVelocity)
	}
	peak := FromFixedFeed(first.Target.F)
	if math.Abs(first.ExitVelocity-peak) > 1e-6 {
		t.Errorf("collinear junction exit velocity = %v, want dominant peak %v", first.ExitVelocity, peak)
	}
}

// TestAdjacentPairReversal is testable property 7's other half: a 180°
// reversal clamps both sides down to the dominant axis's jerk.
func TestAdjacentPairReversal(t *testing.T) {
	p, _ := newTestPlanner(t)
	p.PushTarget(Vector3F{X: 1, Y: 0, F: 600}, Rapid)
	p.PushTarget(Vector3F{X: 0, Y: 0, F: 600}, Line)

	p.rampSampleLocked()
	p.stepEmitterLocked()

	first := p.currentMove
	second, _ := p.queue.peekLocked(0)

	if math.Abs(first.ExitVelocity-0.05) > 1e-9 {
		t.Errorf("reversal exit velocity = %v, want jerk 0.05", first.ExitVelocity)
	}
	if math.Abs(second.EntryVelocity-0.05) > 1e-9 {
		t.Errorf("reversal entry velocity = %v, want jerk 0.05", second.EntryVelocity)
	}
}
