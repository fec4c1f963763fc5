package sync

import (
	"testing"

	"plasmacore/core"
	"plasmacore/motion"
	"plasmacore/torch"
)

func testCoordinator(t *testing.T, probeClosed *bool) (*Coordinator, *torch.Controller, *int) {
	t.Helper()
	gpio := core.NewMockGPIO()
	analog := core.NewMockAnalog()
	torchCtl := torch.NewController(torch.Config{
		Z:           torch.AxisParams{StepScale: 518},
		NumReadings: 1,
	}, gpio, analog, 20, 21, 22, 23)
	torchCtl.Init()

	resumed := 0
	cfg := Config{ZRapidFeed: 2, ZProbeFeed: 1, FloatingHeadTakeup: 0.1}
	coord := NewCoordinator(cfg, torchCtl, func() bool { return *probeClosed }, func() { resumed++ })
	return coord, torchCtl, &resumed
}

// driveUntil ticks the torch controller forward, advancing the software
// clock a full second each time (always well past any single step's
// feed delay, per the same cadence-bypass TestMoveZIncremental* uses in
// the torch package), until stop reports true or the tick budget runs out.
func driveUntil(t *testing.T, tick func(), stop func() bool, maxTicks int) {
	t.Helper()
	for i := 0; i < maxTicks; i++ {
		if stop() {
			return
		}
		core.SetTime(core.GetTime() + 1_000_000)
		tick()
	}
	t.Fatal("tick budget exhausted before the expected condition")
}

// TestStartCutRunsFullPierceChain drives probe -> retract -> fire -> dwell
// -> move-to-cut-height -> finish end to end and checks onResume (the
// planner's SyncFinished hook) fires exactly once.
func TestStartCutRunsFullPierceChain(t *testing.T) {
	probeClosed := true // plate contact simulated from the start
	coord, torchCtl, resumed := testCoordinator(t, &probeClosed)

	coord.StartCut(motion.CutStart{
		PierceHeight:    0.2,
		PierceDelay:     0.01,
		ClearanceHeight: 1.0,
		CutHeight:       0.05,
	})

	driveUntil(t, torchCtl.MoveTick, func() bool { return *resumed > 0 }, 5000)

	if *resumed != 1 {
		t.Errorf("onResume fired %d times, want 1", *resumed)
	}
	if coord.active != nil {
		t.Error("active cut should be cleared once the pierce chain finishes")
	}
	if torchCtl.GetPosition() <= 0 {
		t.Errorf("expected net upward Z travel from retract+move_to_cut_height, got %v", torchCtl.GetPosition())
	}
}

// TestAbortCutMidProbeFinishesProbeThenRetracts covers the abort branch
// that catches the torch still descending toward the plate: it must finish
// the probe step before retracting, rather than abandoning it instantly.
func TestAbortCutMidProbeFinishesProbeThenRetracts(t *testing.T) {
	probeClosed := false
	coord, torchCtl, resumed := testCoordinator(t, &probeClosed)

	coord.StartCut(motion.CutStart{PierceHeight: 0.2, PierceDelay: 0.01, CutHeight: 0.05})

	core.SetTime(0)
	torchCtl.MoveTick() // starts the probe move

	kind, running := torchCtl.CurrentStepKind()
	if !running || kind != torch.StepProbe {
		t.Fatalf("expected the probe step to be running, got kind=%v running=%v", kind, running)
	}

	coord.AbortCut()

	// Still mid-probe: AbortCut must not have fired the torch or skipped
	// straight to finish.
	if torchCtl.GetTorchState() {
		t.Error("AbortCut mid-probe must not fire the torch")
	}

	probeClosed = true
	driveUntil(t, torchCtl.MoveTick, func() bool { return *resumed > 0 }, 5000)

	if *resumed != 1 {
		t.Errorf("onResume fired %d times, want 1", *resumed)
	}
	if torchCtl.GetTorchState() {
		t.Error("torch should never have fired across an aborted pierce")
	}
}

// TestAbortCutPostProbeRetractsDirectly covers the abort branch reached
// once contact has already been made (or the arc may already be lit): it
// skips straight to retract without re-probing.
func TestAbortCutPostProbeRetractsDirectly(t *testing.T) {
	probeClosed := true
	coord, torchCtl, resumed := testCoordinator(t, &probeClosed)

	coord.StartCut(motion.CutStart{PierceHeight: 0.2, PierceDelay: 0.01, CutHeight: 0.05})

	core.SetTime(0)
	// Probe condition is already true: one tick starts the probe move, a
	// second sees the condition met and advances the sequence to the
	// retract step, and a third starts the retract move.
	torchCtl.MoveTick()
	core.SetTime(core.GetTime() + 1_000_000)
	torchCtl.MoveTick()
	core.SetTime(core.GetTime() + 1_000_000)
	torchCtl.MoveTick()

	kind, running := torchCtl.CurrentStepKind()
	if !running || kind != torch.StepRetract {
		t.Fatalf("expected the retract step to be running, got kind=%v running=%v", kind, running)
	}

	coord.AbortCut()

	if kind, running := torchCtl.CurrentStepKind(); !running || kind != torch.StepRetract {
		t.Fatalf("AbortCut post-probe should go straight into a retract, got kind=%v running=%v", kind, running)
	}

	driveUntil(t, torchCtl.MoveTick, func() bool { return *resumed > 0 }, 5000)

	if *resumed != 1 {
		t.Errorf("onResume fired %d times, want 1", *resumed)
	}
}
