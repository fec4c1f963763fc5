package sync

import (
	"plasmacore/motion"
	"plasmacore/torch"
)

// StartCut installs the pierce chain: probe down to the plate, retract by
// the floating-head takeup plus pierce height, fire the arc, dwell for
// the pierce delay, then move down from pierce height to cut height
// before resuming motion. Mirrors probe_torch -> retract_torch ->
// light_torch_and_pierce_delay -> move_to_cut_height -> resume_motion.
//
// Wired as the motion.CutStartFunc passed to Planner.SetSyncHooks: the
// planner calls this when it loads a move carrying non-nil Cut data, and
// does not resume the step emitter until onResume (SyncFinished) runs.
func (s *Coordinator) StartCut(cut motion.CutStart) {
	data := CallbackData{
		PierceHeight:    cut.PierceHeight,
		PierceDelay:     cut.PierceDelay,
		ClearanceHeight: cut.ClearanceHeight,
		CutHeight:       cut.CutHeight,
	}
	s.active = &data
	s.torchCtl.RunSequence(s.pierceChain(data))
}

func (s *Coordinator) pierceChain(data CallbackData) []torch.Step {
	return []torch.Step{
		{Kind: torch.StepProbe, DeltaZ: ProbeMaxTravel, Feed: s.cfg.ZProbeFeed, Cond: s.probeInput},
		{Kind: torch.StepRetract, DeltaZ: s.cfg.FloatingHeadTakeup + data.PierceHeight, Feed: s.cfg.ZRapidFeed},
		{Kind: torch.StepFire},
		{Kind: torch.StepDwell, DwellMs: uint32(data.PierceDelay * 1000)},
		// move_to_cut_height: the original computes pierceHeight -
		// pierceHeight here, a zero delta that never actually lowers the
		// torch to cutting height. CutHeight is the fix.
		{Kind: torch.StepMove, DeltaZ: data.PierceHeight - data.CutHeight, Feed: s.cfg.ZRapidFeed},
		{Kind: torch.StepFinish, Finish: s.finishCut},
	}
}

// StartEndOfCut installs the end-of-cut chain: extinguish the arc, raise
// the torch by clearanceHeight, dwell one second for the plate to cool off the cut
// path, then resume motion. Mirrors torch_off_and_retract -> post_delay ->
// resume_motion.
func (s *Coordinator) StartEndOfCut(clearanceHeight float64) {
	s.active = nil
	s.torchCtl.RunSequence([]torch.Step{
		{Kind: torch.StepExtinguish},
		{Kind: torch.StepMove, DeltaZ: clearanceHeight, Feed: s.cfg.ZRapidFeed},
		{Kind: torch.StepDwell, DwellMs: 1000},
		{Kind: torch.StepFinish, Finish: s.onResume},
	})
}

func (s *Coordinator) finishCut() {
	s.active = nil
	s.onResume()
}

// AbortCut interrupts a pierce chain in progress, choosing the chain that
// gets the torch back to a safe, retracted position without firing it.
// Mirrors the original's probe_torch_and_finish / retract_torch_and_finish
// alternate chains, reached from the abort input:
//
//   - mid-probe (still descending toward the plate, switch not yet
//     closed): finish the probe, then retract and resume.
//   - mid-retract or later (contact already made, or the arc may already
//     be lit): just retract and resume; ProbeTorchAndFinish's own probe
//     step would be redundant and the torch needs to come up regardless
//     of whether it fired.
//
// No-op if no cut is currently active.
func (s *Coordinator) AbortCut() {
	if s.active == nil {
		return
	}
	data := *s.active
	kind, running := s.torchCtl.CurrentStepKind()
	if running && kind == torch.StepProbe {
		s.torchCtl.RunSequence(s.probeTorchAndFinishChain(data))
		return
	}
	s.torchCtl.RunSequence(s.retractTorchAndFinishChain(data))
}

func (s *Coordinator) probeTorchAndFinishChain(data CallbackData) []torch.Step {
	return []torch.Step{
		{Kind: torch.StepProbe, DeltaZ: ProbeMaxTravel, Feed: s.cfg.ZProbeFeed, Cond: s.probeInput},
		{Kind: torch.StepRetract, DeltaZ: s.cfg.FloatingHeadTakeup + data.PierceHeight, Feed: s.cfg.ZRapidFeed},
		{Kind: torch.StepFinish, Finish: s.finishCut},
	}
}

func (s *Coordinator) retractTorchAndFinishChain(data CallbackData) []torch.Step {
	return []torch.Step{
		{Kind: torch.StepRetract, DeltaZ: s.cfg.FloatingHeadTakeup + data.PierceHeight, Feed: s.cfg.ZRapidFeed},
		{Kind: torch.StepFinish, Finish: s.finishCut},
	}
}
