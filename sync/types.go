// Package sync builds the scripted torch/Z sequences that run between two
// X/Y moves: piercing into a new cut and retracting at the end of one. It
// is the Go-native replacement for the original's MotionSyncCallbacks
// function-pointer chains — each chain here is a plain []torch.Step handed
// to torch.Controller.RunSequence, with the chain's own completion always
// reporting back to the motion planner via SyncFinished so the step
// emitter can resume.
//
// sync depends on motion (for the CutStart type carried on a move) and on
// torch (for the sequence interpreter); neither of those packages imports
// sync, so there is no import cycle.
package sync

import (
	"plasmacore/torch"
)

// Config mirrors the original's MotionSyncConfig: the feedrates and
// floating-head takeup distance used to build every chain.
type Config struct {
	ZRapidFeed         float64 // user units/sec, used for retract/cut-height moves
	ZProbeFeed         float64 // user units/sec, used for the downward probe move
	FloatingHeadTakeup float64 // user units the torch compresses into the probe switch
}

// ProbeMaxTravel is the maximum downward probe travel commanded before
// giving up if the probe switch never closes — the original hardcodes
// this as a literal -10 (user units, negative is down).
const ProbeMaxTravel = -10

// CallbackData is the per-cut state threaded through a pierce chain —
// the Go-native CallbackData struct, extended with CutHeight (absent
// from the original, which computed move_to_cut_height's delta as
// pierceHeight - pierceHeight: always zero. CutHeight closes that gap so
// the move actually descends from pierce height to cut height).
type CallbackData struct {
	PierceHeight    float64
	PierceDelay     float64 // seconds
	ClearanceHeight float64
	CutHeight       float64
}

// Coordinator owns the torch controller and the planner hook used to
// resume X/Y motion once a chain finishes. ProbeInput reports whether the
// Z-probe switch is presently closed (StepProbe's stop condition).
type Coordinator struct {
	cfg        Config
	torchCtl   *torch.Controller
	probeInput func() bool
	onResume   func()

	active *CallbackData // the cut presently being pierced, nil between cuts
}

// NewCoordinator returns a Coordinator driving torchCtl's sequence
// interpreter. onResume is called exactly once per chain, on its
// StepFinish — wire it to Planner.SyncFinished.
func NewCoordinator(cfg Config, torchCtl *torch.Controller, probeInput func() bool, onResume func()) *Coordinator {
	return &Coordinator{
		cfg:        cfg,
		torchCtl:   torchCtl,
		probeInput: probeInput,
		onResume:   onResume,
	}
}
