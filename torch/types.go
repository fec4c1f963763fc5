// Package torch implements the torch controller described in the torch
// controller section: arc-start/extinguish, incremental non-blocking Z
// motion, arc-voltage sampling with automatic torch height compensation
// (ATHC), and a scripted-sequence interpreter driving the pierce/retract
// chains the motion sync package builds. It is independent of the
// Bresenham X/Y engine in the motion package — Z moves are commanded
// incrementally and are never concurrent with X/Y motion.
package torch

import "plasmacore/core"

// AxisParams is the Z axis's step scale and direction polarity.
type AxisParams struct {
	StepScale float64
	InvertDir bool
}

// Config is the torch/ATHC/Z-axis configuration surface.
type Config struct {
	SetVoltage       float64
	VoltageTolerance float64
	CompVelocity     float64 // units/sec; ATHC only nudges above this machine speed
	Enabled          bool
	ADCAtZero        int
	ADCAtOneHundred  int
	NumReadings      int // bounded by MaxNumReadings
	Z                AxisParams
}

// MaxNumReadings bounds the ADC averaging ring — the original firmware's
// fixed 20000-entry array, parameterized per §9's design note.
const MaxNumReadings = 20000

// StepKind tags one instruction in a scripted Z/torch sequence.
type StepKind uint8

const (
	StepProbe      StepKind = iota // move (with a stop condition) toward the probe switch
	StepRetract                    // move (no condition) away from the probe switch
	StepFire                       // engage the arc-start contact
	StepExtinguish                 // release the arc-start contact
	StepDwell                      // wait a fixed duration
	StepMove                       // move (no condition, or a caller-supplied one)
	StepFinish                     // run a completion callback and end the sequence
)

// Step is one instruction of a scripted sequence (§9: "model as a tagged
// sequence of steps ... driven by a small interpreter", replacing the
// original's function-pointer callback chains). DeltaZ/Feed apply to
// StepProbe/StepRetract/StepMove; Cond applies to StepProbe (and
// optionally StepMove); DwellMs applies to StepDwell; Finish applies to
// StepFinish.
type Step struct {
	Kind    StepKind
	DeltaZ  float64
	Feed    float64
	Cond    func() bool
	DwellMs uint32
	Finish  func()
}

// Controller owns the Z axis, the arc-voltage ring, and the currently
// running scripted sequence (if any). All shared state is read/written
// only under core.EnterCritical, matching Planner's discipline.
type Controller struct {
	cfg    Config
	gpio   core.GPIODriver
	analog core.AnalogDriver

	stepPin, dirPin         core.GPIOPin
	voltagePin, arcStartPin core.GPIOPin

	torchOn bool

	readings  []int
	readIndex int
	total     float64

	currentPosition int64 // steps
	stepsToGo       int64
	stepDir         int64
	feedDelayUs     uint32
	feedTimestamp   uint32
	run             bool

	condition  func() bool
	onComplete func()

	waitUntilSet bool
	waitUntilTs  uint32
	waitCallback func()

	seq    []Step
	seqIdx int
}

// NewController returns a Controller bound to the given Z step/dir pins
// and voltage/arc-start pins.
func NewController(cfg Config, gpio core.GPIODriver, analog core.AnalogDriver, stepPin, dirPin, voltagePin, arcStartPin core.GPIOPin) *Controller {
	n := cfg.NumReadings
	if n <= 0 {
		n = 1
	}
	if n > MaxNumReadings {
		n = MaxNumReadings
	}
	return &Controller{
		cfg:         cfg,
		gpio:        gpio,
		analog:      analog,
		stepPin:     stepPin,
		dirPin:      dirPin,
		voltagePin:  voltagePin,
		arcStartPin: arcStartPin,
		readings:    make([]int, n),
	}
}
