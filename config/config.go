// Package config loads the machine configuration surface enumerated in
// the external interfaces section: per-axis step scale/jerk/accel/invert,
// the torch and sync parameters, and the queue/ramp constants. It mirrors
// the teacher's standalone/config package: JSON in, defaults applied,
// MachineConfig out.
package config

import (
	"encoding/json"
	"errors"

	"plasmacore/core"
)

// AxisConfig configures one of the X/Y/Z axes.
type AxisConfig struct {
	StepPin core.GPIOPin `json:"step_pin"`
	DirPin  core.GPIOPin `json:"dir_pin"`

	StepScale float64 `json:"step_scale"` // steps per user unit
	FeedJerk  float64 `json:"feed_jerk"`  // minimum entry/exit velocity, units/sec
	FeedAccel float64 `json:"feed_accel"` // acceleration, units/sec^2
	InvertDir bool    `json:"invert_dir"`
}

// TorchConfig configures the arc-voltage height control loop and the Z
// axis the torch controller drives.
type TorchConfig struct {
	SetVoltage       float64      `json:"set_voltage"`
	VoltageTolerance float64      `json:"voltage_tolerance"`
	CompVelocity     float64      `json:"comp_velocity"` // units/sec
	Enabled          bool         `json:"enabled"`
	ADCAtZero        int          `json:"adc_at_zero"`
	ADCAtOneHundred  int          `json:"adc_at_one_hundred"`
	NumReadings      int          `json:"num_readings"` // bounded by MaxNumReadings
	VoltagePin       core.GPIOPin `json:"voltage_pin"`
	ArcStartPin      core.GPIOPin `json:"arc_start_pin"`

	ZAxis AxisConfig `json:"z_axis"`
}

// SyncConfig configures the probe/retract/pierce chains in the sync
// package.
type SyncConfig struct {
	ZRapidFeed         float64 `json:"z_rapid_feed"`         // units/sec
	ZProbeFeed         float64 `json:"z_probe_feed"`         // units/sec
	FloatingHeadTakeup float64 `json:"floating_head_takeup"` // user units
}

// MachineConfig is the full configuration surface described in the
// external interfaces section.
type MachineConfig struct {
	X AxisConfig `json:"x"`
	Y AxisConfig `json:"y"`

	Torch TorchConfig `json:"torch"`
	Sync  SyncConfig  `json:"sync"`

	MoveStackSize          int     `json:"move_stack_size"`
	FeedRampUpdateInterval uint32  `json:"feed_ramp_update_interval_ms"`
	MinFeedRate            float64 `json:"min_feed_rate"` // units/sec
}

// MaxNumReadings bounds the torch ADC averaging ring; §9 parameterizes
// the original firmware's fixed 20000-entry array by this config value
// instead.
const MaxNumReadings = 20000

// Load parses JSON configuration and applies defaults for any field left
// at its zero value.
func Load(jsonData []byte) (*MachineConfig, error) {
	var cfg MachineConfig
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, cfg.Validate()
}

// Validate checks invariants that defaulting cannot repair.
func (c *MachineConfig) Validate() error {
	if c.Torch.NumReadings > MaxNumReadings {
		return errors.New("config: torch.num_readings exceeds MaxNumReadings")
	}
	if c.X.FeedAccel <= 0 || c.Y.FeedAccel <= 0 || c.Torch.ZAxis.FeedAccel <= 0 {
		return errors.New("config: feed_accel must be positive on every axis")
	}
	return nil
}

func applyDefaults(c *MachineConfig) {
	defaultAxis(&c.X, 518)
	defaultAxis(&c.Y, 518)
	defaultAxis(&c.Torch.ZAxis, 518)

	if c.Torch.NumReadings == 0 {
		c.Torch.NumReadings = 64
	}
	if c.Torch.VoltageTolerance == 0 {
		c.Torch.VoltageTolerance = 2.0
	}
	if c.Torch.CompVelocity == 0 {
		c.Torch.CompVelocity = 0.5
	}

	if c.Sync.ZRapidFeed == 0 {
		c.Sync.ZRapidFeed = 2
	}
	if c.Sync.ZProbeFeed == 0 {
		c.Sync.ZProbeFeed = 1.5
	}
	if c.Sync.FloatingHeadTakeup == 0 {
		c.Sync.FloatingHeadTakeup = 0.2
	}

	if c.MoveStackSize == 0 {
		c.MoveStackSize = 8
	}
	if c.FeedRampUpdateInterval == 0 {
		c.FeedRampUpdateInterval = 20
	}
	if c.MinFeedRate == 0 {
		c.MinFeedRate = 0.05
	}
}

func defaultAxis(a *AxisConfig, stepScale float64) {
	if a.StepScale == 0 {
		a.StepScale = stepScale
	}
	if a.FeedJerk == 0 {
		a.FeedJerk = 0.05
	}
	if a.FeedAccel == 0 {
		a.FeedAccel = 7
	}
}

// Default returns a sensible out-of-the-box configuration matching the
// S1-S6 scenarios in the testable properties section (step_scale=518 on
// both axes, accel_x=7, accel_y=6, jerk=0.05, MinFeedRate=jerk).
func Default() *MachineConfig {
	cfg := &MachineConfig{
		X: AxisConfig{StepScale: 518, FeedJerk: 0.05, FeedAccel: 7},
		Y: AxisConfig{StepScale: 518, FeedJerk: 0.05, FeedAccel: 6},
		Torch: TorchConfig{
			ZAxis:      AxisConfig{StepScale: 518, FeedJerk: 0.05, FeedAccel: 7},
			SetVoltage: 120,
		},
		MinFeedRate: 0.05,
	}
	applyDefaults(cfg)
	return cfg
}
