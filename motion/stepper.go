package motion

import "plasmacore/core"

// AxisDrive is one axis's pin assignment and direction polarity — the
// Stepper Driver's view of an axis, separate from config.AxisConfig so
// this package doesn't import the config package.
type AxisDrive struct {
	StepPin   core.GPIOPin
	DirPin    core.GPIOPin
	InvertDir bool
}

// Stepper emits step pulses on the X and Y axes through a GPIODriver. It
// holds no motion state of its own — the planner owns position, velocity
// and the Bresenham counters; Stepper only knows how to turn "pulse X in
// direction sx" into the DIR/STEP pin sequence the driver IC expects.
type Stepper struct {
	gpio core.GPIODriver
	x, y AxisDrive
}

// NewStepper returns a Stepper driving the given axis pin assignments
// through gpio.
func NewStepper(gpio core.GPIODriver, x, y AxisDrive) *Stepper {
	return &Stepper{gpio: gpio, x: x, y: y}
}

// Init configures the DIR/STEP pins as outputs.
func (s *Stepper) Init() {
	s.gpio.ConfigureOutput(s.x.DirPin)
	s.gpio.ConfigureOutput(s.x.StepPin)
	s.gpio.ConfigureOutput(s.y.DirPin)
	s.gpio.ConfigureOutput(s.y.StepPin)
}

// PulseX emits one step pulse on the X axis in the given signed direction
// (+1/-1): set DIR, wait 20us, drive STEP low, wait 20us, drive STEP high.
func (s *Stepper) PulseX(dir int) {
	s.pulse(s.x, dir)
}

// PulseY emits one step pulse on the Y axis in the given signed direction.
func (s *Stepper) PulseY(dir int) {
	s.pulse(s.y, dir)
}

func (s *Stepper) pulse(axis AxisDrive, dir int) {
	level := dir > 0
	if axis.InvertDir {
		level = !level
	}
	s.gpio.SetPin(axis.DirPin, level)
	s.gpio.DelayMicroseconds(20)
	s.gpio.SetPin(axis.StepPin, false)
	s.gpio.DelayMicroseconds(20)
	s.gpio.SetPin(axis.StepPin, true)
}
