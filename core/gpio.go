package core

// GPIOPin identifies a hardware GPIO pin. The core/motion/torch packages
// never interpret pin numbers themselves — pin assignment is part of the
// out-of-scope configuration surface; they only ever call through
// GPIODriver.
type GPIOPin uint32

// GPIODriver is the abstract digital-IO collaborator interface the
// Stepper Driver and Torch Controller use: digital_write / digital_read /
// delay_microseconds, per the external interfaces section.
type GPIODriver interface {
	ConfigureOutput(pin GPIOPin) error
	ConfigureInputPullUp(pin GPIOPin) error
	ConfigureInputPullDown(pin GPIOPin) error

	// SetPin drives pin high (true) or low (false).
	SetPin(pin GPIOPin, value bool) error

	// ReadPin samples the current pin state.
	ReadPin(pin GPIOPin) bool

	// DelayMicroseconds busy-waits (or sleeps, on a host) for the given
	// duration — used for the stepper driver's 20us DIR/STEP setup and
	// hold times.
	DelayMicroseconds(us uint32)
}

// AnalogDriver is the abstract analog-input collaborator interface Torch
// uses to sample arc voltage.
type AnalogDriver interface {
	ReadAnalog(pin GPIOPin) (uint16, error)
}
