package core

// TimerFreq is the tick rate of the software clock underlying Micros() and
// Millis(). 1MHz keeps tick arithmetic and microsecond
// arithmetic identical, which matters for the stepper's 20us setup/hold
// delays and the planner's microsecond-scale feed delay.
const TimerFreq = 1000000

var bootTicks uint64

// GetTime returns the current software clock in ticks (microseconds).
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime overrides the software clock. Used by tests to drive the
// planner and torch timing deterministically without sleeping.
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// Micros returns the monotonic microsecond clock (the Clock collaborator
// interface's micros()).
func Micros() uint32 {
	return GetTime()
}

// Millis returns the monotonic millisecond clock (the Clock collaborator
// interface's millis()). The underlying microsecond tick wraps a uint32
// roughly every 71.5 minutes, so Millis wraps too; callers compare with
// `now > prev+interval` using signed-difference arithmetic, which
// tolerates the wrap.
func Millis() uint32 {
	return GetTime() / 1000
}

// UsToTicks converts a microsecond duration to scheduler ticks.
func UsToTicks(us uint32) uint32 {
	return us
}

// MsToTicks converts a millisecond duration to scheduler ticks.
func MsToTicks(ms uint32) uint32 {
	return ms * 1000
}

// TimerInit records the boot time for uptime queries. Platform-specific
// clock wiring (hardware timer vs. host ticker) lives in timer_go.go /
// timer_tinygo.go.
func TimerInit() {
	bootTicks = uint64(GetTime())
}

// Uptime returns elapsed ticks since TimerInit was called.
func Uptime() uint64 {
	return uint64(GetTime()) - bootTicks
}
