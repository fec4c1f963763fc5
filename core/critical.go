package core

// EnterCritical takes the same mutual-exclusion discipline the 1ms tick
// uses internally (a real mutex on host Go, an interrupt mask on tinygo)
// and hands it to callers outside this package — the move queue, the
// planner and the torch controller — that read or write state shared with
// the tick and must serialize against it. The returned func ends the
// critical section; callers typically write:
//
//	defer core.EnterCritical()()
//
// Sections should be kept short: nothing that can block (no channel sends,
// no debug writer I/O) may run while one is held, since on tinygo that
// would hold the interrupt mask down for the duration.
func EnterCritical() func() {
	state := disableInterrupts()
	return func() { restoreInterrupts(state) }
}
