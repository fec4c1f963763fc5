//go:build !tinygo

package core

import "sync"

// schedLock serializes the timer's critical section against producer
// calls (PushTarget, Feedhold, Abort, ...) on host Go, where the timer
// tick and the caller genuinely run on different goroutines and there is
// no interrupt controller to disable. This is the "equivalent mutual-
// exclusion primitive" §9 asks for in place of noInterrupts()/interrupts().
var schedLock sync.Mutex

// State is the lock token returned by disableInterrupts and handed back
// to restoreInterrupts; it carries no data on host Go.
type State struct{}

func disableInterrupts() State {
	schedLock.Lock()
	return State{}
}

func restoreInterrupts(_ State) {
	schedLock.Unlock()
}
