//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts disables interrupts and returns the previous state.
// This is the embedded-target equivalent of schedLock in interrupt_go.go:
// the timer ISR and the producer (main loop) genuinely share a core here,
// so a real interrupt mask stands in for a mutex.
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state.
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
