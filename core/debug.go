package core

// DebugWriter is a function type for writing debug messages.
type DebugWriter func(string)

// TimingEvent captures a timing-critical event for post-mortem analysis.
type TimingEvent struct {
	EventType uint8  // Event type code
	Axis      uint8  // Axis id (0=X, 1=Y, 2=Z) where applicable
	Clock     uint32 // System clock at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes, covering the motion/torch/sync lifecycle events worth
// a post-mortem trace.
const (
	EvtStepPulse  = 1 // Bresenham step emitted on an axis
	EvtLoadMove   = 2 // Move pulled from the queue into current_move
	EvtWaitUntil  = 3 // Torch wait_until callback armed
	EvtTickPast   = 4 // motion_tick/move_tick overran the 1ms tick budget
	EvtFeedhold   = 5 // Feed-hold brought motion to a stop
	EvtSyncChain  = 6 // Motion sync chain step transition
	EvtTorchFire  = 7 // Torch fired / extinguished
)

const (
	TimingRingSize = 32 // Keep the last 32 events for post-mortem
)

var (
	debugWriter DebugWriter = func(s string) {} // no-op until SetDebugWriter

	// debugEnabled gates DebugPrintln; off by default so logging never
	// perturbs the real-time tick unless explicitly turned on.
	debugEnabled bool

	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8
	totalSteps     uint64

	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output sink (serial,
// stdout, a test buffer, ...).
func SetDebugWriter(writer DebugWriter) {
	debugWriter = writer
}

// SetDebugEnabled enables or disables debug output.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled reports whether debug output is active.
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the background goroutine that drains DebugAsync
// messages. Call once from the host process after SetDebugWriter.
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

func debugOutputWorker() {
	for msg := range debugChan {
		debugWriter(msg)
	}
}

// DebugPrintln writes msg via the configured writer when debug output is
// enabled. The motion and torch packages never call it, so the potentially
// blocking write never runs inside the tick's critical section; its only
// caller here is DumpTimingRing.
func DebugPrintln(msg string) {
	if debugEnabled {
		debugWriter(msg)
	}
}

// DebugAsync queues msg for the async worker, dropping it if the buffer is
// full rather than blocking the caller.
func DebugAsync(msg string) {
	if debugChan == nil {
		return
	}
	select {
	case debugChan <- msg:
	default:
	}
}

// RecordTiming captures a timing event in the ring buffer. Always
// non-blocking; safe to call from the timer critical section.
func RecordTiming(eventType, axis uint8, clock, value1, value2 uint32) {
	if eventType == EvtStepPulse {
		totalSteps++
	}
	timingRing[timingRingHead] = TimingEvent{
		EventType: eventType,
		Axis:      axis,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	timingRingHead = (timingRingHead + 1) % TimingRingSize
}

// GetTotalStepCount returns the lifetime count of EvtStepPulse events.
func GetTotalStepCount() uint64 {
	return totalSteps
}

// DumpTimingRing writes the ring buffer out, oldest first. Intended for
// post-mortem use after a shutdown or a timer-past error, not the hot path.
func DumpTimingRing() {
	DebugPrintln("[TIMING] === dump (total steps " + itoa(int(totalSteps)) + ") ===")

	for i := uint8(0); i < TimingRingSize; i++ {
		idx := (timingRingHead + i) % TimingRingSize
		evt := &timingRing[idx]
		if evt.EventType == 0 {
			continue
		}

		var name string
		switch evt.EventType {
		case EvtStepPulse:
			name = "STEP"
		case EvtLoadMove:
			name = "LOAD_MOVE"
		case EvtWaitUntil:
			name = "WAIT_UNTIL"
		case EvtTickPast:
			name = "TICK_PAST!"
		case EvtFeedhold:
			name = "FEEDHOLD"
		case EvtSyncChain:
			name = "SYNC_CHAIN"
		case EvtTorchFire:
			name = "TORCH_FIRE"
		default:
			name = "UNKNOWN"
		}

		DebugPrintln("[TIMING] " + name +
			" axis=" + itoa(int(evt.Axis)) +
			" clock=" + itoa(int(evt.Clock)) +
			" v1=" + itoa(int(evt.Value1)) +
			" v2=" + itoa(int(evt.Value2)))
	}
	DebugPrintln("[TIMING] === end ===")
}

// ClearTimingRing resets the ring buffer.
func ClearTimingRing() {
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
}
