package val

// Clock supplies monotonic milliseconds to the adaptive timeout
// estimator and the handshake/data retry loops. Wraparound at
// 2^32ms is handled by treating elapsed-time subtraction as unsigned
// 32-bit arithmetic (clock-wrap boundary behavior).
type Clock interface {
	NowMs() uint32
}

// Delayer is an optional Clock capability for cooperative back-off
// sleeps between retries on platforms without a scheduler.
type Delayer interface {
	DelayMs(ms uint32)
}

// elapsedMs computes (now - start) mod 2^32, matching
// original_source's wraparound-safe elapsed time convention.
func elapsedMs(start, now uint32) uint32 {
	return now - start
}

func delay(c Clock, ms uint32) {
	if d, ok := c.(Delayer); ok {
		d.DelayMs(ms)
	}
}
