package val

import "sync"

// WireAuditEntry records one on-wire frame for the optional audit trail.
// TraceID ties entries from one Session together when logs from several
// sessions are aggregated.
type WireAuditEntry struct {
	TraceID   string
	Direction string // "tx" or "rx"
	Type      string
	Offset    uint64
	Len       int
}

// WireAudit is a bounded ring buffer of recent frames, gated by
// Config.EnableWireAudit so it costs nothing when unused.
type WireAudit struct {
	mu      sync.Mutex
	entries []WireAuditEntry
	cap     int
}

const defaultWireAuditCap = 256

func newWireAudit() *WireAudit {
	return &WireAudit{cap: defaultWireAuditCap}
}

func (w *WireAudit) record(e WireAuditEntry) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, e)
	if len(w.entries) > w.cap {
		w.entries = w.entries[len(w.entries)-w.cap:]
	}
}

func (w *WireAudit) Snapshot() []WireAuditEntry {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]WireAuditEntry, len(w.entries))
	copy(out, w.entries)
	return out
}

func (w *WireAudit) reset() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = nil
}
