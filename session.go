package val

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
)

// errTimeout is returned by recvFrame when the transport's recv-exact
// call times out before a full frame arrives (received < len(buf) with
// a nil error).
var errTimeout = errors.New("val: recv timeout")

// Session owns a snapshot of Config and all per-batch mutable state. It
// is created by the caller and runs one handshake plus one or more files
// per SendFiles or ReceiveFiles call. Only EmergencyCancel makes it
// terminal; finishing a batch does not, and a further call runs a new
// handshake. A Session is not safe for concurrent use except for
// EmergencyCancel.
type Session struct {
	cfg *Config
	id  string

	logger  Logger
	metrics *Metrics
	audit   *WireAudit

	rto  *adaptiveRTO
	cwnd *cwndState

	lastErr atomic.Pointer[LastError]
	active  atomic.Bool // guards against concurrent Send/Receive
	cancel  atomic.Bool

	// effective* are fixed by the handshake and immutable afterward:
	// the negotiated packet_size is immutable for the session.
	effectivePacketSize  int
	effectiveInflightCap int
	effectiveAckStride   byte
	peerTxMode           txModeRung
}

// NewSession validates cfg and constructs a Session. The returned error,
// if non-nil, is always a *LastError with StatusInvalidArg or
// StatusNoMemory and an appropriate detail mask.
func NewSession(cfg *Config) (*Session, error) {
	if cfg == nil {
		return nil, newErr(StatusInvalidArg, setMissingHooks(), "session_create")
	}
	cfg.applyDefaults()
	if detail, err := cfg.validate(); err != nil {
		return nil, newErr(StatusInvalidArg, detail, "session_create")
	}

	s := &Session{
		cfg: cfg,
		id:  xid.New().String(),
		rto: newAdaptiveRTO(cfg.MinTimeoutMs, cfg.MaxTimeoutMs),
	}
	s.logger = cfg.Logger.WithField("session_id", s.id)
	s.cwnd = newCwndState(cfg.FlowControl.InitialCwndPackets, cfg.FlowControl.WindowCapPackets,
		cfg.FlowControl.DegradeErrorThreshold, cfg.FlowControl.RecoverySuccessThreshold)
	s.effectivePacketSize = cfg.PacketSize
	if cfg.EnableMetrics {
		s.metrics = newMetrics()
	}
	if cfg.EnableWireAudit {
		s.audit = newWireAudit()
	}
	return s, nil
}

// Close releases any resources the Session itself owns. Adapter
// contexts remain the caller's responsibility to close.
func (s *Session) Close() error {
	return flush(s.cfg.Transport)
}

// GetLastError returns the most recent failure recorded on the session.
func (s *Session) GetLastError() (StatusCode, uint32) {
	if e := s.lastErr.Load(); e != nil {
		return e.Code, e.Detail
	}
	return StatusOK, 0
}

func (s *Session) setLastError(e *LastError) {
	s.lastErr.Store(e)
}

func (s *Session) fail(code StatusCode, detail uint32, op string) error {
	e := newErr(code, detail, op)
	s.setLastError(e)
	return e
}

// GetEffectivePacketSize returns the negotiated MTU.
func (s *Session) GetEffectivePacketSize() int { return s.effectivePacketSize }

// GetCwndPackets returns the sender's current congestion window in
// packets.
func (s *Session) GetCwndPackets() int { return s.cwnd.Cwnd() }

// GetCurrentTxMode is a read-only legacy view mapping cwnd to the
// nearest power-of-two window rung. It never gates control
// flow.
func (s *Session) GetCurrentTxMode() int { return int(rungFor(s.cwnd.Cwnd())) }

// GetPeerTxMode mirrors GetCurrentTxMode for the negotiated inflight cap
// (the smallest of the local cap and both sides' advertised windows),
// fixed at handshake time.
func (s *Session) GetPeerTxMode() int { return int(s.peerTxMode) }

// GetStreamingAllowed always reports true: the bounded-window model has
// no non-streaming fallback.
func (s *Session) GetStreamingAllowed() bool { return true }

// Metrics returns the session's optional metrics counters, or nil if
// EnableMetrics was false at creation.
func (s *Session) Metrics() *Metrics { return s.metrics }

// ResetMetrics zeroes the counters in place.
func (s *Session) ResetMetrics() { s.metrics.reset() }

// WireAudit returns a snapshot of the recent on-wire frame log, or nil
// if EnableWireAudit was false at creation.
func (s *Session) WireAudit() []WireAuditEntry { return s.audit.Snapshot() }

// ResetWireAudit clears the ring buffer.
func (s *Session) ResetWireAudit() { s.audit.reset() }

func (s *Session) acquire() bool { return s.active.CompareAndSwap(false, true) }
func (s *Session) release()      { s.active.Store(false) }

func (s *Session) isTerminal() bool { return s.cancel.Load() }

// sendFrame serializes and writes one frame using the caller-owned
// SendBuffer.
func (s *Session) sendFrame(t frameType, flags byte, typeData uint32, content []byte) error {
	if s.isTerminal() {
		return s.fail(StatusAborted, 0, "send_frame")
	}
	n, err := encodeFrame(s.cfg.CRC, s.cfg.SendBuffer, t, flags, typeData, content)
	if err != nil {
		return s.fail(StatusProtocol, DetailMalformedPkt, "send_frame")
	}
	if err := s.cfg.Transport.Send(s.cfg.SendBuffer[:n]); err != nil {
		return s.fail(StatusIO, DetailSendFailed, "send_frame")
	}
	s.metrics.recordSend(t, n)
	s.audit.record(WireAuditEntry{TraceID: s.id, Direction: "tx", Type: t.String(), Offset: uint64(typeData), Len: n})
	s.logger.Debugf("tx %s flags=0x%02x type_data=%d len=%d", t, flags, typeData, n)
	return nil
}

// recvFrame reads one complete frame with the given timeout, verifying
// its trailer CRC. errFrameCRC and errTimeout are returned as sentinel
// errors the call sites branch on explicitly; any other non-nil error is
// a hard transport fault.
func (s *Session) recvFrame(timeout time.Duration) (frameHeader, []byte, error) {
	if s.isTerminal() {
		return frameHeader{}, nil, s.fail(StatusAborted, 0, "recv_frame")
	}
	buf := s.cfg.RecvBuffer
	n, err := s.cfg.Transport.Recv(buf[:frameHeaderSize], timeout)
	if err != nil {
		return frameHeader{}, nil, s.fail(StatusIO, DetailRecvFailed, "recv_frame")
	}
	if n < frameHeaderSize {
		return frameHeader{}, nil, errTimeout
	}
	hdr, err := decodeHeader(buf[:frameHeaderSize])
	if err != nil {
		return frameHeader{}, nil, fmt.Errorf("%w: %v", errMalformedFrame, err)
	}
	total := frameHeaderSize + int(hdr.ContentLen) + frameTrailerSize
	if total > len(buf) {
		return frameHeader{}, nil, s.fail(StatusProtocol, DetailPayloadSize, "recv_frame")
	}
	rest := total - frameHeaderSize
	n2, err := s.cfg.Transport.Recv(buf[frameHeaderSize:total], timeout)
	if err != nil {
		return frameHeader{}, nil, s.fail(StatusIO, DetailRecvFailed, "recv_frame")
	}
	if n2 < rest {
		return frameHeader{}, nil, errTimeout
	}
	decHdr, content, err := decodeFrame(s.cfg.CRC, buf[:total])
	if err != nil {
		if errors.Is(err, errFrameCRC) {
			s.metrics.recordCRCError()
			return frameHeader{}, nil, errFrameCRC
		}
		return frameHeader{}, nil, s.fail(StatusProtocol, DetailMalformedPkt, "recv_frame")
	}
	s.metrics.recordRecv(decHdr.Type, total)
	s.audit.record(WireAuditEntry{TraceID: s.id, Direction: "rx", Type: decHdr.Type.String(), Offset: uint64(decHdr.TypeData), Len: total})
	s.logger.Debugf("rx %s flags=0x%02x type_data=%d len=%d", decHdr.Type, decHdr.Flags, decHdr.TypeData, total)
	return decHdr, content, nil
}
