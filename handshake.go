package val

import (
	"time"
)

// doHandshake runs the single-round-trip HELLO exchange.
// isInitiator distinguishes the side that speaks first: SendFiles always
// initiates, ReceiveFiles always waits first and replies.
func (s *Session) doHandshake(isInitiator bool) error {
	local := s.localHello()

	var peer helloPayload
	var err error
	if isInitiator {
		peer, err = s.handshakeInitiate(local)
	} else {
		peer, err = s.handshakeRespond(local)
	}
	if err != nil {
		return err
	}

	if peer.VersionMajor != protocolVerMajor {
		return s.fail(StatusIncompatibleVersion, DetailVersion, "handshake")
	}

	rawPacketSize := min(local.PacketSize, peer.PacketSize)
	negotiatedPacketSize := int(clampU32(rawPacketSize, MinPacketSize, MaxPacketSize))
	if negotiatedPacketSize > len(s.cfg.SendBuffer) || negotiatedPacketSize > len(s.cfg.RecvBuffer) {
		return s.fail(StatusPacketSizeMismatch, DetailPacketSize, "handshake")
	}

	if peer.Required&^local.Features != 0 {
		return s.fail(StatusFeatureNegotiation, setMissingFeature(peer.Required&^local.Features), "handshake")
	}
	if local.Required&^peer.Features != 0 {
		return s.fail(StatusFeatureNegotiation, setMissingFeature(local.Required&^peer.Features), "handshake")
	}

	inflight := min(int(local.TxMaxWindowPackets), int(peer.RxMaxWindowPackets))
	inflight = min(inflight, int(peer.TxMaxWindowPackets))
	inflight = min(inflight, s.cwnd.cap)

	stride := local.AckStridePackets
	if peer.AckStridePackets < stride {
		stride = peer.AckStridePackets
	}
	if stride == 0 {
		stride = 1
	}

	s.effectivePacketSize = negotiatedPacketSize
	s.effectiveInflightCap = inflight
	s.effectiveAckStride = stride
	s.cwnd.cap = inflight
	if s.cwnd.cwnd > inflight {
		s.cwnd.cwnd = inflight
	}
	s.peerTxMode = rungFor(inflight)
	s.metrics.recordHandshake()
	s.logger.Infof("handshake complete: packet_size=%d inflight_cap=%d ack_stride=%d",
		negotiatedPacketSize, inflight, stride)
	return nil
}

func (s *Session) localHello() helloPayload {
	stride := s.cfg.AckStridePackets
	if stride == 0 {
		stride = 1
	}
	rxWin := s.cfg.RxMaxWindowPackets
	txWin := s.cfg.TxMaxWindowPackets
	return helloPayload{
		Magic:              wireMagic,
		VersionMajor:       protocolVerMajor,
		VersionMinor:       protocolVerMinor,
		PacketSize:         uint32(s.cfg.PacketSize),
		Features:           s.cfg.SupportedFeatures,
		Required:           s.cfg.RequiredFeatures,
		Requested:          s.cfg.RequestedFeatures,
		TxMaxWindowPackets: txWin,
		RxMaxWindowPackets: rxWin,
		AckStridePackets:   stride,
	}
}

func (s *Session) sendHello(h helloPayload) error {
	buf := make([]byte, helloPayloadSize)
	if err := encodeHello(h, buf); err != nil {
		return s.fail(StatusProtocol, DetailMalformedPkt, "handshake")
	}
	return s.sendFrame(ftHello, 0, 0, buf)
}

// handshakeInitiate sends HELLO and waits for the peer's HELLO,
// retransmitting on timeout up to Retries.Handshake times.
func (s *Session) handshakeInitiate(local helloPayload) (helloPayload, error) {
	deadline := s.rto.HardDeadlineMs(s.cfg.Retries.Handshake)
	start := s.cfg.Clock.NowMs()
	for attempt := 0; ; attempt++ {
		if err := s.sendHello(local); err != nil {
			return helloPayload{}, err
		}
		hdr, content, err := s.recvFrame(time.Duration(s.rto.RTOMs()) * time.Millisecond)
		switch {
		case err == nil:
			if hdr.Type != ftHello {
				continue
			}
			peer, derr := decodeHello(content)
			if derr != nil {
				return helloPayload{}, s.fail(StatusProtocol, DetailMalformedPkt, "handshake")
			}
			return peer, nil
		case err == errTimeout || err == errFrameCRC:
			s.metrics.recordTimeoutSoft()
			if attempt >= s.cfg.Retries.Handshake {
				s.metrics.recordTimeoutHard()
				return helloPayload{}, s.fail(StatusTimeout, DetailTimeoutHello, "handshake")
			}
			if elapsedMs(start, s.cfg.Clock.NowMs()) > deadline {
				return helloPayload{}, s.fail(StatusTimeout, DetailTimeoutHello, "handshake")
			}
			s.rto.Backoff()
			continue
		default:
			return helloPayload{}, err
		}
	}
}

// handshakeRespond waits for the peer's HELLO and replies once: the
// responder never retransmits on its own, since the initiator's
// retransmission covers loss of the first HELLO.
func (s *Session) handshakeRespond(local helloPayload) (helloPayload, error) {
	deadline := s.rto.HardDeadlineMs(s.cfg.Retries.Handshake)
	start := s.cfg.Clock.NowMs()
	for attempt := 0; ; attempt++ {
		hdr, content, err := s.recvFrame(time.Duration(s.rto.RTOMs()) * time.Millisecond)
		switch {
		case err == nil:
			if hdr.Type != ftHello {
				continue
			}
			peer, derr := decodeHello(content)
			if derr != nil {
				return helloPayload{}, s.fail(StatusProtocol, DetailMalformedPkt, "handshake")
			}
			if err := s.sendHello(local); err != nil {
				return helloPayload{}, err
			}
			return peer, nil
		case err == errTimeout || err == errFrameCRC:
			s.metrics.recordTimeoutSoft()
			if attempt >= s.cfg.Retries.Handshake {
				s.metrics.recordTimeoutHard()
				return helloPayload{}, s.fail(StatusTimeout, DetailTimeoutHello, "handshake")
			}
			if elapsedMs(start, s.cfg.Clock.NowMs()) > deadline {
				return helloPayload{}, s.fail(StatusTimeout, DetailTimeoutHello, "handshake")
			}
			continue
		default:
			return helloPayload{}, err
		}
	}
}
