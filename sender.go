package val

import (
	"path/filepath"
	"time"
)

// pendingChunk tracks one in-flight DATA frame for Go-Back-N
// retransmission and RTT sampling.
type pendingChunk struct {
	Offset   uint64
	Length   int
	SentAtMs uint32
}

// SendFiles runs the sender role for one batch: handshake, then each
// file in turn (SEND_META -> resume sub-protocol -> bounded-window DATA
// loop -> DONE), then a single EOT at the end of the batch.
func (s *Session) SendFiles(paths []string, senderPathHint string) (StatusCode, error) {
	if !s.acquire() {
		return StatusInvalidArg, s.fail(StatusInvalidArg, DetailInvalidState, "send_files")
	}
	defer s.release()
	if s.isTerminal() {
		return StatusAborted, s.fail(StatusAborted, 0, "send_files")
	}

	if err := s.doHandshake(true); err != nil {
		return StatusIO, err
	}

	total := 0
	completed := uint32(0)
	for _, path := range paths {
		if s.isTerminal() {
			return StatusAborted, s.fail(StatusAborted, 0, "send_files")
		}
		status, err := s.sendOneFile(path, senderPathHint, completed, uint32(len(paths)))
		if err != nil {
			return status, err
		}
		if status == StatusOK {
			total++
		}
		completed++
	}

	if err := s.sendFrame(ftEOT, 0, uint32(total), nil); err != nil {
		return StatusIO, err
	}
	if _, _, err := s.awaitType(ftEOTAck, s.cfg.Retries.Ack, DetailTimeoutData); err != nil {
		return StatusTimeout, err
	}
	return StatusOK, nil
}

func (s *Session) sendOneFile(path, senderPathHint string, fileIndex, fileCount uint32) (StatusCode, error) {
	size, exists, err := s.cfg.Filesystem.Stat(path)
	if err != nil || !exists {
		return StatusIO, s.fail(StatusIO, DetailFileNotFound, "send_file")
	}
	filename := filepath.Base(path)
	if len(filename) > MaxFilenameLen {
		filename = filename[:MaxFilenameLen]
	}
	meta := metaPayload{Filename: filename, SenderPath: senderPathHint, FileSize: uint64(size)}

	buf := make([]byte, metaPayloadSize)
	if err := encodeMeta(meta, buf); err != nil {
		return StatusProtocol, s.fail(StatusProtocol, DetailMalformedPkt, "send_meta")
	}
	if err := s.sendFrame(ftSendMeta, 0, 0, buf); err != nil {
		return StatusIO, err
	}

	_, content, err := s.awaitType(ftResumeResp, s.cfg.Retries.Meta, DetailTimeoutMeta)
	if err != nil {
		return StatusTimeout, err
	}
	resp, err := decodeResumeResp(content)
	if err != nil {
		return StatusProtocol, s.fail(StatusProtocol, DetailMalformedPkt, "resume_resp")
	}

	offset := uint64(0)
	switch resp.Action {
	case resumeSkip:
		s.notifyComplete(filename, senderPathHint, FileCompletionStatus{Status: StatusSkipped})
		return StatusSkipped, nil
	case resumeAbort:
		return StatusAborted, s.fail(StatusAborted, 0, "send_file")
	case resumeRestartZero:
		offset = 0
	case resumeFromOffset:
		offset = resp.ResumeOffset
	case resumeVerifyRequired:
		action, verifiedOffset, err := s.senderVerify(path, resp)
		if err != nil {
			return StatusIO, err
		}
		switch action {
		case resumeFromOffset:
			offset = verifiedOffset
		case resumeRestartZero:
			offset = 0
		default:
			return StatusResumeVerify, s.fail(StatusResumeVerify, DetailCRCResume, "resume_verify")
		}
	default:
		return StatusProtocol, s.fail(StatusProtocol, DetailInvalidState, "resume_resp")
	}

	if s.cfg.OnFileStart != nil {
		s.cfg.OnFileStart(filename, senderPathHint, uint64(size), offset)
	}

	f, err := s.cfg.Filesystem.OpenRead(path)
	if err != nil {
		return StatusIO, s.fail(StatusIO, DetailFileNotFound, "send_file")
	}
	defer f.Close()
	if offset > 0 {
		if _, err := f.Seek(int64(offset), SeekSet); err != nil {
			return StatusIO, s.fail(StatusIO, DetailOffsetError, "send_file")
		}
	}

	if err := s.sendDataLoop(f, offset, uint64(size), fileIndex, fileCount, filename); err != nil {
		s.notifyComplete(filename, senderPathHint, FileCompletionStatus{Status: StatusIO, Err: err})
		return StatusIO, err
	}

	if err := s.sendFrame(ftDone, 0, uint32(size), nil); err != nil {
		return StatusIO, err
	}
	if _, _, err := s.awaitType(ftDoneAck, s.cfg.Retries.Ack, DetailTimeoutData); err != nil {
		return StatusTimeout, err
	}

	s.metrics.recordFileSent()
	s.notifyComplete(filename, senderPathHint, FileCompletionStatus{Status: StatusOK})
	return StatusOK, nil
}

// senderVerify performs the sender's half of the VERIFY sub-protocol:
// hash the requested window of the source file and let the receiver (the
// authoritative comparer) decide the outcome.
func (s *Session) senderVerify(path string, resp resumeRespPayload) (resumeAction, uint64, error) {
	windowStart := resp.ResumeOffset - resp.VerifyLength
	crc, err := s.windowCRC(path, windowStart, resp.VerifyLength)
	if err != nil {
		return resumeAbort, 0, err
	}
	v := verifyReqPayload{Offset: windowStart, CRC: crc, Length: uint32(resp.VerifyLength)}
	buf := make([]byte, verifyReqPayloadSize)
	if err := encodeVerifyReq(v, buf); err != nil {
		return resumeAbort, 0, s.fail(StatusProtocol, DetailMalformedPkt, "verify")
	}
	if err := s.sendFrame(ftVerify, 0, 0, buf); err != nil {
		return resumeAbort, 0, err
	}
	_, content, err := s.awaitType(ftVerify, s.cfg.Retries.Ack, DetailTimeoutData)
	if err != nil {
		return resumeAbort, 0, err
	}
	vr, err := decodeVerifyResp(content)
	if err != nil {
		return resumeAbort, 0, s.fail(StatusProtocol, DetailMalformedPkt, "verify_resp")
	}
	return resumeAction(vr.Status), resp.ResumeOffset, nil
}

// sendDataLoop drives the bounded-window, Go-Back-N DATA transfer for
// one file.
func (s *Session) sendDataLoop(f File, startOffset, fileSize uint64, fileIndex, fileCount uint32, filename string) error {
	payloadCap := s.effectivePacketSize - frameHeaderSize - frameTrailerSize - 8 // reserve room for the leading offset
	if payloadCap <= 0 {
		payloadCap = MinPacketSize
	}

	curOffset := startOffset
	firstFrame := true
	eofReached := false
	var inflight []pendingChunk
	readBuf := make([]byte, payloadCap)
	var bytesAcked uint64
	retryCount := 0
	start := s.cfg.Clock.NowMs()
	hardDeadline := s.rto.HardDeadlineMs(s.cfg.Retries.Data)

	for !eofReached || len(inflight) > 0 {
		if s.isTerminal() {
			return s.fail(StatusAborted, 0, "send_data")
		}
		for len(inflight) < s.cwnd.Cwnd() && !eofReached {
			n, rerr := f.Read(readBuf)
			if n == 0 {
				eofReached = true
				break
			}
			final := curOffset+uint64(n) >= fileSize

			var content []byte
			flags := byte(0)
			if firstFrame {
				flags |= dataFlagOffsetPresent
				content = make([]byte, 8+n)
				putU64(content[:8], curOffset)
				copy(content[8:], readBuf[:n])
				firstFrame = false
			} else {
				content = readBuf[:n]
			}
			if final {
				flags |= dataFlagFinalChunk
			}

			if err := s.sendFrame(ftData, flags, uint32(curOffset), content); err != nil {
				return err
			}
			inflight = append(inflight, pendingChunk{Offset: curOffset, Length: n, SentAtMs: s.cfg.Clock.NowMs()})
			curOffset += uint64(n)
			if rerr != nil {
				eofReached = true
			}
		}

		if len(inflight) == 0 {
			break
		}

		hdr, content, err := s.recvFrame(time.Duration(s.rto.RTOMs()) * time.Millisecond)
		switch {
		case err == nil:
			switch hdr.Type {
			case ftDataAck:
				retryCount = 0
				nextExpected := reconstructOffset(hdr.TypeData, curOffset)
				advanced := false
				for len(inflight) > 0 && inflight[0].Offset+uint64(inflight[0].Length) <= nextExpected {
					s.rto.Sample(elapsedMs(inflight[0].SentAtMs, s.cfg.Clock.NowMs()))
					s.metrics.recordRTTSample(elapsedMs(inflight[0].SentAtMs, s.cfg.Clock.NowMs()))
					bytesAcked += uint64(inflight[0].Length)
					inflight = inflight[1:]
					advanced = true
				}
				s.cwnd.onAck(advanced)
				s.reportProgress(filename, bytesAcked, fileSize, fileIndex, fileCount)
			case ftDataNak:
				s.cwnd.onLossSignal()
				s.metrics.recordRetransmit()
				target := reconstructOffset(hdr.TypeData, curOffset)
				if err := seekTo(f, target); err != nil {
					return err
				}
				curOffset, inflight, firstFrame, eofReached = target, nil, true, false
			default:
				// unrelated frame (e.g. stray RESUME_RESP); ignore and keep waiting
			}
		case err == errTimeout:
			retryCount++
			s.metrics.recordTimeoutSoft()
			if retryCount > s.cfg.Retries.Data || elapsedMs(start, s.cfg.Clock.NowMs()) > hardDeadline {
				s.metrics.recordTimeoutHard()
				return s.fail(StatusTimeout, DetailTimeoutData, "send_data")
			}
			s.rto.Backoff()
			s.cwnd.onLossSignal()
			s.metrics.recordRetransmit()
			// Go-Back-N: the whole window is presumed lost. Rewind the
			// file cursor to the oldest unacked chunk and let the
			// fill-window step above re-read and resend it from disk.
			target := inflight[0].Offset
			if err := seekTo(f, target); err != nil {
				return err
			}
			curOffset, inflight, firstFrame, eofReached = target, nil, true, false
		case err == errFrameCRC:
			// corrupted ACK/NAK: treat like silence, let the RTO retry.
			continue
		default:
			return err
		}
	}
	return nil
}

func seekTo(f File, offset uint64) error {
	_, err := f.Seek(int64(offset), SeekSet)
	return err
}

func (s *Session) notifyComplete(filename, senderPath string, status FileCompletionStatus) {
	if s.cfg.OnFileComplete != nil {
		s.cfg.OnFileComplete(filename, senderPath, status)
	}
}

func (s *Session) reportProgress(filename string, acked, total uint64, fileIndex, fileCount uint32) {
	if s.cfg.OnProgress == nil {
		return
	}
	s.cfg.OnProgress(ProgressInfo{
		BytesTransferred: acked,
		TotalBytes:       total,
		CurrentFileBytes: acked,
		FilesCompleted:   fileIndex,
		TotalFiles:       fileCount,
		CurrentFilename:  filename,
	})
}

// awaitType waits for a frame of type want, discarding unrelated frames;
// after the first RTO-timed wait it retries up to maxRetries more times.
func (s *Session) awaitType(want frameType, maxRetries int, timeoutDetail uint32) (frameHeader, []byte, error) {
	for attempt := 0; ; attempt++ {
		hdr, content, err := s.recvFrame(time.Duration(s.rto.RTOMs()) * time.Millisecond)
		switch {
		case err == nil:
			if hdr.Type == want {
				return hdr, content, nil
			}
			if hdr.Type == ftError {
				ep, _ := decodeErrorPayload(content)
				return frameHeader{}, nil, s.fail(StatusCode(ep.Code), ep.Detail, "peer_error")
			}
			continue
		case err == errTimeout || err == errFrameCRC:
			s.metrics.recordTimeoutSoft()
			if attempt >= maxRetries {
				s.metrics.recordTimeoutHard()
				return frameHeader{}, nil, s.fail(StatusTimeout, timeoutDetail, "await_frame")
			}
			s.rto.Backoff()
			continue
		default:
			return frameHeader{}, nil, err
		}
	}
}
