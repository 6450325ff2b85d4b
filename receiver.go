package val

import (
	"path/filepath"
	"time"
)

// ReceiveFiles runs the receiver role for one batch: respond to the
// handshake, then loop accepting SEND_META/DATA/DONE cycles until EOT
// arrives.
func (s *Session) ReceiveFiles(outputDir string) (StatusCode, error) {
	if !s.acquire() {
		return StatusInvalidArg, s.fail(StatusInvalidArg, DetailInvalidState, "receive_files")
	}
	defer s.release()
	if s.isTerminal() {
		return StatusAborted, s.fail(StatusAborted, 0, "receive_files")
	}

	if err := s.doHandshake(false); err != nil {
		return StatusIO, err
	}

	filesCompleted := uint32(0)
	for {
		if s.isTerminal() {
			return StatusAborted, s.fail(StatusAborted, 0, "receive_files")
		}
		hdr, content, err := s.recvFrame(time.Duration(s.rto.RTOMs()) * time.Millisecond)
		if err != nil {
			if err == errTimeout || err == errFrameCRC {
				continue
			}
			return StatusIO, err
		}

		switch hdr.Type {
		case ftSendMeta:
			status, err := s.receiveOneFile(content, outputDir, filesCompleted)
			if err != nil {
				return status, err
			}
			if status == StatusOK {
				filesCompleted++
			}
		case ftEOT:
			if err := s.sendFrame(ftEOTAck, 0, hdr.TypeData, nil); err != nil {
				return StatusIO, err
			}
			return StatusOK, nil
		case ftCancel:
			return StatusAborted, s.fail(StatusAborted, 0, "receive_files")
		default:
			// Ignore stray/duplicate frames between file cycles.
		}
	}
}

func (s *Session) receiveOneFile(metaContent []byte, outputDir string, fileIndex uint32) (StatusCode, error) {
	meta, err := decodeMeta(metaContent)
	if err != nil {
		return StatusProtocol, s.fail(StatusProtocol, DetailMalformedPkt, "recv_meta")
	}
	filename := filepath.Base(meta.Filename)
	targetPath := filepath.Join(outputDir, filename)

	decision, err := s.decideResume(FileMeta{Filename: meta.Filename, SenderPath: meta.SenderPath, FileSize: meta.FileSize}, targetPath)
	if err != nil {
		return StatusIO, err
	}

	var localCRC uint32
	if decision.Action == resumeVerifyRequired {
		windowStart := decision.Offset - decision.VerifyLen
		localCRC, err = s.windowCRC(targetPath, windowStart, decision.VerifyLen)
		if err != nil {
			return StatusIO, err
		}
	}

	resp := resumeRespPayload{Action: decision.Action, ResumeOffset: decision.Offset, VerifyLength: decision.VerifyLen}
	buf := make([]byte, resumeRespPayloadSize)
	if err := encodeResumeResp(resp, buf); err != nil {
		return StatusProtocol, s.fail(StatusProtocol, DetailMalformedPkt, "resume_resp")
	}
	if err := s.sendFrame(ftResumeResp, 0, 0, buf); err != nil {
		return StatusIO, err
	}

	switch decision.Action {
	case resumeSkip:
		s.notifyComplete(filename, meta.SenderPath, FileCompletionStatus{Status: StatusSkipped})
		return StatusSkipped, nil
	case resumeAbort:
		return StatusAborted, s.fail(StatusAborted, 0, "recv_file")
	}

	startOffset := uint64(0)
	if decision.Action == resumeFromOffset {
		startOffset = decision.Offset
	}

	if decision.Action == resumeVerifyRequired {
		startOffset, err = s.receiverVerify(targetPath, localCRC, decision)
		if err != nil {
			return StatusResumeVerify, err
		}
	}

	if s.cfg.OnFileStart != nil {
		s.cfg.OnFileStart(filename, meta.SenderPath, meta.FileSize, startOffset)
	}

	f, err := s.cfg.Filesystem.OpenWrite(targetPath)
	if err != nil {
		return StatusIO, s.fail(StatusIO, DetailPermission, "recv_file")
	}
	defer f.Close()
	if startOffset > 0 {
		if _, err := f.Seek(int64(startOffset), SeekSet); err != nil {
			return StatusIO, s.fail(StatusIO, DetailOffsetError, "recv_file")
		}
	}

	if err := s.recvDataLoop(f, startOffset, meta.FileSize, filename, fileIndex); err != nil {
		s.notifyComplete(filename, meta.SenderPath, FileCompletionStatus{Status: StatusIO, Err: err})
		return StatusIO, err
	}

	if _, _, err := s.awaitType(ftDone, s.cfg.Retries.Data, DetailTimeoutData); err != nil {
		return StatusTimeout, err
	}
	if err := s.sendFrame(ftDoneAck, 0, 0, nil); err != nil {
		return StatusIO, err
	}

	s.metrics.recordFileRecv()
	s.notifyComplete(filename, meta.SenderPath, FileCompletionStatus{Status: StatusOK})
	return StatusOK, nil
}

// receiverVerify waits for the sender's VERIFY frame, compares it
// against localCRC (computed earlier over the same window from the
// receiver's own partial file), and replies with the verdict. The
// receiver is the authoritative comparer. On a mismatch the *_OR_ZERO
// modes restart the file at offset zero; the other modes reply ABORT and
// fail with StatusResumeVerify.
func (s *Session) receiverVerify(targetPath string, localCRC uint32, decision resumeDecision) (uint64, error) {
	_, content, err := s.awaitType(ftVerify, s.cfg.Retries.Ack, DetailTimeoutData)
	if err != nil {
		return 0, err
	}
	vreq, err := decodeVerifyReq(content)
	if err != nil {
		return 0, s.fail(StatusProtocol, DetailMalformedPkt, "verify_req")
	}

	match := vreq.CRC == localCRC
	orZero := s.cfg.Resume.Mode == ResumeCRCTailOrZero || s.cfg.Resume.Mode == ResumeCRCFullOrZero
	var status resumeAction
	var startOffset uint64
	if match {
		status = resumeFromOffset
		startOffset = decision.Offset
	} else {
		s.metrics.recordCRCError()
		status = resumeAbort
		if orZero {
			status = resumeRestartZero
		}
		startOffset = 0
	}

	vresp := verifyRespPayload{Status: int32(status), ReceiverCRC: localCRC}
	buf := make([]byte, verifyRespPayloadSize)
	if err := encodeVerifyResp(vresp, buf); err != nil {
		return 0, s.fail(StatusProtocol, DetailMalformedPkt, "verify_resp")
	}
	if err := s.sendFrame(ftVerify, 0, 0, buf); err != nil {
		return 0, err
	}
	if !match && !orZero {
		return 0, s.fail(StatusResumeVerify, DetailCRCResume, "verify")
	}
	return startOffset, nil
}

// recvDataLoop accepts DATA frames whose offset matches the current
// write offset, writing each one and acknowledging every ack_stride
// packets. A frame whose offset is ahead of write_offset is discarded
// and triggers a DATA_NAK carrying next_expected_offset; a frame whose
// offset is behind write_offset is a harmless duplicate retransmission
// and is silently ignored, per the Go-Back-N contract the sender
// implements.
func (s *Session) recvDataLoop(f File, startOffset, fileSize uint64, filename string, fileIndex uint32) error {
	writeOffset := startOffset
	sinceAck := byte(0)
	retryCount := 0
	start := s.cfg.Clock.NowMs()
	hardDeadline := s.rto.HardDeadlineMs(s.cfg.Retries.Data)

	for writeOffset < fileSize {
		if s.isTerminal() {
			return s.fail(StatusAborted, 0, "recv_data")
		}
		hdr, content, err := s.recvFrame(time.Duration(s.rto.RTOMs()) * time.Millisecond)
		switch {
		case err == nil:
			if hdr.Type != ftData {
				continue
			}
			payload := content
			var incomingOffset uint64
			if hdr.Flags&dataFlagOffsetPresent != 0 {
				if len(payload) < 8 {
					return s.fail(StatusProtocol, DetailMalformedPkt, "recv_data")
				}
				incomingOffset = getU64(payload[:8])
				payload = payload[8:]
			} else {
				incomingOffset = reconstructOffset(hdr.TypeData, writeOffset)
			}

			switch {
			case incomingOffset > writeOffset:
				if err := s.sendNak(writeOffset); err != nil {
					return err
				}
				continue
			case incomingOffset < writeOffset:
				// Duplicate retransmission of already-written bytes; ignore.
				continue
			}

			if _, err := f.Write(payload); err != nil {
				return s.fail(StatusIO, DetailDiskFull, "recv_data")
			}
			writeOffset += uint64(len(payload))
			sinceAck++
			retryCount = 0

			final := hdr.Flags&dataFlagFinalChunk != 0
			stride := s.effectiveAckStride
			if stride == 0 {
				stride = 1
			}
			if sinceAck >= stride || final {
				flags := byte(0)
				if final {
					flags |= ackFlagEOF
				}
				if err := s.sendFrame(ftDataAck, flags, uint32(writeOffset), nil); err != nil {
					return err
				}
				sinceAck = 0
			}
			s.reportProgress(filename, writeOffset-startOffset, fileSize-startOffset, fileIndex, fileIndex+1)
		case err == errFrameCRC:
			s.metrics.recordCRCError()
			continue
		case err == errTimeout:
			retryCount++
			s.metrics.recordTimeoutSoft()
			if retryCount > s.cfg.Retries.Data || elapsedMs(start, s.cfg.Clock.NowMs()) > hardDeadline {
				s.metrics.recordTimeoutHard()
				return s.fail(StatusTimeout, DetailTimeoutData, "recv_data")
			}
			// Heartbeat ACK lets the sender's retransmit timer resync
			// without waiting for its own RTO if our last ACK was lost.
			if err := s.sendFrame(ftDataAck, ackFlagHeartbeat, uint32(writeOffset), nil); err != nil {
				return err
			}
		default:
			return err
		}
	}
	return nil
}

func (s *Session) sendNak(expectedOffset uint64) error {
	return s.sendFrame(ftDataNak, nakReasonOffsetError, uint32(expectedOffset), nil)
}
