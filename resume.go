package val

import "io"

// resumeDecision is the receiver's verdict for one incoming file: what
// the sender should do, and — for the VERIFY_REQUIRED case — which byte
// range both sides must independently hash before either commits to it.
type resumeDecision struct {
	Action    resumeAction
	Offset    uint64 // resume/verify window end (exclusive) for tail windows, or full length for CRC_FULL*
	VerifyLen uint64
}

// computeResumeDecision implements the mode x local-state decision
// matrix. localExists/localSize describe the receiver's
// current file at the target path; incomingSize is what SEND_META
// announced.
func computeResumeDecision(mode ResumeMode, crcVerifyBytes uint32, localExists bool, localSize int64, incomingSize uint64) resumeDecision {
	if !localExists {
		return resumeDecision{Action: resumeFromOffset, Offset: 0}
	}
	ls := uint64(localSize)

	switch mode {
	case ResumeNever:
		// When a metadata validator is installed, decideResume has already
		// run it and only ValidationAccept gets here; an existing local
		// file always restarts at zero.
		return resumeDecision{Action: resumeRestartZero}

	case ResumeSkipExisting:
		return resumeDecision{Action: resumeSkip}

	case ResumeCRCTail, ResumeCRCTailOrZero:
		window := uint64(crcVerifyBytes)
		if window == 0 {
			window = fullVerifyCapBytes
		}
		if window > ls {
			window = ls
		}
		switch {
		case ls < incomingSize:
			return resumeDecision{Action: resumeVerifyRequired, Offset: ls, VerifyLen: window}
		case ls == incomingSize:
			return resumeDecision{Action: resumeVerifyRequired, Offset: ls, VerifyLen: window}
		default: // local larger than incoming
			if mode == ResumeCRCTailOrZero {
				return resumeDecision{Action: resumeRestartZero}
			}
			return resumeDecision{Action: resumeAbort}
		}

	case ResumeCRCFull, ResumeCRCFullOrZero:
		window := ls
		if window > fullVerifyCapBytes {
			window = fullVerifyCapBytes // large-tail fallback, 
		}
		switch {
		case ls < incomingSize:
			return resumeDecision{Action: resumeVerifyRequired, Offset: ls, VerifyLen: window}
		case ls == incomingSize:
			return resumeDecision{Action: resumeVerifyRequired, Offset: ls, VerifyLen: window}
		default:
			if mode == ResumeCRCFullOrZero {
				return resumeDecision{Action: resumeRestartZero}
			}
			return resumeDecision{Action: resumeAbort}
		}
	}
	return resumeDecision{Action: resumeRestartZero}
}

// decideResume runs the metadata validator (ResumeNever only) and the
// resume decision matrix for one incoming file, opening the local target
// to stat it.
func (s *Session) decideResume(meta FileMeta, targetPath string) (resumeDecision, error) {
	size, exists, err := s.cfg.Filesystem.Stat(targetPath)
	if err != nil {
		return resumeDecision{}, s.fail(StatusIO, DetailFileNotFound, "resume_decide")
	}

	if s.cfg.Resume.Mode == ResumeNever && s.cfg.MetadataValidator != nil {
		switch s.cfg.MetadataValidator(meta, targetPath) {
		case ValidationSkip:
			return resumeDecision{Action: resumeSkip}, nil
		case ValidationAbort:
			return resumeDecision{Action: resumeAbort}, nil
		}
	}

	return computeResumeDecision(s.cfg.Resume.Mode, s.cfg.Resume.CRCVerifyBytes, exists, size, meta.FileSize), nil
}

// windowCRC computes the CRC32 of [start, start+length) read from path,
// shared by the receiver (verifying its own partial file) and the sender
// (verifying the corresponding range of its source file).
func (s *Session) windowCRC(path string, start, length uint64) (uint32, error) {
	f, err := s.cfg.Filesystem.OpenRead(path)
	if err != nil {
		return 0, s.fail(StatusIO, DetailFileNotFound, "verify_window")
	}
	defer f.Close()

	if _, err := f.Seek(int64(start), SeekSet); err != nil {
		return 0, s.fail(StatusIO, DetailOffsetError, "verify_window")
	}

	stream := newCRCStream(s.cfg.CRC)
	remaining := length
	buf := s.cfg.RecvBuffer
	if len(buf) == 0 {
		buf = make([]byte, MinPacketSize)
	}
	for remaining > 0 {
		chunk := buf
		if uint64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}
		n, err := f.Read(chunk)
		if n > 0 {
			stream.Write(chunk[:n])
			remaining -= uint64(n)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return 0, s.fail(StatusIO, DetailOffsetError, "verify_window")
		}
		if n == 0 {
			break
		}
	}
	return stream.Sum(), nil
}
