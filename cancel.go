package val

// EmergencyCancel best-effort writes a single CANCEL frame and flips the
// session into a terminal state so every subsequent public call
// short-circuits to StatusAborted. It is the one method
// safe to call from outside the goroutine driving SendFiles/ReceiveFiles
// — for example from a signal handler — provided the Transport's Send
// hook is itself safe to call concurrently with a blocking Recv.
func (s *Session) EmergencyCancel() (StatusCode, error) {
	alreadyTerminal := s.cancel.Swap(true)
	if alreadyTerminal {
		return StatusAborted, nil
	}
	// Best-effort: a failed write here does not change the outcome, the
	// session is terminal either way.
	_ = s.cfg.Transport.Send(cancelFrameBytes(s.cfg.CRC))
	e := newErr(StatusAborted, 0, "emergency_cancel")
	s.setLastError(e)
	return StatusAborted, e
}

func cancelFrameBytes(hook CRC32Hook) []byte {
	buf := make([]byte, frameHeaderSize+frameTrailerSize)
	n, err := encodeFrame(hook, buf, ftCancel, 0, 0, nil)
	if err != nil {
		return nil
	}
	return buf[:n]
}
