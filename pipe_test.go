package val

import (
	"sync"
	"time"
)

// pipeTransport is an in-memory, fault-injectable full-duplex transport
// connecting two Sessions within one test process, grounded on
// xx25-go-zmodem's loopback test harness (a pair of Transports feeding
// sender and receiver directly into each other without a real serial
// line).
type pipeTransport struct {
	mu   sync.Mutex
	peer *pipeTransport
	buf  []byte

	// dropNext, when >0, discards the next N writes instead of
	// delivering them; corruptNth inverts the last byte of the Nth write,
	// 0 means never. Both simulate lossy/noisy links for the resume/retransmit
	// tests.
	dropNext   int
	corruptNth int
	writeCount int
}

func newPipePair() (a, b *pipeTransport) {
	a = &pipeTransport{}
	b = &pipeTransport{}
	a.peer, b.peer = b, a
	return a, b
}

func (p *pipeTransport) Send(data []byte) error {
	p.mu.Lock()
	p.writeCount++
	drop := false
	if p.dropNext > 0 {
		p.dropNext--
		drop = true
	}
	corrupt := p.corruptNth > 0 && p.writeCount == p.corruptNth
	p.mu.Unlock()
	if drop {
		return nil
	}

	cp := append([]byte(nil), data...)
	if corrupt && len(cp) > 0 {
		cp[len(cp)-1] ^= 0xFF
	}
	peer := p.peer
	peer.mu.Lock()
	peer.buf = append(peer.buf, cp...)
	peer.mu.Unlock()
	return nil
}

// Recv polls its own inbox until out fills or timeout elapses, matching
// the "received<len(out) with nil error means timeout" contract.
func (p *pipeTransport) Recv(out []byte, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	const pollInterval = time.Millisecond
	for {
		p.mu.Lock()
		if len(p.buf) >= len(out) {
			n := copy(out, p.buf)
			p.buf = p.buf[n:]
			p.mu.Unlock()
			return n, nil
		}
		p.mu.Unlock()
		if time.Now().After(deadline) {
			p.mu.Lock()
			n := copy(out, p.buf)
			p.buf = p.buf[n:]
			p.mu.Unlock()
			return n, nil
		}
		time.Sleep(pollInterval)
	}
}
