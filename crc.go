package val

import "hash/crc32"

// CRC32Hook lets a caller substitute a hardware-accelerated CRC32 engine
// for the built-in software one ("expose as a trait with
// init/update/final and a default software implementation"). The
// polynomial, reflection, and final-XOR must match IEEE 802.3
// (0xEDB88320 reflected, init 0xFFFFFFFF, final XOR 0xFFFFFFFF) for
// interoperability with other VAL implementations.
type CRC32Hook interface {
	Init() uint32
	Update(crc uint32, data []byte) uint32
	Final(crc uint32) uint32
}

// softwareCRC32 is the built-in reflected IEEE 802.3 CRC32, used whenever
// Config.CRC is nil.
type softwareCRC32 struct{}

// Init/Update/Final mirror stdlib crc32.Checksum's own internal
// complement-on-entry/exit (see crc32.Update), so the accumulator passed
// between calls here must stay un-complemented between Init and Final.
func (softwareCRC32) Init() uint32 { return 0 }

func (softwareCRC32) Update(crc uint32, data []byte) uint32 {
	return crc32.Update(crc, crc32.IEEETable, data)
}

func (softwareCRC32) Final(crc uint32) uint32 { return crc }

// crc32OneShot computes the CRC32 of data in a single call using hook.
func crc32OneShot(hook CRC32Hook, data []byte) uint32 {
	return hook.Final(hook.Update(hook.Init(), data))
}

// crcStream accumulates a CRC32 across multiple Write calls; used by the
// resume engine's tail/prefix verify and by the optional whole-file
// integrity check during transfer.
type crcStream struct {
	hook CRC32Hook
	crc  uint32
}

func newCRCStream(hook CRC32Hook) *crcStream {
	if hook == nil {
		hook = softwareCRC32{}
	}
	return &crcStream{hook: hook, crc: hook.Init()}
}

func (s *crcStream) Write(p []byte) (int, error) {
	s.crc = s.hook.Update(s.crc, p)
	return len(p), nil
}

func (s *crcStream) Sum() uint32 { return s.hook.Final(s.crc) }
