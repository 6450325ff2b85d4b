package val

// Byte-order helpers for the wire codec. VAL is little-endian on the wire
// regardless of host endianness; these wrap encoding/binary's
// LittleEndian so callers never have to reason about host byte order.

import "encoding/binary"

func putU16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func getU16(b []byte) uint16    { return binary.LittleEndian.Uint16(b) }

func putU32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func getU32(b []byte) uint32    { return binary.LittleEndian.Uint32(b) }

func putU64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
func getU64(b []byte) uint64    { return binary.LittleEndian.Uint64(b) }

func putI32(b []byte, v int32) { binary.LittleEndian.PutUint32(b, uint32(v)) }
func getI32(b []byte) int32    { return int32(binary.LittleEndian.Uint32(b)) }

// reconstructOffset extends a wire-carried low-32-bits-of-offset value
// (DATA's type_data, or an ACK/NAK's next_expected_offset) back to a full
// 64-bit file offset, picking whichever 4 GiB-aligned candidate lands
// closest to near. Safe as long as the true offset is within 2^31 bytes
// of near, which always holds here since in-flight windows and Go-Back-N
// rewinds are bytes, not gigabytes.
func reconstructOffset(low32 uint32, near uint64) uint64 {
	base := near &^ 0xFFFFFFFF
	best := base | uint64(low32)
	if best >= 1<<32 {
		if alt := best - (1 << 32); diffU64(alt, near) < diffU64(best, near) {
			best = alt
		}
	}
	if alt := best + (1 << 32); diffU64(alt, near) < diffU64(best, near) {
		best = alt
	}
	return best
}

func diffU64(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
