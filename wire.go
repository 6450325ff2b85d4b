package val

import (
	"errors"
	"fmt"
)

// Wire sizes, in octets. These are package-internal; adapters sizing
// buffers use the exported MinPacketSize/MaxPacketSize bounds.
const (
	frameHeaderSize  = 8
	frameTrailerSize = 4

	helloPayloadSize      = 44
	metaPayloadSize       = (MaxFilenameLen + 1) + (MaxPathLen + 1) + 8 // 264
	resumeRespPayloadSize = 24
	verifyReqPayloadSize  = 16
	verifyRespPayloadSize = 8
	errorPayloadSize      = 8
)

var (
	errMalformedFrame = errors.New("val: malformed frame")
	errShortBuffer    = errors.New("val: buffer too small")
	errFrameCRC       = errors.New("val: frame CRC mismatch")
)

// frameHeader is the 8-octet universal header, little-endian on the wire.
type frameHeader struct {
	Type       frameType
	Flags      byte
	ContentLen uint16
	TypeData   uint32
}

func encodeHeader(h frameHeader, buf []byte) error {
	if len(buf) < frameHeaderSize {
		return errShortBuffer
	}
	buf[0] = byte(h.Type)
	buf[1] = h.Flags
	putU16(buf[2:4], h.ContentLen)
	putU32(buf[4:8], h.TypeData)
	return nil
}

func decodeHeader(buf []byte) (frameHeader, error) {
	if len(buf) < frameHeaderSize {
		return frameHeader{}, errShortBuffer
	}
	return frameHeader{
		Type:       frameType(buf[0]),
		Flags:      buf[1],
		ContentLen: getU16(buf[2:4]),
		TypeData:   getU32(buf[4:8]),
	}, nil
}

// encodeFrame serializes a complete frame (header || content || trailer
// CRC32) into buf, returning the number of bytes written. buf must be at
// least frameHeaderSize+len(content)+frameTrailerSize long.
func encodeFrame(hook CRC32Hook, buf []byte, t frameType, flags byte, typeData uint32, content []byte) (int, error) {
	total := frameHeaderSize + len(content) + frameTrailerSize
	if len(buf) < total {
		return 0, errShortBuffer
	}
	if len(content) > 0xFFFF {
		return 0, fmt.Errorf("%w: content_len %d exceeds uint16", errMalformedFrame, len(content))
	}
	hdr := frameHeader{Type: t, Flags: flags, ContentLen: uint16(len(content)), TypeData: typeData}
	if err := encodeHeader(hdr, buf); err != nil {
		return 0, err
	}
	copy(buf[frameHeaderSize:], content)
	trailer := crc32OneShot(hook, buf[:frameHeaderSize+len(content)])
	putU32(buf[frameHeaderSize+len(content):total], trailer)
	return total, nil
}

// decodeFrame validates and decodes a complete frame already sitting in
// buf (exactly header+content+trailer bytes, no more, no less). It never
// reads past buf's bounds.
func decodeFrame(hook CRC32Hook, buf []byte) (frameHeader, []byte, error) {
	hdr, err := decodeHeader(buf)
	if err != nil {
		return frameHeader{}, nil, err
	}
	total := frameHeaderSize + int(hdr.ContentLen) + frameTrailerSize
	if len(buf) != total {
		return frameHeader{}, nil, fmt.Errorf("%w: expected %d bytes, got %d", errMalformedFrame, total, len(buf))
	}
	content := buf[frameHeaderSize : frameHeaderSize+int(hdr.ContentLen)]
	trailer := getU32(buf[frameHeaderSize+int(hdr.ContentLen) : total])
	want := crc32OneShot(hook, buf[:frameHeaderSize+int(hdr.ContentLen)])
	if trailer != want {
		return frameHeader{}, nil, errFrameCRC
	}
	return hdr, content, nil
}

// helloPayload is the HELLO handshake body (44 octets).
type helloPayload struct {
	Magic               uint32
	VersionMajor        byte
	VersionMinor        byte
	PacketSize          uint32
	Features            uint32
	Required            uint32
	Requested           uint32
	TxMaxWindowPackets  uint16
	RxMaxWindowPackets  uint16
	AckStridePackets    byte
	SupportedFeatures16 uint16
	RequiredFeatures16  uint16
	RequestedFeatures16 uint16
}

func encodeHello(h helloPayload, buf []byte) error {
	if len(buf) < helloPayloadSize {
		return errShortBuffer
	}
	putU32(buf[0:4], h.Magic)
	buf[4] = h.VersionMajor
	buf[5] = h.VersionMinor
	putU16(buf[6:8], 0) // reserved
	putU32(buf[8:12], h.PacketSize)
	putU32(buf[12:16], h.Features)
	putU32(buf[16:20], h.Required)
	putU32(buf[20:24], h.Requested)
	putU16(buf[24:26], h.TxMaxWindowPackets)
	putU16(buf[26:28], h.RxMaxWindowPackets)
	buf[28] = h.AckStridePackets
	buf[29], buf[30], buf[31] = 0, 0, 0 // reserved_capabilities
	putU16(buf[32:34], h.SupportedFeatures16)
	putU16(buf[34:36], h.RequiredFeatures16)
	putU16(buf[36:38], h.RequestedFeatures16)
	putU16(buf[38:40], 0) // reserved
	putU32(buf[40:44], 0) // reserved2
	return nil
}

func decodeHello(buf []byte) (helloPayload, error) {
	if len(buf) < helloPayloadSize {
		return helloPayload{}, errShortBuffer
	}
	return helloPayload{
		Magic:               getU32(buf[0:4]),
		VersionMajor:        buf[4],
		VersionMinor:        buf[5],
		PacketSize:          getU32(buf[8:12]),
		Features:            getU32(buf[12:16]),
		Required:            getU32(buf[16:20]),
		Requested:           getU32(buf[20:24]),
		TxMaxWindowPackets:  getU16(buf[24:26]),
		RxMaxWindowPackets:  getU16(buf[26:28]),
		AckStridePackets:    buf[28],
		SupportedFeatures16: getU16(buf[32:34]),
		RequiredFeatures16:  getU16(buf[34:36]),
		RequestedFeatures16: getU16(buf[36:38]),
	}, nil
}

// metaPayload describes a file offer.
type metaPayload struct {
	Filename   string // sanitized basename, <=127 bytes
	SenderPath string // informational only, <=127 bytes
	FileSize   uint64
}

func encodeMeta(m metaPayload, buf []byte) error {
	if len(buf) < metaPayloadSize {
		return errShortBuffer
	}
	if len(m.Filename) > MaxFilenameLen || len(m.SenderPath) > MaxPathLen {
		return fmt.Errorf("%w: filename/path exceeds %d bytes", errMalformedFrame, MaxFilenameLen)
	}
	clear(buf[:metaPayloadSize])
	copy(buf[0:MaxFilenameLen+1], m.Filename)
	copy(buf[MaxFilenameLen+1:MaxFilenameLen+1+MaxPathLen+1], m.SenderPath)
	putU64(buf[MaxFilenameLen+1+MaxPathLen+1:metaPayloadSize], m.FileSize)
	return nil
}

func decodeMeta(buf []byte) (metaPayload, error) {
	if len(buf) < metaPayloadSize {
		return metaPayload{}, errShortBuffer
	}
	name := nulTerminated(buf[0 : MaxFilenameLen+1])
	path := nulTerminated(buf[MaxFilenameLen+1 : MaxFilenameLen+1+MaxPathLen+1])
	size := getU64(buf[MaxFilenameLen+1+MaxPathLen+1 : metaPayloadSize])
	return metaPayload{Filename: name, SenderPath: path, FileSize: size}, nil
}

func nulTerminated(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// resumeRespPayload is the receiver's resume decision.
type resumeRespPayload struct {
	Action       resumeAction
	ResumeOffset uint64
	VerifyCRC    uint32
	VerifyLength uint64
}

func encodeResumeResp(r resumeRespPayload, buf []byte) error {
	if len(buf) < resumeRespPayloadSize {
		return errShortBuffer
	}
	putU32(buf[0:4], uint32(r.Action))
	putU64(buf[4:12], r.ResumeOffset)
	putU32(buf[12:16], r.VerifyCRC)
	putU64(buf[16:24], r.VerifyLength)
	return nil
}

func decodeResumeResp(buf []byte) (resumeRespPayload, error) {
	if len(buf) < resumeRespPayloadSize {
		return resumeRespPayload{}, errShortBuffer
	}
	return resumeRespPayload{
		Action:       resumeAction(getU32(buf[0:4])),
		ResumeOffset: getU64(buf[4:12]),
		VerifyCRC:    getU32(buf[12:16]),
		VerifyLength: getU64(buf[16:24]),
	}, nil
}

// verifyReqPayload is the VERIFY request the sender sends to the
// receiver (16 bytes).
type verifyReqPayload struct {
	Offset uint64
	CRC    uint32
	Length uint32
}

func encodeVerifyReq(v verifyReqPayload, buf []byte) error {
	if len(buf) < verifyReqPayloadSize {
		return errShortBuffer
	}
	putU64(buf[0:8], v.Offset)
	putU32(buf[8:12], v.CRC)
	putU32(buf[12:16], v.Length)
	return nil
}

func decodeVerifyReq(buf []byte) (verifyReqPayload, error) {
	if len(buf) < verifyReqPayloadSize {
		return verifyReqPayload{}, errShortBuffer
	}
	return verifyReqPayload{
		Offset: getU64(buf[0:8]),
		CRC:    getU32(buf[8:12]),
		Length: getU32(buf[12:16]),
	}, nil
}

// verifyRespPayload is the VERIFY response the receiver sends back to
// the sender (8 bytes).
type verifyRespPayload struct {
	Status      int32
	ReceiverCRC uint32
}

func encodeVerifyResp(v verifyRespPayload, buf []byte) error {
	if len(buf) < verifyRespPayloadSize {
		return errShortBuffer
	}
	putI32(buf[0:4], v.Status)
	putU32(buf[4:8], v.ReceiverCRC)
	return nil
}

func decodeVerifyResp(buf []byte) (verifyRespPayload, error) {
	if len(buf) < verifyRespPayloadSize {
		return verifyRespPayload{}, errShortBuffer
	}
	return verifyRespPayload{
		Status:      getI32(buf[0:4]),
		ReceiverCRC: getU32(buf[4:8]),
	}, nil
}

// errorPayload is the ERROR frame body (8 bytes).
type errorPayload struct {
	Code   int32
	Detail uint32
}

func encodeErrorPayload(e errorPayload, buf []byte) error {
	if len(buf) < errorPayloadSize {
		return errShortBuffer
	}
	putI32(buf[0:4], e.Code)
	putU32(buf[4:8], e.Detail)
	return nil
}

func decodeErrorPayload(buf []byte) (errorPayload, error) {
	if len(buf) < errorPayloadSize {
		return errorPayload{}, errShortBuffer
	}
	return errorPayload{Code: getI32(buf[0:4]), Detail: getU32(buf[4:8])}, nil
}
