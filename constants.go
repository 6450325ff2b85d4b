package val

// Wire magic and version. Current wire version is 0.7; the major version
// must match exactly between peers, per the handshake engine.
const (
	wireMagic        uint32 = 0x56414C00 // "VAL\0", big-endian-looking but encoded LE on the wire
	protocolVerMajor byte   = 0
	protocolVerMinor byte   = 7
)

// MTU bounds.
const (
	MinPacketSize = 512
	MaxPacketSize = 65536
)

// Filename/path byte limits: 127 bytes plus a terminating NUL.
const (
	MaxFilenameLen = 127
	MaxPathLen     = 127
)

// Frame types (universal 8-byte header, byte 0). Values match the VAL wire
// contract exactly; they are not renumbered for Go idiom because they are
// part of an external, cross-language protocol.
type frameType byte

const (
	ftHello        frameType = 1
	ftSendMeta     frameType = 2
	ftResumeReq    frameType = 3
	ftResumeResp   frameType = 4
	ftData         frameType = 5
	ftDataAck      frameType = 6
	ftVerify       frameType = 7
	ftDone         frameType = 8
	ftError        frameType = 9
	ftEOT          frameType = 10
	ftEOTAck       frameType = 11
	ftDoneAck      frameType = 12
	ftModeSync     frameType = 13 // reserved, never emitted
	ftModeSyncAck  frameType = 14 // reserved, never emitted
	ftDataNak      frameType = 15
	ftCancel       frameType = 0x18
)

func (t frameType) String() string {
	switch t {
	case ftHello:
		return "HELLO"
	case ftSendMeta:
		return "SEND_META"
	case ftResumeReq:
		return "RESUME_REQ"
	case ftResumeResp:
		return "RESUME_RESP"
	case ftData:
		return "DATA"
	case ftDataAck:
		return "DATA_ACK"
	case ftVerify:
		return "VERIFY"
	case ftDone:
		return "DONE"
	case ftError:
		return "ERROR"
	case ftEOT:
		return "EOT"
	case ftEOTAck:
		return "EOT_ACK"
	case ftDoneAck:
		return "DONE_ACK"
	case ftModeSync:
		return "MODE_SYNC"
	case ftModeSyncAck:
		return "MODE_SYNC_ACK"
	case ftDataNak:
		return "DATA_NAK"
	case ftCancel:
		return "CANCEL"
	default:
		return "UNKNOWN"
	}
}

// DATA frame flags (header byte 1).
const (
	dataFlagOffsetPresent byte = 1 << 0
	dataFlagFinalChunk    byte = 1 << 1
)

// DATA_ACK frame flags — informational only; set where natural (EOF on
// the terminal ACK of a file) but never required by the receiving
// control flow.
const (
	ackFlagHeartbeat byte = 1 << 0
	ackFlagEOF       byte = 1 << 1
)

// DATA_NAK reason codes, carried in header flags.
const (
	nakReasonOffsetError byte = 1 << 0
)

// Resume actions (RESUME_RESP.action).
type resumeAction uint32

const (
	resumeSkip               resumeAction = 0
	resumeFromOffset         resumeAction = 1
	resumeRestartZero        resumeAction = 2
	resumeAbort              resumeAction = 3
	resumeVerifyRequired     resumeAction = 4
)

func (a resumeAction) String() string {
	switch a {
	case resumeSkip:
		return "SKIP"
	case resumeFromOffset:
		return "RESUME_FROM_OFFSET"
	case resumeRestartZero:
		return "RESTART_ZERO"
	case resumeAbort:
		return "ABORT"
	case resumeVerifyRequired:
		return "VERIFY_REQUIRED"
	default:
		return "UNKNOWN"
	}
}

// ResumeMode selects the receiver-driven resume policy.
type ResumeMode int

const (
	ResumeNever ResumeMode = iota
	ResumeSkipExisting
	ResumeCRCTail
	ResumeCRCTailOrZero
	ResumeCRCFull
	ResumeCRCFullOrZero
)

func (m ResumeMode) String() string {
	switch m {
	case ResumeNever:
		return "NEVER"
	case ResumeSkipExisting:
		return "SKIP_EXISTING"
	case ResumeCRCTail:
		return "CRC_TAIL"
	case ResumeCRCTailOrZero:
		return "CRC_TAIL_OR_ZERO"
	case ResumeCRCFull:
		return "CRC_FULL"
	case ResumeCRCFullOrZero:
		return "CRC_FULL_OR_ZERO"
	default:
		return "UNKNOWN"
	}
}

// fullVerifyCapBytes bounds CRC_FULL*'s full-prefix verify; local files
// larger than this fall back to a large-tail verify over the last
// fullVerifyCapBytes bytes.
const fullVerifyCapBytes = 2 * 1024 * 1024

// Validation actions for the optional metadata validator hook.
type ValidationAction int

const (
	ValidationAccept ValidationAction = iota
	ValidationSkip
	ValidationAbort
)

// Feature bits. The protocol currently defines no optional features;
// core functionality (windowing, streaming, resume) is implicit and not
// represented by a bit, matching original_source's VAL_BUILTIN_FEATURES.
const FeatureNone uint32 = 0
