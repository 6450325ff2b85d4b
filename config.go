package val

// FileMeta is the application-visible view of a SEND_META payload, passed
// to the optional metadata validator hook.
type FileMeta struct {
	Filename   string
	SenderPath string
	FileSize   uint64
}

// MetadataValidator decides whether to accept, skip, or abort an
// incoming file. It runs ONLY when ResumeMode is ResumeNever: running it
// after a resume decision would contradict the resume contract.
type MetadataValidator func(meta FileMeta, targetPath string) ValidationAction

// ProgressInfo carries cumulative and per-file byte counts to the
// optional progress callback. Filename is only valid for the
// duration of the callback.
type ProgressInfo struct {
	BytesTransferred  uint64
	TotalBytes        uint64
	CurrentFileBytes  uint64
	FilesCompleted    uint32
	TotalFiles        uint32
	TransferRateBps   uint32
	ETASeconds        uint32
	CurrentFilename   string
}

// FileCompletionStatus distinguishes a clean finish from a skip or error
// on the on_file_complete callback.
type FileCompletionStatus struct {
	Status StatusCode
	Err    error
}

type (
	OnFileStartFunc    func(filename, senderPath string, fileSize, resumeOffset uint64)
	OnFileCompleteFunc func(filename, senderPath string, status FileCompletionStatus)
	OnProgressFunc     func(info ProgressInfo)
)

// ResumeConfig is the simplified resume policy.
type ResumeConfig struct {
	Mode ResumeMode
	// CRCVerifyBytes bounds TAIL-mode verification windows; 0 means
	// "implementation-chosen default" (fullVerifyCapBytes).
	CRCVerifyBytes uint32
}

// RetryConfig bounds retransmission attempts per protocol phase.
type RetryConfig struct {
	Handshake     int
	Meta          int
	Data          int
	Ack           int
	BackoffMsBase uint32
}

// FlowControlConfig bounds the bounded-window sender/receiver.
type FlowControlConfig struct {
	WindowCapPackets         int
	InitialCwndPackets       int
	DegradeErrorThreshold    int
	RecoverySuccessThreshold int
	RetransmitCacheEnabled   bool
}

// Config is the caller-provided, immutable-after-create description of
// adapters and policy. Config must outlive any Session created
// from it.
type Config struct {
	Transport  Transport
	Filesystem Filesystem
	Clock      Clock

	// SendBuffer/RecvBuffer are owned by the caller and sized to at
	// least PacketSize; the Session borrows them for the lifetime of
	// each codec operation and never allocates its own frame buffers in
	// steady state.
	SendBuffer []byte
	RecvBuffer []byte
	PacketSize int

	MinTimeoutMs uint32
	MaxTimeoutMs uint32

	Retries      RetryConfig
	Resume       ResumeConfig
	FlowControl  FlowControlConfig

	MetadataValidator MetadataValidator
	OnFileStart       OnFileStartFunc
	OnFileComplete    OnFileCompleteFunc
	OnProgress        OnProgressFunc

	Logger   Logger
	LogLevel LogLevel

	// CRC overrides the built-in software CRC32 engine. Nil
	// means use the stdlib-backed default.
	CRC CRC32Hook

	// Features advertised/required/requested at handshake time. The
	// protocol currently defines no optional features, so the zero
	// value (FeatureNone) is correct for nearly every caller.
	SupportedFeatures uint32
	RequiredFeatures  uint32
	RequestedFeatures uint32

	// RxMaxWindowPackets/TxMaxWindowPackets/AckStridePackets are the
	// flow-control capabilities this side advertises during HELLO. If
	// zero, FlowControl.WindowCapPackets is advertised for both.
	RxMaxWindowPackets uint16
	TxMaxWindowPackets uint16
	AckStridePackets   byte

	// EnableMetrics/EnableWireAudit turn on the optional counters. Both
	// default to off to keep steady-state overhead at zero for embedded
	// callers that never read them.
	EnableMetrics   bool
	EnableWireAudit bool
}

func (c *Config) applyDefaults() {
	if c.PacketSize == 0 {
		c.PacketSize = MinPacketSize
	}
	if c.MinTimeoutMs == 0 {
		c.MinTimeoutMs = 100
	}
	if c.MaxTimeoutMs == 0 {
		c.MaxTimeoutMs = 10_000
	}
	if c.Retries.Handshake <= 0 {
		c.Retries.Handshake = 5
	}
	if c.Retries.Meta <= 0 {
		c.Retries.Meta = 5
	}
	if c.Retries.Data <= 0 {
		c.Retries.Data = 10
	}
	if c.Retries.Ack <= 0 {
		c.Retries.Ack = 5
	}
	if c.Retries.BackoffMsBase == 0 {
		c.Retries.BackoffMsBase = c.MinTimeoutMs
	}
	if c.FlowControl.WindowCapPackets <= 0 {
		c.FlowControl.WindowCapPackets = 64
	}
	if c.FlowControl.InitialCwndPackets <= 0 {
		c.FlowControl.InitialCwndPackets = 4
	}
	if c.FlowControl.DegradeErrorThreshold <= 0 {
		c.FlowControl.DegradeErrorThreshold = 3
	}
	if c.FlowControl.RecoverySuccessThreshold <= 0 {
		c.FlowControl.RecoverySuccessThreshold = 4
	}
	if c.RxMaxWindowPackets == 0 {
		c.RxMaxWindowPackets = uint16(c.FlowControl.WindowCapPackets)
	}
	if c.TxMaxWindowPackets == 0 {
		c.TxMaxWindowPackets = uint16(c.FlowControl.WindowCapPackets)
	}
	if c.Logger == nil {
		if c.LogLevel == LogOff {
			c.Logger = noopLogger{}
		} else {
			c.Logger = newDefaultLogger()
		}
	}
	if c.CRC == nil {
		c.CRC = softwareCRC32{}
	}
}

// validate checks required hooks and policy bounds, returning a detail
// mask suitable for LastError (session_create validates config;
// returns INVALID_ARG with a MISSING_HOOKS context on missing hooks).
func (c *Config) validate() (uint32, error) {
	if c.Transport == nil || c.Filesystem == nil || c.Clock == nil {
		return setMissingHooks(), errConfigInvalid("transport, filesystem, and clock hooks are required")
	}
	if c.PacketSize < MinPacketSize || c.PacketSize > MaxPacketSize {
		return DetailPacketSize, errConfigInvalid("packet_size out of [512, 65536] bounds")
	}
	if len(c.SendBuffer) < c.PacketSize || len(c.RecvBuffer) < c.PacketSize {
		return DetailPacketSize, errConfigInvalid("send/recv buffers smaller than packet_size")
	}
	if c.MinTimeoutMs == 0 || c.MaxTimeoutMs == 0 || c.MinTimeoutMs > c.MaxTimeoutMs {
		return DetailInvalidState, errConfigInvalid("min_timeout_ms must be >0 and <= max_timeout_ms")
	}
	return ContextNone, nil
}

type configError struct{ msg string }

func (e *configError) Error() string { return "val: invalid config: " + e.msg }

func errConfigInvalid(msg string) error { return &configError{msg: msg} }
