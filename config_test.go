package val

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigValidateRejectsMissingHooks(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	detail, err := cfg.validate()
	require.Error(t, err)
	require.Equal(t, ContextMissingHooks, errorContext(detail))
}

func TestConfigValidateRejectsUndersizedBuffers(t *testing.T) {
	cfg := &Config{
		Transport:  &pipeTransport{},
		Filesystem: newMemFS(),
		Clock:      &fakeClock{},
		PacketSize: 4096,
		SendBuffer: make([]byte, 10),
		RecvBuffer: make([]byte, 10),
	}
	cfg.applyDefaults()
	_, err := cfg.validate()
	require.Error(t, err)
}

func TestConfigApplyDefaultsFillsPolicy(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	require.Equal(t, MinPacketSize, cfg.PacketSize)
	require.Equal(t, 5, cfg.Retries.Handshake)
	require.Equal(t, 64, cfg.FlowControl.WindowCapPackets)
	require.NotNil(t, cfg.Logger)
	require.NotNil(t, cfg.CRC)
}

func TestNewSessionRejectsNilConfig(t *testing.T) {
	_, err := NewSession(nil)
	require.Error(t, err)
}
