package val

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	hook := softwareCRC32{}
	buf := make([]byte, 128)
	content := []byte("hello VAL")

	n, err := encodeFrame(hook, buf, ftData, dataFlagFinalChunk, 42, content)
	require.NoError(t, err)

	hdr, got, err := decodeFrame(hook, buf[:n])
	require.NoError(t, err)
	require.Equal(t, ftData, hdr.Type)
	require.Equal(t, dataFlagFinalChunk, hdr.Flags)
	require.Equal(t, uint32(42), hdr.TypeData)
	require.Equal(t, content, got)
}

func TestFrameCRCMismatchDetected(t *testing.T) {
	hook := softwareCRC32{}
	buf := make([]byte, 128)
	n, err := encodeFrame(hook, buf, ftHello, 0, 0, []byte("x"))
	require.NoError(t, err)

	buf[n-1] ^= 0xFF // corrupt the trailer
	_, _, err = decodeFrame(hook, buf[:n])
	require.ErrorIs(t, err, errFrameCRC)
}

func TestHelloPayloadRoundTrip(t *testing.T) {
	h := helloPayload{
		Magic: wireMagic, VersionMajor: protocolVerMajor, VersionMinor: protocolVerMinor,
		PacketSize: 4096, Features: 0, Required: 0, Requested: 0,
		TxMaxWindowPackets: 32, RxMaxWindowPackets: 16, AckStridePackets: 4,
	}
	buf := make([]byte, helloPayloadSize)
	require.NoError(t, encodeHello(h, buf))
	got, err := decodeHello(buf)
	require.NoError(t, err)
	require.Equal(t, h.Magic, got.Magic)
	require.Equal(t, h.PacketSize, got.PacketSize)
	require.Equal(t, h.TxMaxWindowPackets, got.TxMaxWindowPackets)
	require.Equal(t, h.RxMaxWindowPackets, got.RxMaxWindowPackets)
	require.Equal(t, h.AckStridePackets, got.AckStridePackets)
}

func TestMetaPayloadRoundTrip(t *testing.T) {
	m := metaPayload{Filename: "report.csv", SenderPath: "/tmp/report.csv", FileSize: 123456}
	buf := make([]byte, metaPayloadSize)
	require.NoError(t, encodeMeta(m, buf))
	got, err := decodeMeta(buf)
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestMetaPayloadRejectsOversizedNames(t *testing.T) {
	long := make([]byte, MaxFilenameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	m := metaPayload{Filename: string(long)}
	buf := make([]byte, metaPayloadSize)
	require.Error(t, encodeMeta(m, buf))
}

func TestResumeRespRoundTrip(t *testing.T) {
	r := resumeRespPayload{Action: resumeVerifyRequired, ResumeOffset: 8192, VerifyCRC: 0, VerifyLength: 1024}
	buf := make([]byte, resumeRespPayloadSize)
	require.NoError(t, encodeResumeResp(r, buf))
	got, err := decodeResumeResp(buf)
	require.NoError(t, err)
	require.Equal(t, r, got)
}
