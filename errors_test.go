package val

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetailMaskBitsDoNotOverlap(t *testing.T) {
	require.Equal(t, uint32(0), DetailNetMask&DetailCRCMask)
	require.Equal(t, uint32(0), DetailCRCMask&DetailProtoMask)
	require.Equal(t, uint32(0), DetailProtoMask&DetailFSMask)
	require.Equal(t, uint32(0), DetailFSMask&DetailContextMask)
}

func TestSetMissingFeatureEncodesContext(t *testing.T) {
	detail := setMissingFeature(0x01)
	require.Equal(t, ContextMissingFeatures, errorContext(detail))
	require.True(t, isProtocolRelated(detail))
}

func TestLastErrorString(t *testing.T) {
	e := newErr(StatusCRC, DetailCRCTrailer, "recv_frame")
	require.Contains(t, e.Error(), "CRC")
	require.Contains(t, e.Error(), "recv_frame")
}

func TestIsNetworkRelated(t *testing.T) {
	require.True(t, isNetworkRelated(DetailTimeoutData))
	require.False(t, isNetworkRelated(DetailFileNotFound))
}
