package val

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC32MatchesKnownVector(t *testing.T) {
	// "123456789" is the standard CRC32/IEEE 802.3 check vector, CRC = 0xCBF43926.
	got := crc32OneShot(softwareCRC32{}, []byte("123456789"))
	require.Equal(t, uint32(0xCBF43926), got)
}

func TestCRCStreamMatchesOneShot(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	oneShot := crc32OneShot(softwareCRC32{}, data)

	stream := newCRCStream(softwareCRC32{})
	stream.Write(data[:10])
	stream.Write(data[10:20])
	stream.Write(data[20:])
	require.Equal(t, oneShot, stream.Sum())
}
