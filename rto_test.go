package val

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdaptiveRTOClampsToBounds(t *testing.T) {
	r := newAdaptiveRTO(100, 2000)
	require.Equal(t, uint32(100), r.RTOMs())

	r.Sample(5000) // absurdly large sample, must clamp to max
	require.LessOrEqual(t, r.RTOMs(), uint32(2000))
}

func TestAdaptiveRTOBackoffDoublesAndCaps(t *testing.T) {
	r := newAdaptiveRTO(100, 1000)
	r.Backoff()
	require.Equal(t, uint32(200), r.RTOMs())
	r.Backoff()
	require.Equal(t, uint32(400), r.RTOMs())
	r.Backoff()
	require.Equal(t, uint32(800), r.RTOMs())
	r.Backoff()
	require.Equal(t, uint32(1000), r.RTOMs()) // capped at max
}

func TestAdaptiveRTOSampleResetsBackoff(t *testing.T) {
	r := newAdaptiveRTO(100, 1000)
	r.Backoff()
	r.Backoff()
	require.Equal(t, 2, r.backoffExp)
	r.Sample(150)
	require.Equal(t, 0, r.backoffExp)
}

func TestHardDeadlineMsFormula(t *testing.T) {
	r := newAdaptiveRTO(100, 10000)
	// min(100*(4+1)*4, 10000*(4+1)) = min(2000, 50000) = 2000
	require.Equal(t, uint32(2000), r.HardDeadlineMs(4))
}
