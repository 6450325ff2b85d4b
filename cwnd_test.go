package val

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCwndSlowStartGrowsByOnePerAck(t *testing.T) {
	c := newCwndState(1, 64, 3, 4)
	require.Equal(t, 1, c.Cwnd())
	c.onAck(true)
	require.Equal(t, 2, c.Cwnd())
	c.onAck(true)
	require.Equal(t, 3, c.Cwnd())
}

func TestCwndCongestionAvoidanceGrowsSublinearly(t *testing.T) {
	c := newCwndState(1, 64, 3, 100) // recoverThreshold high enough to not interfere
	c.ssthresh = 4
	for i := 0; i < 3; i++ {
		c.onAck(true) // 1->2->3->4, now at ssthresh
	}
	require.Equal(t, 4, c.Cwnd())
	before := c.Cwnd()
	c.onAck(true) // in CA now, needs multiple acks to grow by 1
	require.LessOrEqual(t, c.Cwnd()-before, 1)
}

func TestCwndLossHalvesAndSetsSsthresh(t *testing.T) {
	c := newCwndState(16, 64, 3, 4)
	c.onLossSignal()
	require.Equal(t, 8, c.Cwnd())
	require.Equal(t, 8, c.ssthresh)
}

func TestCwndNeverDropsBelowOne(t *testing.T) {
	c := newCwndState(1, 64, 1, 4)
	c.onLossSignal()
	c.onLossSignal()
	c.onLossSignal()
	require.GreaterOrEqual(t, c.Cwnd(), 1)
}

func TestRungForFloorsToPowerOfTwo(t *testing.T) {
	require.Equal(t, txWindow16, rungFor(20))
	require.Equal(t, txWindow8, rungFor(8))
	require.Equal(t, txStopAndWait, rungFor(1))
	require.Equal(t, txWindow64, rungFor(100))
}
