package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	oracle  *SeededOracle
	asset   string
	random  []byte
	live    bool
	failure error
}

func (c *capture) HandleRandom(badge *Badge, random []byte) error {
	c.asset = badge.Asset
	c.random = random
	c.live = c.oracle.Outstanding(badge)
	return c.failure
}

func TestSeededOracleDeterministicDelivery(t *testing.T) {
	a := NewSeededOracle(7, 16)
	b := NewSeededOracle(7, 16)
	ca := &capture{oracle: a}
	cb := &capture{oracle: b}
	a.SetCallback(ca)
	b.SetCallback(cb)

	require.NoError(t, a.RequestRandom("coin"))
	require.NoError(t, b.RequestRandom("coin"))
	require.NoError(t, a.DeliverNext())
	require.NoError(t, b.DeliverNext())

	assert.Equal(t, "coin", ca.asset)
	assert.Len(t, ca.random, 16)
	assert.Equal(t, ca.random, cb.random)

	// The badge is only valid during the delivery it belongs to.
	assert.True(t, ca.live)
}

func TestSeededOracleQueueAndBadgeBurning(t *testing.T) {
	o := NewSeededOracle(1, 8)
	c := &capture{oracle: o}
	o.SetCallback(c)

	require.ErrorIs(t, o.DeliverNext(), ErrNoPendingRequest)

	require.NoError(t, o.RequestRandom("first"))
	require.NoError(t, o.RequestRandom("second"))
	assert.Equal(t, 2, o.Pending())

	first := *c
	require.NoError(t, o.DeliverNext())
	assert.Equal(t, "first", c.asset)
	require.NoError(t, o.DeliverNext())
	assert.Equal(t, "second", c.asset)
	assert.Equal(t, 0, o.Pending())
	assert.NotEqual(t, first.random, c.random)

	// A callback error burns the badge all the same.
	require.NoError(t, o.RequestRandom("third"))
	c.failure = assert.AnError
	require.Error(t, o.DeliverNext())
	assert.Equal(t, 0, o.Pending())
	assert.Empty(t, o.live)
}

func TestOutstandingRejectsUnmintedBadge(t *testing.T) {
	o := NewSeededOracle(1, 8)

	// Only badges the oracle minted for a live delivery count; a badge built
	// elsewhere carries a zero id and is never in the live set.
	assert.False(t, o.Outstanding(nil))
	assert.False(t, o.Outstanding(&Badge{Asset: "coin"}))
}
