package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorAggregates(t *testing.T) {
	c := NewCollector()

	c.RecordTiming(OpJobMedia, 100*time.Millisecond)
	c.RecordTiming(OpJobMedia, 300*time.Millisecond)
	c.RecordOutcome(OpJobMedia, 200*time.Millisecond, true)

	snap := c.Snapshot()
	op, ok := snap.Operations[OpJobMedia]
	require.True(t, ok)
	assert.Equal(t, int64(3), op.Count)
	assert.Equal(t, int64(1), op.Failures)
	assert.Equal(t, int64(600), op.TotalTimeMs)
	assert.Equal(t, int64(100), op.MinTimeMs)
	assert.Equal(t, int64(300), op.MaxTimeMs)
	assert.InDelta(t, 200.0, op.AvgTimeMs, 0.001)
}

func TestCollectorEmptySnapshot(t *testing.T) {
	c := NewCollector()

	snap := c.Snapshot()
	assert.Empty(t, snap.Operations)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}

func TestCollectorSeparatesOperations(t *testing.T) {
	c := NewCollector()

	c.RecordTiming(OpJobQuestion, 50*time.Millisecond)
	c.RecordTiming(OpDelivery, 10*time.Millisecond)

	snap := c.Snapshot()
	assert.Len(t, snap.Operations, 2)
	assert.Equal(t, int64(1), snap.Operations[OpJobQuestion].Count)
	assert.Equal(t, int64(1), snap.Operations[OpDelivery].Count)
}
