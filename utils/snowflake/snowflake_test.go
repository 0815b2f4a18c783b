package snowflake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator_WorkerIDRange(t *testing.T) {
	_, err := NewGenerator(0)
	assert.NoError(t, err)

	_, err = NewGenerator(1023)
	assert.NoError(t, err)

	_, err = NewGenerator(1024)
	assert.ErrorIs(t, err, ErrInvalidWorkerID)

	_, err = NewGenerator(-1)
	assert.ErrorIs(t, err, ErrInvalidWorkerID)
}

func TestNextID_Monotonic(t *testing.T) {
	gen, err := NewGenerator(1)
	require.NoError(t, err)

	var prev int64
	for range 10000 {
		id, err := gen.NextID()
		require.NoError(t, err)
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestNextID_EncodesWorkerID(t *testing.T) {
	gen, err := NewGenerator(42)
	require.NoError(t, err)

	id, err := gen.NextID()
	require.NoError(t, err)

	worker := (id >> workerIDShift) & workerIDMask
	assert.Equal(t, int64(42), worker)
}

func TestTimestamp_RoundTrip(t *testing.T) {
	gen, err := NewGenerator(1)
	require.NoError(t, err)

	before := time.Now().Add(-time.Second)
	id := gen.MustNextID()
	after := time.Now().Add(time.Second)

	ts := Timestamp(id)
	assert.True(t, ts.After(before), "timestamp %v not after %v", ts, before)
	assert.True(t, ts.Before(after), "timestamp %v not before %v", ts, after)
}

func TestMustNextID(t *testing.T) {
	gen, err := NewGenerator(1)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		id := gen.MustNextID()
		assert.Positive(t, id)
	})
}
