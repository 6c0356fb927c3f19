package monitoring_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchsec/sentinel/internal/monitoring"
)

func sampleAt(endpoint string, ts time.Time) monitoring.Sample {
	return monitoring.Sample{
		Endpoint:   endpoint,
		Method:     "GET",
		DurationMs: 10,
		StatusCode: 200,
		Timestamp:  ts,
	}
}

func TestSampleStore_CapacityInvariant(t *testing.T) {
	const capacity = 5
	store := monitoring.NewSampleStore(capacity)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// capacity + k inserts leave exactly capacity samples, the most recent
	// ones, in original relative order.
	for i := 0; i < capacity+3; i++ {
		store.Record(sampleAt(fmt.Sprintf("/ep/%d", i), base.Add(time.Duration(i)*time.Second)))
	}

	got := store.Snapshot(time.Time{})
	require.Len(t, got, capacity)
	for i, s := range got {
		assert.Equal(t, fmt.Sprintf("/ep/%d", i+3), s.Endpoint)
	}
}

func TestSampleStore_SnapshotSince(t *testing.T) {
	store := monitoring.NewSampleStore(10)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	store.Record(sampleAt("/old", base))
	store.Record(sampleAt("/mid", base.Add(30*time.Second)))
	store.Record(sampleAt("/new", base.Add(90*time.Second)))

	got := store.Snapshot(base.Add(30 * time.Second))
	require.Len(t, got, 2)
	assert.Equal(t, "/mid", got[0].Endpoint)
	assert.Equal(t, "/new", got[1].Endpoint)
}

func TestSampleStore_Clear(t *testing.T) {
	store := monitoring.NewSampleStore(10)
	store.Record(sampleAt("/a", time.Now()))
	store.Record(sampleAt("/b", time.Now()))
	require.Equal(t, 2, store.Len())

	store.Clear()
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, store.Snapshot(time.Time{}))

	// Still usable after clearing.
	store.Record(sampleAt("/c", time.Now()))
	assert.Equal(t, 1, store.Len())
}

func TestSampleStore_DefaultCapacity(t *testing.T) {
	store := monitoring.NewSampleStore(0)
	assert.Equal(t, monitoring.DefaultSampleCapacity, store.Capacity())
}
