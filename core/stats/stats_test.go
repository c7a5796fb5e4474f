package stats_test

import (
	"testing"
	"time"

	"github.com/dmitrymomot/peepsy/core/stats"
	"github.com/stretchr/testify/assert"
)

func TestEndRequestSeedsAverageOnFirstSample(t *testing.T) {
	p := &stats.Process{}
	p.BeginRequest()
	p.EndRequest(100 * time.Millisecond)

	snap := p.Snapshot()
	assert.Equal(t, int64(1), snap.RequestsHandled)
	assert.Equal(t, int32(0), snap.RequestsActive)
	assert.Equal(t, 100*time.Millisecond, snap.AvgResponseTime)
}

func TestEndRequestSmoothsSubsequentSamples(t *testing.T) {
	p := &stats.Process{}
	p.BeginRequest()
	p.EndRequest(100 * time.Millisecond)
	p.BeginRequest()
	p.EndRequest(200 * time.Millisecond)

	want := time.Duration(0.2*float64(200*time.Millisecond) + 0.8*float64(100*time.Millisecond))
	assert.Equal(t, want, p.Snapshot().AvgResponseTime)
}

func TestBeginRequestTracksActiveCount(t *testing.T) {
	p := &stats.Process{}
	p.BeginRequest()
	p.BeginRequest()
	assert.Equal(t, int32(2), p.Active())

	p.EndRequest(time.Millisecond)
	assert.Equal(t, int32(1), p.Active())
}

func TestRecordErrorIncrementsErrorCount(t *testing.T) {
	p := &stats.Process{}
	p.RecordError()
	p.RecordError()
	assert.Equal(t, int64(2), p.Snapshot().Errors)
}

func TestHeartbeatUpdatesTimestamps(t *testing.T) {
	p := &stats.Process{}
	assert.True(t, p.LastHeartbeatAt().IsZero())

	p.Heartbeat()
	assert.False(t, p.LastHeartbeatAt().IsZero())
	assert.False(t, p.LastActivity().IsZero())
}

func TestSetStatusIsReflectedInSnapshot(t *testing.T) {
	p := &stats.Process{}
	p.SetStatus("healthy")
	assert.Equal(t, "healthy", p.Snapshot().Status)
}
