package breaker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrymomot/peepsy/core/breaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteReturnsUnderlyingResult(t *testing.T) {
	r := breaker.NewRegistry(breaker.DefaultSettings())

	val, err := r.Execute(context.Background(), "worker-1", func(context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	settings := breaker.DefaultSettings()
	settings.ConsecutiveFailures = 2
	settings.Timeout = time.Minute
	r := breaker.NewRegistry(settings)

	boom := errors.New("boom")
	fail := func(context.Context) (any, error) { return nil, boom }

	for i := 0; i < 2; i++ {
		_, err := r.Execute(context.Background(), "worker-1", fail)
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, "open", r.State("worker-1"))

	_, err := r.Execute(context.Background(), "worker-1", fail)
	assert.Error(t, err)
}

func TestStateDefaultsToClosedForUnknownTarget(t *testing.T) {
	r := breaker.NewRegistry(breaker.DefaultSettings())
	assert.Equal(t, "closed", r.State("never-seen"))
}

func TestTargetsHaveIndependentBreakers(t *testing.T) {
	settings := breaker.DefaultSettings()
	settings.ConsecutiveFailures = 1
	r := breaker.NewRegistry(settings)

	boom := errors.New("boom")
	_, _ = r.Execute(context.Background(), "a", func(context.Context) (any, error) { return nil, boom })

	assert.Equal(t, "open", r.State("a"))
	assert.Equal(t, "closed", r.State("b"))
}

func TestRemoveResetsTargetState(t *testing.T) {
	settings := breaker.DefaultSettings()
	settings.ConsecutiveFailures = 1
	r := breaker.NewRegistry(settings)

	boom := errors.New("boom")
	_, _ = r.Execute(context.Background(), "a", func(context.Context) (any, error) { return nil, boom })
	assert.Equal(t, "open", r.State("a"))

	r.Remove("a")
	assert.Equal(t, "closed", r.State("a"))
}
