package peepsy_test

import (
	"testing"
	"time"

	"github.com/dmitrymomot/peepsy"
	"github.com/dmitrymomot/peepsy/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasterOptionsFromEnvAppliesMasterEnvDefaults(t *testing.T) {
	config.Reset[config.MasterEnv]()

	opts, err := peepsy.MasterOptionsFromEnv()
	require.NoError(t, err)
	require.Len(t, opts, 5)

	m, err := peepsy.New(opts...)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestMasterOptionsFromEnvHonorsOverrides(t *testing.T) {
	config.Reset[config.MasterEnv]()
	t.Setenv("PEEPSY_TIMEOUT_MS", "250")

	opts, err := peepsy.MasterOptionsFromEnv()
	require.NoError(t, err)

	var applied peepsy.Options
	for _, opt := range opts {
		opt(&applied)
	}
	assert.Equal(t, 250*time.Millisecond, applied.Timeout)

	m, err := peepsy.New(opts...)
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestMasterOptionsFromEnvRejectsInvalidValue(t *testing.T) {
	config.Reset[config.MasterEnv]()
	t.Setenv("PEEPSY_TIMEOUT_MS", "0")

	_, err := peepsy.MasterOptionsFromEnv()
	assert.Error(t, err)
}

func TestWorkerMaxConcurrencyFromEnvPrefersEnvOverride(t *testing.T) {
	config.Reset[config.WorkerEnv]()
	t.Setenv("PEEPSY_MAX_CONCURRENCY", "8")

	n, err := peepsy.WorkerMaxConcurrencyFromEnv(2)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestWorkerMaxConcurrencyFromEnvFallsBackWhenUnset(t *testing.T) {
	config.Reset[config.WorkerEnv]()

	n, err := peepsy.WorkerMaxConcurrencyFromEnv(3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDefaultsMirrorCoreMaster(t *testing.T) {
	assert.Equal(t, 5*time.Second, peepsy.DefaultTimeout)
	assert.Equal(t, peepsy.StrategyRoundRobin, "round-robin")
}
