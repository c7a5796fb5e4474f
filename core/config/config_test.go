package config_test

import (
	"testing"

	"github.com/dmitrymomot/peepsy/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Port int `env:"SAMPLE_CONFIG_PORT" envDefault:"8080"`
}

func TestLoadAppliesDefaults(t *testing.T) {
	config.Reset[sampleConfig]()
	cfg, err := config.Load[sampleConfig]()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoadCachesAcrossCalls(t *testing.T) {
	config.Reset[sampleConfig]()
	t.Setenv("SAMPLE_CONFIG_PORT", "9090")

	first, err := config.Load[sampleConfig]()
	require.NoError(t, err)
	assert.Equal(t, 9090, first.Port)

	t.Setenv("SAMPLE_CONFIG_PORT", "1111")
	second, err := config.Load[sampleConfig]()
	require.NoError(t, err)
	assert.Equal(t, 9090, second.Port, "second load should return the cached first value")
}

func TestMustLoadPanicsOnParseFailure(t *testing.T) {
	type badConfig struct {
		Port int `env:"CONFIG_TEST_BAD_PORT"`
	}
	config.Reset[badConfig]()
	t.Setenv("CONFIG_TEST_BAD_PORT", "not-a-number")

	assert.Panics(t, func() {
		config.MustLoad[badConfig]()
	})
}

func TestMasterEnvDefaults(t *testing.T) {
	config.Reset[config.MasterEnv]()
	cfg, err := config.Load[config.MasterEnv]()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.TimeoutMs)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, 1000, cfg.RetryDelayMs)
	assert.Equal(t, 2000, cfg.HeartbeatIntervalMs)
	assert.Equal(t, 3, cfg.HeartbeatMissThreshold)
}

func TestWorkerEnvReadsMaxConcurrencyOverride(t *testing.T) {
	config.Reset[config.WorkerEnv]()
	t.Setenv("PEEPSY_MAX_CONCURRENCY", "4")

	cfg, err := config.Load[config.WorkerEnv]()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxConcurrency)
}
