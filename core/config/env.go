package config

// MasterEnv is the environment-sourced half of a master's options,
// loadable with Load[MasterEnv]()/MustLoad[MasterEnv](). Call sites
// still override these with explicit MasterOption values when present;
// this only supplies process-wide defaults.
type MasterEnv struct {
	TimeoutMs              int `env:"PEEPSY_TIMEOUT_MS" envDefault:"5000" validate:"between:1,300000"`
	MaxRetries             int `env:"PEEPSY_MAX_RETRIES" envDefault:"0" validate:"min:0"`
	RetryDelayMs           int `env:"PEEPSY_RETRY_DELAY_MS" envDefault:"1000" validate:"min:0"`
	HeartbeatIntervalMs    int `env:"PEEPSY_HEARTBEAT_INTERVAL_MS" envDefault:"2000" validate:"positive"`
	HeartbeatMissThreshold int `env:"PEEPSY_HEARTBEAT_MISS_THRESHOLD" envDefault:"3" validate:"positive"`
}

// WorkerEnv is the environment-sourced half of a worker's options.
// PEEPSY_MAX_CONCURRENCY overrides the bounded-concurrent cap for every
// worker runtime in the process.
type WorkerEnv struct {
	MaxConcurrency int `env:"PEEPSY_MAX_CONCURRENCY" envDefault:"0" validate:"min:0"`
}
