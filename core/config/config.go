// Package config provides type-safe environment variable loading with
// caching using Go generics. Each configuration type is parsed from the
// environment once per process and cached for subsequent calls, using
// caarlos0/env for struct tag parsing and joho/godotenv to load a local
// .env file before the first lookup.
package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/peepsy/core/validator"
)

var (
	dotenvOnce sync.Once

	cacheMu sync.Mutex
	cache   = map[reflect.Type]any{}
)

// loadDotenv loads a .env file from the working directory exactly once
// per process. A missing file is not an error; environment variables set
// outside of one still work.
func loadDotenv() {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
}

// Load parses environment variables into a new T, validates it against
// its `validate` struct tags, and caches the result so later calls for
// the same T return the first successfully parsed value without
// re-reading the environment.
func Load[T any]() (*T, error) {
	loadDotenv()

	t := reflect.TypeOf((*T)(nil)).Elem()

	cacheMu.Lock()
	if cached, ok := cache[t]; ok {
		cacheMu.Unlock()
		return cached.(*T), nil
	}
	cacheMu.Unlock()

	var cfg T
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", t, err)
	}
	if err := validator.ValidateStruct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate %s: %w", t, err)
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if cached, ok := cache[t]; ok {
		return cached.(*T), nil
	}
	cache[t] = &cfg
	return &cfg, nil
}

// MustLoad is Load, panicking on failure. Intended for startup code
// paths where a misconfigured environment should stop the process
// immediately rather than be handled as a recoverable error.
func MustLoad[T any]() *T {
	cfg, err := Load[T]()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Reset clears the cache for T, forcing the next Load[T] call to
// re-parse the environment. Intended for tests.
func Reset[T any]() {
	t := reflect.TypeOf((*T)(nil)).Elem()
	cacheMu.Lock()
	defer cacheMu.Unlock()
	delete(cache, t)
}
