package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/dmitrymomot/peepsy"
	"github.com/dmitrymomot/peepsy/core/breaker"
	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/dmitrymomot/peepsy/core/master"
	"github.com/dmitrymomot/peepsy/core/spawner"
	"github.com/dmitrymomot/peepsy/core/validator"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// targetConfig describes one worker the demo spawns.
type targetConfig struct {
	Name           string `mapstructure:"name" validate:"required"`
	Mode           string `mapstructure:"mode"`
	MaxConcurrency int    `mapstructure:"maxConcurrency" validate:"min:0"`
	Group          string `mapstructure:"group"`
}

// groupConfig describes one load-balancing group the demo configures
// before spawning its members.
type groupConfig struct {
	ID             string `mapstructure:"id" validate:"required"`
	Strategy       string `mapstructure:"strategy"`
	MaxConcurrency int    `mapstructure:"maxConcurrency" validate:"min:0"`
}

// demoConfig is the viper-unmarshaled shape of a demo config file.
type demoConfig struct {
	Targets []targetConfig `mapstructure:"targets"`
	Groups  []groupConfig  `mapstructure:"groups"`
}

// defaultDemoConfig runs two workers in one round-robin group capped at
// maxConcurrency 2, enough to show capacity queueing without a config file.
func defaultDemoConfig() demoConfig {
	return demoConfig{
		Groups: []groupConfig{
			{ID: "gq1", Strategy: master.StrategyRoundRobin, MaxConcurrency: 2},
		},
		Targets: []targetConfig{
			{Name: "seq1", Mode: "sequential", Group: "gq1"},
			{Name: "conc1", Mode: "concurrent", MaxConcurrency: 4, Group: "gq1"},
		},
	}
}

func newDemoCommand() *cobra.Command {
	var (
		cfgPath string
		watch   bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Spawn a master and a pool of workers, then run a sample scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadDemoConfig(cfgPath)
			if err != nil {
				return fmt.Errorf("peepsyctl: load config: %w", err)
			}
			return runDemo(cmd.Context(), cfg, timeout, watch)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "viper-readable config file (YAML/JSON/TOML); built-in demo config when omitted")
	cmd.Flags().BoolVar(&watch, "watch", false, "open a live terminal dashboard instead of running the one-shot scenario")
	cmd.Flags().DurationVar(&timeout, "timeout", master.DefaultTimeout, "default per-request send timeout")
	return cmd
}

func loadDemoConfig(path string) (demoConfig, error) {
	if path == "" {
		return defaultDemoConfig(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return demoConfig{}, err
	}

	var cfg demoConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return demoConfig{}, err
	}
	if err := validateDemoConfig(cfg); err != nil {
		return demoConfig{}, fmt.Errorf("peepsyctl: invalid config: %w", err)
	}
	return cfg, nil
}

// validateDemoConfig runs every target and group through the same
// struct-tag validator core/config applies to its environment structs,
// so a malformed config file fails fast with a field message instead of
// surfacing as a confusing spawn error.
func validateDemoConfig(cfg demoConfig) error {
	for i := range cfg.Targets {
		if err := validator.ValidateStruct(&cfg.Targets[i]); err != nil {
			return fmt.Errorf("target %d: %w", i, err)
		}
	}
	for i := range cfg.Groups {
		if err := validator.ValidateStruct(&cfg.Groups[i]); err != nil {
			return fmt.Errorf("group %d: %w", i, err)
		}
	}
	return nil
}

func runDemo(ctx context.Context, cfg demoConfig, timeout time.Duration, watch bool) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("peepsyctl: resolve own executable: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	envOpts, err := peepsy.MasterOptionsFromEnv()
	if err != nil {
		return fmt.Errorf("peepsyctl: load master env config: %w", err)
	}

	opts := append(envOpts,
		master.WithTimeout(timeout),
		master.WithLogger(logger),
		master.WithBreaker(breaker.NewRegistry(breaker.DefaultSettings())),
	)
	m, err := master.New(opts...)
	if err != nil {
		return fmt.Errorf("peepsyctl: construct master: %w", err)
	}
	m.HandleSignals()

	// Exercise the master-side handler registry contract: workers can
	// originate requests the master answers, symmetric to the flow the
	// master drives against them.
	master.RegisterHandler(m, "ping", func(_ context.Context, req json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"pong":true}`), nil
	})

	for _, g := range cfg.Groups {
		m.ConfigureGroup(g.ID, master.GroupConfig{Strategy: g.Strategy, MaxConcurrency: g.MaxConcurrency})
	}

	for _, t := range cfg.Targets {
		mode := envelope.ModeConcurrent
		if t.Mode == "sequential" {
			mode = envelope.ModeSequential
		}

		spec := spawner.Spec{
			Command: exe,
			Args:    []string{"worker", "--mode", string(mode), "--max-concurrency", strconv.Itoa(t.MaxConcurrency)},
		}

		var opts []master.SpawnOption
		if t.Group != "" {
			opts = append(opts, master.WithGroup(t.Group))
		}
		if err := m.Spawn(ctx, t.Name, spec, mode, opts...); err != nil {
			return fmt.Errorf("peepsyctl: spawn %s: %w", t.Name, err)
		}
	}

	// Give each worker's INIT a moment to land before dispatching.
	time.Sleep(150 * time.Millisecond)

	if watch {
		runDashboard(ctx, m)
		return m.ShutdownAll(context.Background(), master.DefaultShutdownTimeout)
	}

	runScenario(ctx, m, cfg)
	return m.ShutdownAll(context.Background(), master.DefaultShutdownTimeout)
}

// runScenario dispatches a slow delay and an immediately-following echo
// against whatever targets/groups the config defines, printing
// round-trip timings so sequential ordering and capacity queueing are
// visible in the output.
func runScenario(ctx context.Context, m *master.Master, cfg demoConfig) {
	if len(cfg.Targets) == 0 {
		return
	}

	dest := cfg.Targets[0].Name
	if len(cfg.Groups) > 0 {
		dest = cfg.Groups[0].ID
	}

	fmt.Printf("sending delay(200ms) and echo(42) to %q\n", dest)

	start := time.Now()
	var echoResult json.RawMessage
	done := make(chan struct{})
	go func() {
		defer close(done)
		data, err := m.Send(ctx, dest, "echo", map[string]int{"val": 42})
		if err != nil {
			fmt.Printf("echo failed: %v\n", err)
			return
		}
		echoResult = data
	}()

	data, err := m.Send(ctx, dest, "delay", map[string]int{"ms": 200})
	if err != nil {
		fmt.Printf("delay failed: %v\n", err)
	} else {
		fmt.Printf("delay response after %s: %s\n", formatDuration(time.Since(start)), string(data))
	}

	<-done
	if echoResult != nil {
		fmt.Printf("echo response after %s: %s\n", formatDuration(time.Since(start)), string(echoResult))
	}

	for _, t := range cfg.Targets {
		snap, err := m.Stats(t.Name)
		if err != nil {
			continue
		}
		fmt.Printf("%-10s status=%-10s handled=%-4d active=%-3d avg=%s\n",
			t.Name, snap.Status, snap.RequestsHandled, snap.RequestsActive,
			formatDuration(snap.AvgResponseTime))
	}
}
