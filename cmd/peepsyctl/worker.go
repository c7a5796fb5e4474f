package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrymomot/peepsy"
	"github.com/dmitrymomot/peepsy/core/envelope"
	"github.com/dmitrymomot/peepsy/core/registry"
	"github.com/dmitrymomot/peepsy/core/transport/stdio"
	"github.com/dmitrymomot/peepsy/core/worker"
	"github.com/spf13/cobra"
)

// newWorkerCommand builds the entrypoint run inside every child process
// the demo command spawns: it wires a stdio.Channel over its own
// stdin/stdout, registers the delay/echo demo handlers, and blocks
// serving REQUESTs until SHUTDOWN or its parent's pipe closes.
func newWorkerCommand() *cobra.Command {
	var (
		mode           string
		maxConcurrency int
	)

	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Run the worker side of one peepsy channel over stdio (internal)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), mode, maxConcurrency)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "concurrent", "execution mode: sequential|concurrent")
	cmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 0, "bounded-concurrent cap; 0 is unbounded (overridden by PEEPSY_MAX_CONCURRENCY)")
	return cmd
}

func runWorker(ctx context.Context, modeFlag string, maxConcurrency int) error {
	mode := envelope.ModeConcurrent
	if modeFlag == "sequential" {
		mode = envelope.ModeSequential
	}

	handlers := registry.New()
	registerDemoHandlers(handlers)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	channel := stdio.New(os.Stdout, os.Stdin, os.Stdout, stdio.WithLogger(logger))

	concurrencyCap, err := peepsy.WorkerMaxConcurrencyFromEnv(maxConcurrency)
	if err != nil {
		return err
	}

	rt := worker.New(channel, handlers, worker.Options{
		Mode:           mode,
		MaxConcurrency: concurrencyCap,
		Logger:         logger,
	})

	return rt.Run(ctx)
}

type delayRequest struct {
	Ms int `json:"ms"`
}

type delayResponse struct {
	Delayed int `json:"delayed"`
}

type echoRequest struct {
	Val any `json:"val"`
}

type echoResponse struct {
	Echoed any `json:"echoed"`
}

func registerDemoHandlers(r *registry.Registry) {
	registry.Register(r, "delay", func(ctx context.Context, req delayRequest) (delayResponse, error) {
		select {
		case <-time.After(time.Duration(req.Ms) * time.Millisecond):
		case <-ctx.Done():
			return delayResponse{}, ctx.Err()
		}
		return delayResponse{Delayed: req.Ms}, nil
	})

	registry.Register(r, "echo", func(_ context.Context, req echoRequest) (echoResponse, error) {
		return echoResponse{Echoed: req}, nil
	})
}
