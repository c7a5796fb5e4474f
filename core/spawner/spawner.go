// Package spawner abstracts the host-process-spawning primitive a
// master uses to start and later forcibly stop a worker, kept behind an
// interface so tests and embedded setups can substitute an
// implementation that never shells out.
package spawner

import (
	"context"
	"io"
)

// Spec describes one worker to spawn: the command to run, its
// arguments, environment, and working directory.
type Spec struct {
	Command string
	Args    []string
	Env     []string
	Dir     string
}

// Process is a running spawned worker. Stdin/Stdout let the caller wire
// up a transport.Channel (stdio.New) over the process's pipes.
type Process interface {
	// PID returns the operating-system process ID.
	PID() int

	// Stdin returns the writer connected to the process's standard input.
	Stdin() io.Writer

	// Stdout returns the reader connected to the process's standard output.
	Stdout() io.Reader

	// Wait blocks until the process exits and returns its exit error, if
	// any (nil for a clean exit(0)).
	Wait() error

	// Kill forcibly terminates the process (SIGKILL on Unix).
	Kill() error

	// Signal sends a graceful-stop signal (SIGTERM on Unix) without
	// waiting for the process to exit.
	Signal() error
}

// Spawner starts worker processes. OSSpawner is the production
// implementation; tests substitute a fake that never shells out.
type Spawner interface {
	Spawn(ctx context.Context, spec Spec) (Process, error)
}
