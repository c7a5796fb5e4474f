package spawner_test

import (
	"bufio"
	"context"
	"testing"
	"time"

	"github.com/dmitrymomot/peepsy/core/spawner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSSpawnerStartsProcessAndWiresStdio(t *testing.T) {
	s := spawner.NewOSSpawner()

	proc, err := s.Spawn(context.Background(), spawner.Spec{
		Command: "sh",
		Args:    []string{"-c", "read line; echo \"got:$line\""},
	})
	require.NoError(t, err)
	assert.Greater(t, proc.PID(), 0)

	_, err = proc.Stdin().Write([]byte("hello\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(proc.Stdout())
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "got:hello\n", line)

	require.NoError(t, proc.Wait())
}

func TestOSSpawnerKillTerminatesProcess(t *testing.T) {
	s := spawner.NewOSSpawner()

	proc, err := s.Spawn(context.Background(), spawner.Spec{
		Command: "sh",
		Args:    []string{"-c", "sleep 30"},
	})
	require.NoError(t, err)

	require.NoError(t, proc.Kill())

	done := make(chan error, 1)
	go func() { done <- proc.Wait() }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after Kill")
	}
}
