package master_test

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/peepsy/core/registry"
	"github.com/dmitrymomot/peepsy/core/spawner"
	"github.com/dmitrymomot/peepsy/core/transport/stdio"
	"github.com/dmitrymomot/peepsy/core/worker"
)

// fakeSpawner simulates os/exec by running a worker.Runtime in-process
// over a pair of io.Pipes instead of forking a real child, so master
// package tests exercise the real stdio wire format and the real
// worker-side runtime without a subprocess. spec.Command selects which
// registered blueprint builds the simulated worker.
type fakeSpawner struct {
	mu         sync.Mutex
	blueprints map[string]func() (*registry.Registry, worker.Options)
	afterRun   map[string]func(*worker.Runtime)
	spawned    map[string]*fakeProcess
	pidSeq     int32
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{
		blueprints: make(map[string]func() (*registry.Registry, worker.Options)),
		afterRun:   make(map[string]func(*worker.Runtime)),
		spawned:    make(map[string]*fakeProcess),
	}
}

// lastSpawned returns the most recent process started for the named
// blueprint, so a test can kill the simulated child out from under the
// master.
func (s *fakeSpawner) lastSpawned(name string) *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawned[name]
}

func (s *fakeSpawner) register(name string, fn func() (*registry.Registry, worker.Options)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blueprints[name] = fn
}

// onStart registers a hook invoked with the simulated worker's own
// Runtime right after it starts, letting a test drive a
// worker-originated Send the way core/worker code would.
func (s *fakeSpawner) onStart(name string, fn func(*worker.Runtime)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.afterRun[name] = fn
}

func (s *fakeSpawner) Spawn(ctx context.Context, spec spawner.Spec) (spawner.Process, error) {
	s.mu.Lock()
	fn := s.blueprints[spec.Command]
	hook := s.afterRun[spec.Command]
	s.mu.Unlock()
	if fn == nil {
		fn = func() (*registry.Registry, worker.Options) { return registry.New(), worker.Options{} }
	}
	handlers, opts := fn()

	toChildR, toChildW := io.Pipe()
	toMasterR, toMasterW := io.Pipe()

	workerCtx, workerCancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	workerChannel := stdio.New(toMasterW, toChildR, toMasterW)
	rt := worker.New(workerChannel, handlers, opts)

	if hook != nil {
		go hook(rt)
	}

	go func() {
		_ = rt.Run(workerCtx)
		close(done)
	}()

	pid := int(atomic.AddInt32(&s.pidSeq, 1))
	p := &fakeProcess{
		pid:          pid,
		stdin:        toChildW,
		stdout:       toMasterR,
		workerDone:   done,
		workerChildW: toMasterW,
		workerCancel: workerCancel,
	}

	s.mu.Lock()
	s.spawned[spec.Command] = p
	s.mu.Unlock()

	return p, nil
}

// fakeProcess is the spawner.Process half of the simulation: it exposes
// the master-facing ends of the two pipes and reproduces an OS
// process's exit semantics (Kill severs the simulated child's output,
// producing EOF on the master's read side, exactly as a real process
// death closes its inherited stdout fd).
type fakeProcess struct {
	pid          int
	stdin        *io.PipeWriter
	stdout       *io.PipeReader
	workerDone   chan struct{}
	workerChildW *io.PipeWriter
	workerCancel context.CancelFunc
	killOnce     sync.Once
}

func (p *fakeProcess) PID() int          { return p.pid }
func (p *fakeProcess) Stdin() io.Writer  { return p.stdin }
func (p *fakeProcess) Stdout() io.Reader { return p.stdout }

func (p *fakeProcess) Wait() error {
	<-p.workerDone
	return nil
}

func (p *fakeProcess) Kill() error {
	p.killOnce.Do(func() {
		p.workerCancel()
		_ = p.workerChildW.Close()
	})
	return nil
}

func (p *fakeProcess) Signal() error {
	return nil
}
