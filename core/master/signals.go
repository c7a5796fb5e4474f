package master

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Process-wide signal fan-out state. HandleSignals may be called on any
// number of Master instances; signal.Notify itself is only ever
// installed once per process, guarded by signalOnce, so repeated calls
// never leak duplicate OS-level signal registrations.
var (
	signalOnce    sync.Once
	signalMu      sync.Mutex
	signalMasters []*Master
)

// HandleSignals registers m to receive SIGINT/SIGTERM and respond by
// calling ShutdownAll with the master's configured ShutdownTimeout. The
// underlying OS signal handler is installed at most once per process,
// regardless of how many Master instances call this method; all of them
// are notified when a signal arrives.
func (m *Master) HandleSignals() {
	signalMu.Lock()
	signalMasters = append(signalMasters, m)
	signalMu.Unlock()

	signalOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			for range ch {
				signalMu.Lock()
				targets := append([]*Master(nil), signalMasters...)
				signalMu.Unlock()

				for _, target := range targets {
					go func(t *Master) {
						_ = t.ShutdownAll(context.Background(), t.opts.ShutdownTimeout)
					}(target)
				}
			}
		}()
	})
}
