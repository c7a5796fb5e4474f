package master

import (
	"encoding/json"
	"math/rand/v2"
	"time"

	"github.com/dmitrymomot/peepsy/internal/perrors"
)

// Load-balancing strategies a group may be configured with.
const (
	StrategyRoundRobin = "round-robin"
	StrategyRandom     = "random"
	StrategyLeastBusy  = "least-busy"
)

// group is the master's record of one named collection of targets
// sharing a load-balancing strategy and an optional shared concurrency
// cap, plus the FIFO queue of requests waiting for capacity to free.
type group struct {
	id                 string
	targets            []string
	strategy           string
	maxConcurrency     int
	disableAutoRestart bool
	cursor             int
	pending            []*pendingRequest
}

// pendingRequest is a Send call queued at the master layer because its
// group's in-flight count has reached maxConcurrency. It is dispatched
// FIFO, re-running target selection at drain time so a freed slot can
// route to any member, not just the one that just finished.
type pendingRequest struct {
	action   string
	data     json.RawMessage
	timeout  time.Duration
	resultCh chan sendResult
}

type sendResult struct {
	data json.RawMessage
	err  error
}

// selectTarget applies g's configured strategy to choose the next
// target. Callers must hold the owning Master's mu.
func (g *group) selectTarget(active func(target string) int32) (string, error) {
	if len(g.targets) == 0 {
		return "", perrors.NewNotFoundError("group member", g.id)
	}

	switch g.strategy {
	case StrategyRoundRobin, "":
		target := g.targets[g.cursor%len(g.targets)]
		g.cursor++
		return target, nil

	case StrategyRandom:
		return g.targets[rand.IntN(len(g.targets))], nil

	case StrategyLeastBusy:
		best := g.targets[0]
		bestActive := active(best)
		for _, t := range g.targets[1:] {
			if a := active(t); a < bestActive {
				best, bestActive = t, a
			}
		}
		return best, nil

	default:
		return "", perrors.ErrUnknownStrategy
	}
}

// removeTarget drops target from g's member list, leaving the cursor as
// is; it simply wraps on the new length on its next use.
func (g *group) removeTarget(target string) {
	for i, t := range g.targets {
		if t == target {
			g.targets = append(g.targets[:i], g.targets[i+1:]...)
			return
		}
	}
}
