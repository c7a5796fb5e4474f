package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrymomot/peepsy/core/events"
	"github.com/dmitrymomot/peepsy/core/master"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// runDashboard shows a live terminal view of target health, group
// queues, and per-target stats, refreshed on a fixed tick and on every
// spawn/error/heartbeat-missed/auto-restart event the master emits. It
// blocks until the operator quits ('q' or Ctrl-C) or ctx is cancelled.
func runDashboard(ctx context.Context, m *master.Master) {
	view := tview.NewTextView().
		SetDynamicColors(true).
		SetChangedFunc(func() {})
	view.SetBorder(true).SetTitle(" peepsyctl demo --watch (q to quit) ")

	app := tview.NewApplication().SetRoot(view, true)
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'q' || event.Key() == tcell.KeyCtrlC {
			app.Stop()
			return nil
		}
		return event
	})

	render := func() {
		app.QueueUpdateDraw(func() {
			view.SetText(renderDashboard(m))
		})
	}

	for _, name := range []string{events.Spawn, events.Error, events.HeartbeatMissed, events.AutoRestart} {
		m.Events().On(name, func(events.Event) { render() })
	}

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				render()
			case <-ctx.Done():
				app.Stop()
				return
			case <-stop:
				return
			}
		}
	}()

	render()
	_ = app.Run()
	close(stop)
}

func renderDashboard(m *master.Master) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[::b]targets[::-]\n")
	for _, target := range m.Targets() {
		snap, err := m.Stats(target)
		if err != nil {
			continue
		}
		since := "never"
		if !snap.LastHeartbeatAt.IsZero() {
			since = formatDuration(time.Since(snap.LastHeartbeatAt)) + " ago"
		}
		color := "green"
		if snap.Status == "unhealthy" {
			color = "red"
		} else if snap.Status == "restarting" || snap.Status == "starting" {
			color = "yellow"
		}
		fmt.Fprintf(&b, "  %-12s [%s]%-10s[-] handled=%-4d active=%-3d avg=%-8s last-heartbeat=%s\n",
			target, color, snap.Status, snap.RequestsHandled, snap.RequestsActive,
			formatDuration(snap.AvgResponseTime), since)
	}

	fmt.Fprintf(&b, "\n[::b]groups[::-]\n")
	for _, id := range m.GroupIDs() {
		g, err := m.GroupStats(id)
		if err != nil {
			continue
		}
		capStr := "unbounded"
		if g.MaxConcurrency > 0 {
			capStr = fmt.Sprintf("%d", g.MaxConcurrency)
		}
		fmt.Fprintf(&b, "  %-12s strategy=%-12s cap=%-9s active=%-3d pending=%d members=%s\n",
			g.ID, g.Strategy, capStr, g.ActiveTotal, g.PendingCount, strings.Join(g.Targets, ","))
	}

	if unhealthy := m.UnhealthyTargets(); len(unhealthy) > 0 {
		fmt.Fprintf(&b, "\n[red::b]unhealthy:[-::-] %s\n", strings.Join(unhealthy, ", "))
	}

	return b.String()
}
