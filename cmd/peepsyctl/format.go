package main

import (
	"time"

	"github.com/hako/durafmt"
)

// formatDuration renders d the way the dashboard and scenario output
// both want: short units, first component only, flooring to zero
// instead of handing durafmt a sub-millisecond value it doesn't support.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		d = 0
	}
	return durafmt.ParseShort(d).LimitFirstN(1).String()
}
