package pipeline

import (
	"fmt"
	"strings"

	"github.com/alertdigest/alertdigest/internal/fetch"
)

// Tally renders per-strategy usage counts over a run's results, in the given
// tier order with the cache pseudo-strategy last. Tiers that produced nothing
// still appear with a zero count so the line always has the same shape.
func Tally(strategies []string, results []Result) string {
	counts := make(map[string]int, len(strategies)+1)
	for _, res := range results {
		if s := res.Outcome.Strategy; s != "" {
			counts[s]++
		}
	}

	order := make([]string, 0, len(strategies)+1)
	for _, id := range strategies {
		if id != fetch.StrategyCached {
			order = append(order, id)
		}
	}
	order = append(order, fetch.StrategyCached)

	parts := make([]string, 0, len(order))
	for _, id := range order {
		parts = append(parts, fmt.Sprintf("%s=%d", id, counts[id]))
	}
	return strings.Join(parts, ", ")
}
