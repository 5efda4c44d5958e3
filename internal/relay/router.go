// Package relay contains the ingestion pipeline: the poller that feeds
// the queue, the processor that delivers entries, the stall watchdog, and
// the routing/alerting pieces they share.
package relay

import "feedrelay/internal/config"

// Router fans an entry out to destinations: the default channel first,
// then every enabled rule whose category matches. The rule table is
// snapshotted at construction; disabled rules are inert but retained.
type Router struct {
	defaultDest string
	rules       []config.Rule
}

func NewRouter(defaultDest string, rules []config.Rule) *Router {
	return &Router{defaultDest: defaultDest, rules: rules}
}

// Destinations returns the ordered, de-duplicated destination set for a
// category. The default destination always comes first.
func (r *Router) Destinations(categoryID string) []string {
	dests := []string{r.defaultDest}
	seen := map[string]struct{}{r.defaultDest: {}}
	for _, rule := range r.rules {
		if !rule.Enabled || rule.CategoryID != categoryID {
			continue
		}
		if _, dup := seen[rule.ChatID]; dup {
			continue
		}
		seen[rule.ChatID] = struct{}{}
		dests = append(dests, rule.ChatID)
	}
	return dests
}
