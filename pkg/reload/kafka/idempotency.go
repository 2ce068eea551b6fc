package kafka

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// appliedVersions remembers the last reload version applied per concrete
// dataset. An "all" event counts as one event for stations and one for
// neighborhoods.
type appliedVersions struct {
	mu   sync.Mutex
	last *lru.Cache[string, uint64]
}

func newAppliedVersions() *appliedVersions {
	// two datasets today; the slack covers renamed kinds across deploys
	c, _ := lru.New[string, uint64](16)
	return &appliedVersions{last: c}
}

// stale reports whether every dataset ev covers already applied a version >= ev.Version.
func (a *appliedVersions) stale(ev ReloadEvent) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ds := range ev.datasets() {
		if last, ok := a.last.Get(ds); !ok || ev.Version > last {
			return false
		}
	}
	return true
}

// record is called only after a successful reload, so a failed version can be retried.
func (a *appliedVersions) record(ev ReloadEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ds := range ev.datasets() {
		if last, ok := a.last.Get(ds); ok && last >= ev.Version {
			continue
		}
		a.last.Add(ds, ev.Version)
	}
}
