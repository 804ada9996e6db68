package provider

import (
	"context"

	"github.com/nkovacs/adnsd/internal/zone"
)

// Static serves a single, never-changing zone. It ignores updates
// entirely, matching a read-only deployment where zone data is baked into
// the process config.
type Static struct {
	Zone *zone.Zone
}

// Run implements ZoneProvider.
func (s *Static) Run(ctx context.Context, snapshots chan<- *zone.Zone, updates <-chan Update) {
	select {
	case snapshots <- s.Zone:
	case <-ctx.Done():
		return
	}
	<-ctx.Done()
}
