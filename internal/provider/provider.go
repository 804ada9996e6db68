// Package provider implements the zone-provider contract: a long-running
// task that emits zone snapshots over a channel and receives update
// requests with a one-shot acknowledgement, decoupling the server's
// request-handling loop from how a zone is actually persisted.
package provider

import (
	"context"

	"github.com/nkovacs/adnsd/internal/zone"
)

// Update is a batch of changes destined for the zone a provider manages,
// delivered with a channel the provider must close (or send on) only
// after the update has been durably applied and a fresh snapshot sent.
type Update struct {
	Update zone.ZoneUpdate
	Ack    chan<- struct{}
}

// ZoneProvider runs until ctx is canceled, sending zone snapshots on
// snapshots (at least one, before the server can be considered ready) and
// receiving update requests on updates. Implementations must not block
// indefinitely on a full snapshots channel once ctx is canceled.
type ZoneProvider interface {
	Run(ctx context.Context, snapshots chan<- *zone.Zone, updates <-chan Update)
}

// snapshotChannelDepth is the buffer depth used for every snapshot and
// update channel a provider composition creates internally, matching the
// bounded mpsc depth used throughout the reference implementation this
// package is adapted from.
const snapshotChannelDepth = 2
