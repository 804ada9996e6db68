package provider

import (
	"context"

	"github.com/nkovacs/adnsd/internal/zone"
)

// SendTarget selects which of a Merge provider's two children receives
// inbound updates.
type SendTarget int

const (
	// SendToTop forwards updates to the Top provider.
	SendToTop SendTarget = iota
	// SendToBottom forwards updates to the Bottom provider.
	SendToBottom
)

// Merge composes two providers into one: each published zone is
// Bottom's latest snapshot with Top's latest snapshot merged over it
// (Top wins on conflicting records), republished whenever either child
// produces a new snapshot. Updates are forwarded to whichever child
// SendUpdates names; the other child never sees them.
type Merge struct {
	Top         ZoneProvider
	Bottom      ZoneProvider
	SendUpdates SendTarget
}

// Run implements ZoneProvider.
func (m *Merge) Run(ctx context.Context, snapshots chan<- *zone.Zone, updates <-chan Update) {
	topSnapshots := make(chan *zone.Zone, snapshotChannelDepth)
	topUpdates := make(chan Update, snapshotChannelDepth)
	bottomSnapshots := make(chan *zone.Zone, snapshotChannelDepth)
	bottomUpdates := make(chan Update, snapshotChannelDepth)

	childCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go m.Top.Run(childCtx, topSnapshots, topUpdates)
	go m.Bottom.Run(childCtx, bottomSnapshots, bottomUpdates)

	var currentTop, currentBottom *zone.Zone
	publish := func() bool {
		if currentTop == nil || currentBottom == nil {
			return true
		}
		merged := currentBottom.Clone()
		merged.MergeFrom(currentTop)
		select {
		case snapshots <- merged:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case z, ok := <-topSnapshots:
			if !ok {
				return
			}
			currentTop = z
			if !publish() {
				return
			}
		case z, ok := <-bottomSnapshots:
			if !ok {
				return
			}
			currentBottom = z
			if !publish() {
				return
			}
		case update, ok := <-updates:
			if !ok {
				return
			}
			switch m.SendUpdates {
			case SendToTop:
				topUpdates <- update
			case SendToBottom:
				bottomUpdates <- update
			}
		case <-ctx.Done():
			return
		}
	}
}
