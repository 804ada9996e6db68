package provider

import (
	"context"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/nkovacs/adnsd/internal/zone"
)

// DynFile wraps a File provider and additionally accepts updates: each
// update is applied to the last-loaded zone, written back atomically
// (write to a temp file, then rename over the original, so a concurrent
// reload never observes a half-written file), and republished.
type DynFile struct {
	Path string
}

// Run implements ZoneProvider.
func (d *DynFile) Run(ctx context.Context, snapshots chan<- *zone.Zone, updates <-chan Update) {
	if _, err := os.Stat(d.Path); os.IsNotExist(err) {
		if dir := filepath.Dir(d.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Errorf("dynfile provider: failed to create %s: %v", dir, err)
				return
			}
		}
		if err := os.WriteFile(d.Path, []byte("{}\n"), 0o644); err != nil {
			log.Errorf("dynfile provider: failed to create initial zone file %s: %v", d.Path, err)
			return
		}
	}

	fileSnapshots := make(chan *zone.Zone, snapshotChannelDepth)
	fileCtx, cancelFile := context.WithCancel(ctx)
	defer cancelFile()
	file := &File{Path: d.Path}
	go file.Run(fileCtx, fileSnapshots, make(chan Update))

	var current *zone.Zone
	for {
		select {
		case z, ok := <-fileSnapshots:
			if !ok {
				return
			}
			current = z
			select {
			case snapshots <- z:
			case <-ctx.Done():
				return
			}
		case update, ok := <-updates:
			if !ok {
				return
			}
			if current == nil {
				log.Warnf("dynfile provider: discarding update received before zone loaded")
				continue
			}
			// current may already be published to snapshots and held by a
			// server mid-Answer; apply the update to a clone so a reader
			// never observes a half-applied mutation.
			current = current.Clone()
			update.Update.ApplyTo(current)
			data, err := zone.MarshalYAML(current)
			if err != nil {
				log.Errorf("dynfile provider: failed to marshal zone for %s: %v", d.Path, err)
				continue
			}
			if err := atomicWriteFile(d.Path, data); err != nil {
				log.Errorf("dynfile provider: failed to write zone file %s: %v", d.Path, err)
				continue
			}
			select {
			case snapshots <- current:
			case <-ctx.Done():
				return
			}
			close(update.Ack)
		case <-ctx.Done():
			return
		}
	}
}

func atomicWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
