package provider

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/nkovacs/adnsd/internal/zone"
)

// File serves a zone loaded from a YAML file, reloading and republishing
// a new snapshot whenever the file changes on disk. It ignores updates:
// a File provider is read-only from the server's perspective (pair it
// with DynFile to accept writes).
type File struct {
	Path string
}

// Run implements ZoneProvider.
func (f *File) Run(ctx context.Context, snapshots chan<- *zone.Zone, updates <-chan Update) {
	z, err := f.load(ctx)
	if err != nil {
		return
	}
	select {
	case snapshots <- z:
	case <-ctx.Done():
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Errorf("zone file provider: failed to create watcher for %s: %v", f.Path, err)
		<-ctx.Done()
		return
	}
	defer watcher.Close()
	// Watch the containing directory rather than the file itself: an
	// editor or deployment tool that replaces the file by rename (rather
	// than truncate-and-write) would otherwise orphan the watch.
	if err := watcher.Add(filepath.Dir(f.Path)); err != nil {
		log.Errorf("zone file provider: failed to watch %s: %v", filepath.Dir(f.Path), err)
		<-ctx.Done()
		return
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.Path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			z, err := f.load(ctx)
			if err != nil {
				log.Warnf("zone file provider: reload of %s failed: %v", f.Path, err)
				continue
			}
			select {
			case snapshots <- z:
			case <-ctx.Done():
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("zone file provider: watcher error for %s: %v", f.Path, err)
		case <-ctx.Done():
			return
		}
	}
}

// load reads and parses the zone file, retrying once a second until it
// succeeds or ctx is canceled. Until the first load succeeds no snapshot is
// published, so servers fed by this provider leave queries unanswered rather
// than serving an empty zone.
func (f *File) load(ctx context.Context) (*zone.Zone, error) {
	for {
		data, err := os.ReadFile(f.Path)
		if err == nil {
			z, parseErr := zone.ParseYAML(data)
			if parseErr == nil {
				return z, nil
			}
			log.Errorf("zone file provider: failed to parse %s: %v, retrying in 1s", f.Path, parseErr)
		} else {
			log.Errorf("zone file provider: failed to read %s: %v, retrying in 1s", f.Path, err)
		}
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
