// Command adnsd is an authoritative DNS server with dynamic, RFC
// 2136-based zone management.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nkovacs/adnsd/internal/config"
	"github.com/nkovacs/adnsd/internal/logging"
	"github.com/nkovacs/adnsd/internal/provider"
	"github.com/nkovacs/adnsd/internal/security"
	"github.com/nkovacs/adnsd/internal/server"
	"github.com/nkovacs/adnsd/internal/zone"
)

var appVersion = "dev"

func main() {
	cfgPath := flag.String("config", config.DefaultConfigFile, "path to the adnsd config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "adnsd: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Setup(cfg.Log.Level, cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "adnsd: %v\n", err)
		os.Exit(1)
	}
	log.Infof("adnsd %s starting", appVersion)

	zp, err := cfg.Provider.BuildProvider()
	if err != nil {
		log.Fatalf("adnsd: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan *zone.Zone, 2)
	updates := make(chan provider.Update, 2)
	go zp.Run(ctx, snapshots, updates)

	limiter := cfg.RateLimit.Build()
	if limiter != nil {
		go runRateLimiterCleanup(ctx, limiter)
	}

	servers := make([]*server.Server, len(cfg.Listen))
	for i, addr := range cfg.Listen {
		servers[i] = server.New(addr, updates, limiter)
	}

	// Every server answers from the same provider, so a snapshot is
	// fanned out to all of them directly rather than each running its
	// own WatchSnapshots goroutine against a duplicated channel.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case z, ok := <-snapshots:
				if !ok {
					return
				}
				for _, s := range servers {
					s.SetSnapshot(z)
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for _, s := range servers {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Run(ctx); err != nil {
				log.Errorf("server %s: %v", s.Addr, err)
			}
		}()
		log.Infof("listening on %s (udp+tcp)", s.Addr)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown signal received")
	cancel()
	wg.Wait()
}

func runRateLimiterCleanup(ctx context.Context, limiter *security.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup()
		}
	}
}
