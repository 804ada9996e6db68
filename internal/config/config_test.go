package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nkovacs/adnsd/internal/provider"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadParsesListenAndProvider(t *testing.T) {
	dir := t.TempDir()
	zonePath := writeFile(t, dir, "example.com.yaml", "soa:\n  mname: ns1.example.com\n  rname: hostmaster.example.com\n  serial: 1\n  refresh: 3600\n  retry: 900\n  expire: 604800\n  minimum: 300\n")
	cfgPath := writeFile(t, dir, "adnsd.yaml", `
listen:
  - "0.0.0.0:53"
provider:
  type: static
  path: `+zonePath+`
log:
  level: info
  file: /var/log/adnsd.log
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Listen) != 1 || cfg.Listen[0] != "0.0.0.0:53" {
		t.Fatalf("unexpected listen addresses: %v", cfg.Listen)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("unexpected log level: %q", cfg.Log.Level)
	}

	p, err := cfg.Provider.BuildProvider()
	if err != nil {
		t.Fatalf("BuildProvider: %v", err)
	}
	if _, ok := p.(*provider.Static); !ok {
		t.Fatalf("expected a Static provider, got %T", p)
	}
}

func TestLoadRejectsEmptyListen(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "adnsd.yaml", "provider:\n  type: static\n  path: zone.yaml\n")
	if _, err := Load(cfgPath); err == nil {
		t.Fatalf("expected an error for a config with no listen addresses")
	}
}

func TestBuildProviderMerge(t *testing.T) {
	dir := t.TempDir()
	topPath := writeFile(t, dir, "top.yaml", "soa:\n  mname: ns1.example.com\n  rname: hostmaster.example.com\n  serial: 1\n  refresh: 3600\n  retry: 900\n  expire: 604800\n  minimum: 300\n")
	bottomPath := writeFile(t, dir, "bottom.yaml", "soa:\n  mname: ns1.example.com\n  rname: hostmaster.example.com\n  serial: 1\n  refresh: 3600\n  retry: 900\n  expire: 604800\n  minimum: 300\n")

	pc := ProviderConfig{
		Type:        "merge",
		SendUpdates: "top",
		Top:         &ProviderConfig{Type: "static", Path: topPath},
		Bottom:      &ProviderConfig{Type: "static", Path: bottomPath},
	}
	p, err := pc.BuildProvider()
	if err != nil {
		t.Fatalf("BuildProvider: %v", err)
	}
	if _, ok := p.(*provider.Merge); !ok {
		t.Fatalf("expected a Merge provider, got %T", p)
	}
}

func TestBuildProviderUnknownType(t *testing.T) {
	pc := ProviderConfig{Type: "carrier-pigeon"}
	if _, err := pc.BuildProvider(); err == nil {
		t.Fatalf("expected an error for an unknown provider type")
	}
}

func TestRateLimitConfigBuildDisabledByDefault(t *testing.T) {
	var rc RateLimitConfig
	if rc.Build() != nil {
		t.Fatalf("expected a zero-value RateLimitConfig to disable rate limiting")
	}
}

func TestRateLimitConfigBuildEnabled(t *testing.T) {
	rc := RateLimitConfig{QPS: 50}
	if rc.Build() == nil {
		t.Fatalf("expected a non-nil limiter when QPS is set")
	}
}
