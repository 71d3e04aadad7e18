package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	cfgpkg "github.com/Martificial-UK/trail/internal/config"
)

func TestOpenCloseHealth(t *testing.T) {
	dir := t.TempDir()
	cfg := cfgpkg.Default()
	cfg.EnableIntegrity = false
	rt, err := Open(Options{DataDir: dir, Config: cfg})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	defer rt.Close(context.Background())
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if rt.ID() == "" {
		t.Fatal("expected a non-empty instance id")
	}
}

func TestOpenCreatesSigningKey(t *testing.T) {
	dir := t.TempDir()
	cfg := cfgpkg.Default()
	rt, err := Open(Options{DataDir: dir, Config: cfg})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close(context.Background())

	if _, err := os.Stat(filepath.Join(dir, ".audit_secret")); err != nil {
		t.Fatalf("expected key file: %v", err)
	}
	if err := rt.Audit().LogEvent("lead_created", "LEAD-001", nil); err != nil {
		t.Fatalf("log event: %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	cfg := cfgpkg.Default()
	cfg.EnableIntegrity = false
	rt, err := Open(Options{DataDir: dir, Config: cfg})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := rt.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := rt.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
