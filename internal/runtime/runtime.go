package runtime

import (
	"context"
	"errors"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Martificial-UK/trail/internal/audit"
	cfgpkg "github.com/Martificial-UK/trail/internal/config"
	"github.com/Martificial-UK/trail/internal/integrity"
	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	// DataDir overrides Config.DataDir when set.
	DataDir string
	Config  cfgpkg.Config
	Logger  logpkg.Logger

	// Registerer receives the instance's Prometheus collectors; nil skips
	// registration.
	Registerer prometheus.Registerer
}

// Runtime wires config, key material, and the audit facade for a
// single-node instance.
type Runtime struct {
	id     string
	config cfgpkg.Config
	lg     logpkg.Logger
	audit  *audit.Logger
}

// Open resolves the data directory, loads or creates the signing key when
// integrity is enabled, and starts the audit logger.
func Open(opts Options) (*Runtime, error) {
	lg := opts.Logger
	if lg == nil {
		lg = logpkg.NewNopLogger()
	}
	dir := opts.DataDir
	if dir == "" {
		dir = opts.Config.DataDir
	}
	if dir == "" {
		dir = cfgpkg.DefaultDataDir()
	}

	var signer *integrity.Signer
	if opts.Config.EnableIntegrity {
		s, err := integrity.NewSigner(integrity.NewFileKeyProvider(dir), opts.Config.KeyName)
		if err != nil {
			return nil, err
		}
		signer = s
	}

	al, err := audit.New(dir, audit.Options{
		Config:     opts.Config,
		Logger:     lg,
		Signer:     signer,
		Registerer: opts.Registerer,
	})
	if err != nil {
		return nil, err
	}
	rt := &Runtime{
		id:     uuid.NewString(),
		config: opts.Config,
		lg:     lg,
		audit:  al,
	}
	lg.Info("runtime started", logpkg.Str("instance", rt.id), logpkg.Str("dir", dir))
	return rt, nil
}

// Close flushes and stops the audit logger.
func (r *Runtime) Close(ctx context.Context) error {
	if r.audit == nil {
		return nil
	}
	return r.audit.Shutdown(ctx)
}

// CheckHealth verifies the segment directory is present and writable.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.audit == nil {
		return errors.New("audit logger not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(r.audit.Dir())
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("data path is not a directory")
	}
	return nil
}

// Audit returns the audit facade.
func (r *Runtime) Audit() *audit.Logger { return r.audit }

// ID returns the per-process instance identifier.
func (r *Runtime) ID() string { return r.id }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
