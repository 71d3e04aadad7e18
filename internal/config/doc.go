// Package config holds per-instance configuration for the audit log engine.
//
// Configuration is layered: built-in defaults, then an optional JSON file,
// then TRAIL_* environment variables parsed via caarlos0/env struct tags.
// Thresholds (segment size, flush cadence, cache TTL, compression level) are
// per-instance values, never process globals, so two engines embedded in the
// same process cannot couple through hidden state.
package config
