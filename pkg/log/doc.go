// Package log provides trail's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog, so output interoperates with the slog ecosystem
// while the rest of the codebase stays against this facade.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormat(log.TextFormat),
//	)
//	l = l.With(log.Component("seglog"), log.Str("dir", dir))
//	l.Info("segment rotated", log.Uint64("index", idx))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config, supporting
// text or JSON formatting. There is no package-level default logger;
// construct one instance and pass it explicitly.
package log
