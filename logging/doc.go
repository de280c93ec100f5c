// Package logging provides the minimal logging interface used throughout
// agentsquad together with adapters for log/slog.
//
//   - Logger is the interface every component accepts (Debug, Info, Warn, Error
//     with key/value pairs)
//   - SlogAdapter wraps an existing *slog.Logger
//   - SquadLogger is a configurable slog-backed Logger with conversation
//     scoped attributes and helpers for tool and completion calls
//   - NoOpLogger discards everything and is the default
//
// Usage:
//
//	logger := logging.NewSquadLogger(logging.LogLevelInfo, "text")
//	sq, err := agentsquad.New(func(o *agentsquad.Options) { o.Logger = logger })
package logging
