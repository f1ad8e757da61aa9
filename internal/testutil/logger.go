package testutil

import "log/slog"

// DiscardLogger returns a slog.Logger that discards all output.
// Prefer log.NewNop() when the internal/log package is already imported;
// this exists for tests that only need slog directly.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
