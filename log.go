package smelt

import "log/slog"

func defaultLogger() *slog.Logger {
	return slog.Default().With("component", "smelt")
}
