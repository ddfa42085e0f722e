// Package logging provides structured logging helpers for calsheet.
//
// All logging goes through log/slog. The helpers keep attribute names
// consistent across packages and adapt slog to the logger interfaces of
// third-party libraries.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithService(slog.Default(), "orchestrator")
//	logger.Info("fetching events",
//	    logging.CalendarID(id),
//	    logging.Generation(gen))
//
// Hand slog to the cron scheduler:
//
//	c := cron.New(cron.WithLogger(logging.NewCronAdapter(logger)))
//
// Tokens are never logged directly; use SanitizeToken.
package logging
