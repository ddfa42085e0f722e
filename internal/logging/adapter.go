package logging

import (
	"log/slog"
)

// CronAdapter adapts an slog.Logger to the logger interface of
// github.com/robfig/cron/v3. The cron library logs routine scheduling at
// Info; those messages are demoted to Debug.
type CronAdapter struct {
	logger *slog.Logger
}

// NewCronAdapter creates a new CronAdapter wrapping the given slog.Logger.
// If logger is nil, slog.Default() is used.
func NewCronAdapter(logger *slog.Logger) *CronAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CronAdapter{logger: logger}
}

// Info logs scheduling details with key-value pairs at debug level.
func (a *CronAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug(msg, keysAndValues...)
}

// Error logs a scheduling failure with key-value pairs.
func (a *CronAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	args := make([]interface{}, 0, len(keysAndValues)+1)
	args = append(args, Err(err))
	args = append(args, keysAndValues...)
	a.logger.Error(msg, args...)
}

// Logger returns the underlying slog.Logger.
func (a *CronAdapter) Logger() *slog.Logger {
	return a.logger
}
