// Package scheduler fires the periodic timesheet refresh from a cron
// schedule. CronTicker satisfies orchestrator.Ticker.
package scheduler
