// Package logger provides structured logging for cufetch.
//
// It wraps zerolog behind a small Logger interface so components can be
// handed a TestLogger or a no-op logger in tests. Console output is colored
// and goes to stderr; when a log file is configured, JSON lines are appended
// to it instead.
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("run_id", runID)
//	log.InfoWithFields("Processing list", map[string]interface{}{"list_id": id})
package logger
