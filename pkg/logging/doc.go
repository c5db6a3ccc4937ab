// Package logging configures the structured loggers used across mocknet.
//
// It wraps log/slog. Engines and interceptors take a *slog.Logger and fall
// back to Nop when none is given, so library use stays silent unless a
// level is configured:
//
//	log := logging.New(logging.Config{
//	    Level:  logging.LevelDebug,
//	    Format: logging.FormatText,
//	})
//	log.Debug("request matched", "mock", m.String())
//
// NewTestHandler routes records through testing.TB.Log, and Tee fans one
// logger out to several handlers, which is how the testing helpers attach
// engine logs to the test that produced them.
package logging
