// Package logging provides structured logging for particle-go tools.
//
// Logging is silent by default so CLI output stays clean. Set the
// PARTICLE_LOG_LEVEL environment variable (debug, info, warn, error) to
// enable diagnostic output on stderr.
//
// The package wraps a global zap logger behind package-level Info, Debug,
// Warn, and Error functions so callers do not thread a logger through
// every signature. Bearer tokens are never logged at any level.
package logging
