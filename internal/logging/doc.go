// Package logging provides the leveled printf-style logging interface used
// across media-catalog.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// Messages are written through a zap sugared logger. The level comes from
// the LOG_LEVEL environment variable (DEBUG=true forces debug) and the
// encoding from LOG_FORMAT ("console", the default, or "json").
package logging
