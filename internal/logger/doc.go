// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder writing to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - key-value helpers (DebugKV, InfoKV, ErrorKV).
//
// Stdout is reserved for the payload printed by the CLI, so nothing here
// ever writes to it.
package logger
