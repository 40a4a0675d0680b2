// Package logx configures tgnotify's structured logging.
//
// It is a small wrapper (logx.Logger) on top of zerolog that keeps:
//   - Console output readable (short timestamp + short caller) on stderr,
//     so stdout stays free for command output
//   - File output JSON-structured
package logx
