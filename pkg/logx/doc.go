// Package logx configures sysnotifd's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Optional systemd journal sink (min-level + rate limiting)
package logx
