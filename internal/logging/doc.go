// Package logging configures slog output for the daemon and CLI, providing a
// console handler for interactive use and JSON for log shipping, plus typed
// attribute helpers and context-derived job/stage fields.
package logging
