// Package logging builds the slog loggers used across Hikari.
//
// It provides a human-readable pretty handler for interactive use, a JSON
// handler for machine consumption, attribute helpers shared by every
// component, and context plumbing that stamps conversation, episode, phase,
// and request identifiers onto log lines without manual threading.
package logging
