// Package services defines shared utilities consumed by the delivery pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp conversation ids, episode labels, phase
//     names, and correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the delivery taxonomy (terminal vs link-fallback vs swallowed).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across phases.
package services
