// Package logs tails daemon log files with bounded memory.
//
// A negative offset means "the last Limit lines"; subsequent calls resume
// from the returned offset, which powers follow mode in `hikari show`.
package logs
