// Package progress carries transfer progress from the download and upload
// phases to the chat UI.
//
// Samples flow through three small pieces: a Tracker turns raw byte counts
// into Samples, Throttle rate-limits them, and a Notifier moves the survivors
// over a bounded channel to a single consumer that edits the status message.
// Format is a pure function so rendering stays testable in isolation.
package progress
