// Package pipeline drives one episode from stream resolution through
// download, size-based routing, upload, and subtitle delivery. Every run
// ends in exactly one terminal outcome, every notification failure is
// absorbed, and no artifact outlives its run.
package pipeline
