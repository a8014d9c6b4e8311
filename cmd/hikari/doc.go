// Package main hosts the hikari CLI entrypoint and command graph.
//
// The Cobra-based command tree covers catalog search and episode browsing,
// one-shot episode delivery without the daemon, status queries against the
// daemon's HTTP surface, and configuration scaffolding. Subcommands stay
// thin: resolution, download, and delivery logic lives in the internal
// packages and is wired here per invocation.
package main
