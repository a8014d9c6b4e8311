// Package daemon coordinates the long-running Hikari process.
//
// It wires configuration, the session store, the delivery scheduler, and
// the bot update handler into a single lifecycle with flock-based locking
// to prevent multiple instances. The daemon owns the webhook HTTP server,
// registers the webhook with Telegram at startup, and sweeps expired
// conversation sessions on a timer.
//
// Keep orchestration logic here: the daemon focuses on startup, shutdown,
// and high level coordination while the delivery steps live in their own
// packages.
package daemon
