// Package telegram is a typed client for the Telegram Bot API. It covers
// the small method surface the delivery flow needs: messages, edits,
// callback acknowledgements, webhook registration, and streamed document
// uploads. Pointing a client at a self-hosted Bot API server lifts the
// hosted 50 MiB upload cap.
package telegram
