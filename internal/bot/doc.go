// Package bot routes incoming Telegram updates to the search commands,
// inline keyboards, and the delivery scheduler. Handlers answer quickly
// and never block on pipeline work.
package bot
