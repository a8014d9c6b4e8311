// Package session persists per-conversation browse state: the latest
// search results, the episode list for the selected title, and the
// selection itself. Reads return decoded copies, so a snapshot taken
// before enqueueing work stays valid however the conversation moves on.
package session
