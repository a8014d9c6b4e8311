// Package catalog provides access to the episode catalog API: free-text
// search, per-title episode listings, and stream resolution for a single
// episode handle.
package catalog
