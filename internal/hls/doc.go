// Package hls downloads segmented HLS streams into a single local file.
// Master playlists are narrowed to their highest-bandwidth variant, segments
// are fetched strictly in manifest order with bounded retries, and AES-128
// encrypted segments are decrypted as they land. Partial files never survive
// a failed download.
package hls
