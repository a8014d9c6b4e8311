// Package transport routes finished artifacts to a delivery lane by size
// and defines the sender contract both lanes implement.
package transport
