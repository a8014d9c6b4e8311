// Package notifications owns every user-facing chat message the delivery
// flow produces, from the queued acknowledgement through terminal video
// and subtitle lines. Failures here never fail a delivery.
package notifications
