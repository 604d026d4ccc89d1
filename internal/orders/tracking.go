package orders

import (
	"crypto/rand"
	"time"
)

const trackingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewTrackingID returns a human-facing code like SG-7K2P9QXZ. Collisions
// are negligible at this volume; the unique index on tracking_id is the
// real guarantee.
func NewTrackingID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	out := make([]byte, 0, 11)
	out = append(out, 'S', 'G', '-')
	for _, c := range b {
		out = append(out, trackingAlphabet[int(c)%len(trackingAlphabet)])
	}
	return string(out)
}

// ExpectedDelivery derives the promised delivery time once, at creation.
// Express is next-day, standard is two days out.
func ExpectedDelivery(speed DeliverySpeed, from time.Time) time.Time {
	if speed == DeliveryExpress {
		return from.Add(24 * time.Hour)
	}
	return from.Add(48 * time.Hour)
}
