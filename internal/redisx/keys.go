package redisx

import "time"

const (
	// Handoff entry: handoff:{session_token} -> intake payload JSON
	KeyHandoff = "handoff:%s"

	// Order snapshot cache: order_status:{tracking_id} -> snapshot JSON.
	// Written only once status has left pending, so polling never
	// observes a stale pending entry.
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Rate limit counter: ratelimit:{scope}:{ip}
	KeyRateLimit = "ratelimit:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
