package redisx

import "time"

const (
	// Idempotency create order: idem:order:create:{key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s"
	idemPending        = "pending"

	// Cached order view: order:view:{order_id} -> OrderView JSON
	KeyOrderView = "order:view:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	// pending reservation, expires if the holder dies mid-create
	TTLIdempotencyPending = time.Minute
	TTLOrderView          = 10 * time.Minute
	TTLDedup              = 48 * time.Hour
)
