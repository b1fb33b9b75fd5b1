package orders

import "strconv"

const (
	TopicOrderCreated = "order.created"
	TopicStockLow     = "product.stock.low"
)

// Partition key = entity id, so events for one order/product keep their order.
func PartitionKey(id int64) []byte { return []byte(strconv.FormatInt(id, 10)) }
