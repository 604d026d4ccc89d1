package orders

const (
	TopicOrderCreated = "order.created"
	TopicOrderPaid    = "order.paid"
)

// Partition key = order_id so every event for one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
