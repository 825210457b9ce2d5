package orders

const (
	TopicOrderReconciled = "order.reconciled"
	TopicStockDepleted   = "stock.depleted"
)

// Partition key = order_id so all events for one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
