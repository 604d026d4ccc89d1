package orders

type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusQA         Status = "qa"
	StatusDelivered  Status = "delivered"
	StatusFailed     Status = "failed"
)

// This service only ever performs pending -> paid. The later stages are
// driven by fulfillment tooling writing to the same table.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusPaid: true, StatusFailed: true},
	StatusPaid:       {StatusProcessing: true, StatusFailed: true},
	StatusProcessing: {StatusQA: true, StatusFailed: true},
	StatusQA:         {StatusDelivered: true, StatusFailed: true},
	StatusDelivered:  {},
	StatusFailed:     {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

type DeliverySpeed string

const (
	DeliveryStandard DeliverySpeed = "standard"
	DeliveryExpress  DeliverySpeed = "express"
)

// ParseDeliverySpeed normalizes client values. "rush" is the storefront's
// name for express delivery.
func ParseDeliverySpeed(s string) (DeliverySpeed, bool) {
	switch s {
	case "standard":
		return DeliveryStandard, true
	case "express", "rush":
		return DeliveryExpress, true
	}
	return "", false
}
