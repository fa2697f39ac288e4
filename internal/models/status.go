package models

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusFulfilled  OrderStatus = "fulfilled"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusPaid, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusPaid, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusPaid:       {OrderStatusFulfilled, OrderStatusRefunded, OrderStatusCancelled},
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusPaid, OrderStatusFulfilled,
		OrderStatusFailed, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}

	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s.IsValid() && len(orderTransitions[s]) == 0
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// SourcesFor lists every status that may move to target.
func SourcesFor(target OrderStatus) []OrderStatus {
	var sources []OrderStatus

	for _, from := range []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusPaid} {
		if from.CanTransitionTo(target) {
			sources = append(sources, from)
		}
	}

	return sources
}
