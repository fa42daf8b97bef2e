package outbox

import (
	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/enums"
)

// OrderCreatedEvent is recorded when checkout commits a new order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	UserID      uuid.UUID           `json:"user_id"`
	Total       string              `json:"total"`
	ItemCount   int                 `json:"item_count"`
	Method      enums.PaymentMethod `json:"payment_method"`
}

// OrderStatusChangedEvent is recorded for every applied status transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
}

// OrderCancelledEvent carries the cancellation reason.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	Reason      string            `json:"reason"`
	ByStaff     bool              `json:"by_staff"`
}

// OrderPaymentUpdatedEvent is recorded when staff changes the payment status.
type OrderPaymentUpdatedEvent struct {
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	From        enums.PaymentStatus `json:"from"`
	To          enums.PaymentStatus `json:"to"`
}
