package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/enums"
	"github.com/muxdry/storefront-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

// CheckoutInput is the shipping and payment form submitted at checkout. Blank
// shipping contact fields fall back to the account profile.
type CheckoutInput struct {
	ShippingName     string               `json:"shipping_name" validate:"omitempty,max=200"`
	ShippingDocument string               `json:"shipping_document" validate:"omitempty,max=32"`
	ShippingAddress  string               `json:"shipping_address" validate:"omitempty,max=500"`
	CentralAddress   string               `json:"central_address" validate:"omitempty,max=500"`
	ShippingCity     string               `json:"shipping_city" validate:"omitempty,max=100"`
	ShippingPhone    string               `json:"shipping_phone" validate:"omitempty,max=32"`
	ShippingEmail    string               `json:"shipping_email" validate:"omitempty,email"`
	ShippingType     enums.ShippingType   `json:"shipping_type"`
	ShippingAgency   enums.ShippingAgency `json:"shipping_agency"`
	OfficePickup     string               `json:"office_pickup" validate:"omitempty,max=200"`
	PaymentMethod    enums.PaymentMethod  `json:"payment_method"`
	PaymentReference string               `json:"payment_reference" validate:"omitempty,max=100"`
	Notes            string               `json:"notes" validate:"omitempty,max=2000"`
	Shipping         *decimal.Decimal     `json:"shipping"`
	Tax              *decimal.Decimal     `json:"tax"`
}

// StatusUpdateInput is the staff status form.
type StatusUpdateInput struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
}

// PaymentUpdateInput is the staff payment form.
type PaymentUpdateInput struct {
	PaymentStatus enums.PaymentStatus `json:"payment_status" validate:"required"`
}

// CancelInput carries the optional cancellation reason.
type CancelInput struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// OrderItemDTO is one purchased line.
type OrderItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// OrderDTO is the full order representation.
type OrderDTO struct {
	ID               uuid.UUID            `json:"id"`
	OrderNumber      string               `json:"order_number"`
	UserID           uuid.UUID            `json:"user_id"`
	CustomerEmail    string               `json:"customer_email,omitempty"`
	Status           enums.OrderStatus    `json:"status"`
	StatusLabel      string               `json:"status_label"`
	PaymentMethod    enums.PaymentMethod  `json:"payment_method"`
	PaymentStatus    enums.PaymentStatus  `json:"payment_status"`
	PaymentReference string               `json:"payment_reference,omitempty"`
	ShippingName     string               `json:"shipping_name"`
	ShippingDocument string               `json:"shipping_document,omitempty"`
	ShippingAddress  string               `json:"shipping_address"`
	CentralAddress   string               `json:"central_address,omitempty"`
	ShippingCity     string               `json:"shipping_city"`
	ShippingPhone    string               `json:"shipping_phone"`
	ShippingEmail    string               `json:"shipping_email"`
	ShippingType     enums.ShippingType   `json:"shipping_type,omitempty"`
	ShippingAgency   enums.ShippingAgency `json:"shipping_agency,omitempty"`
	OfficePickup     string               `json:"office_pickup,omitempty"`
	Notes            string               `json:"notes,omitempty"`
	Subtotal         decimal.Decimal      `json:"subtotal"`
	Shipping         decimal.Decimal      `json:"shipping"`
	Tax              decimal.Decimal      `json:"tax"`
	Total            decimal.Decimal      `json:"total"`
	ItemCount        int                  `json:"item_count"`
	Items            []OrderItemDTO       `json:"items"`
	CanCancel        bool                 `json:"can_cancel"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	PaidAt           *time.Time           `json:"paid_at,omitempty"`
	ShippedAt        *time.Time           `json:"shipped_at,omitempty"`
	DeliveredAt      *time.Time           `json:"delivered_at,omitempty"`
}

// OrderPage is a cursor page of orders, newest first.
type OrderPage = pagination.Page[OrderDTO]

// Period limits a listing to a trailing window.
type Period string

const (
	PeriodAll          Period = ""
	PeriodThreeMonths  Period = "3m"
	PeriodYear         Period = "year"
	historyThreeMonths        = "3months"
)

// CurrentFilters drive the customer's in-progress orders page.
type CurrentFilters struct {
	Period Period
	Date   string
	Query  string
}

// HistoryFilters drive the order history page. Status defaults to delivered;
// Date accepts "3months" or a YYYY-MM-DD day.
type HistoryFilters struct {
	Status enums.OrderStatus
	Date   string
}

// AdminFilters drive the staff order table.
type AdminFilters struct {
	Status enums.OrderStatus
	Period Period
	Query  string
}

const (
	customerPageSize = 10
	adminPageSize    = 15
)

func NewOrderDTO(o *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		UserID:           o.UserID,
		Status:           o.Status,
		StatusLabel:      o.Status.Label(),
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    o.PaymentStatus,
		PaymentReference: o.PaymentReference,
		ShippingName:     o.ShippingName,
		ShippingDocument: o.ShippingDocument,
		ShippingAddress:  o.ShippingAddress,
		CentralAddress:   o.CentralAddress,
		ShippingCity:     o.ShippingCity,
		ShippingPhone:    o.ShippingPhone,
		ShippingEmail:    o.ShippingEmail,
		ShippingType:     o.ShippingType,
		ShippingAgency:   o.ShippingAgency,
		OfficePickup:     o.OfficePickup,
		Notes:            o.Notes,
		Subtotal:         o.Subtotal,
		Shipping:         o.Shipping,
		Tax:              o.Tax,
		Total:            o.Total,
		Items:            make([]OrderItemDTO, 0, len(o.Items)),
		CanCancel:        o.Status.CustomerCancellable(),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		PaidAt:           o.PaidAt,
		ShippedAt:        o.ShippedAt,
		DeliveredAt:      o.DeliveredAt,
	}
	if o.User != nil {
		dto.CustomerEmail = o.User.Email
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			LineTotal:   item.LineTotal(),
		})
		dto.ItemCount += item.Quantity
	}
	return dto
}
