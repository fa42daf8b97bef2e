package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/enums"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is a priced purchase with a frozen shipping snapshot.
type Order struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	User             *User                `gorm:"foreignKey:UserID"`
	OrderNumber      string               `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	Status           enums.OrderStatus    `gorm:"column:status;not null;default:'pending'"`
	PaymentMethod    enums.PaymentMethod  `gorm:"column:payment_method;not null;default:'transfer'"`
	PaymentStatus    enums.PaymentStatus  `gorm:"column:payment_status;not null;default:'pending'"`
	PaymentReference string               `gorm:"column:payment_reference;not null;default:''"`
	ShippingName     string               `gorm:"column:shipping_name;not null"`
	ShippingDocument string               `gorm:"column:shipping_document;not null;default:''"`
	ShippingAddress  string               `gorm:"column:shipping_address;not null"`
	CentralAddress   string               `gorm:"column:central_address;not null;default:''"`
	ShippingCity     string               `gorm:"column:shipping_city;not null"`
	ShippingPhone    string               `gorm:"column:shipping_phone;not null"`
	ShippingEmail    string               `gorm:"column:shipping_email;not null"`
	ShippingType     enums.ShippingType   `gorm:"column:shipping_type;not null;default:''"`
	ShippingAgency   enums.ShippingAgency `gorm:"column:shipping_agency;not null;default:''"`
	OfficePickup     string               `gorm:"column:office_pickup;not null;default:''"`
	Notes            string               `gorm:"column:notes;not null;default:''"`
	Subtotal         decimal.Decimal      `gorm:"column:subtotal;type:numeric(10,2);not null"`
	Shipping         decimal.Decimal      `gorm:"column:shipping;type:numeric(10,2);not null"`
	Tax              decimal.Decimal      `gorm:"column:tax;type:numeric(10,2);not null"`
	Total            decimal.Decimal      `gorm:"column:total;type:numeric(10,2);not null"`
	Items            []OrderItem          `gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
	PaidAt           *time.Time           `gorm:"column:paid_at"`
	ShippedAt        *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt      *time.Time           `gorm:"column:delivered_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem is the immutable purchase snapshot of one product line.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// LineTotal is price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderMessage is one chat entry on an order. Body holds ciphertext when
// message encryption is configured.
type OrderMessage struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	SenderID      uuid.UUID  `gorm:"column:sender_id;type:uuid;not null"`
	Sender        *User      `gorm:"foreignKey:SenderID"`
	Body          string     `gorm:"column:message;not null;default:''"`
	ImageURL      *string    `gorm:"column:image_url"`
	IsFromAdmin   bool       `gorm:"column:is_from_admin;not null;default:false"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	ReadAt        *time.Time `gorm:"column:read_at"`
	ReadByAdminAt *time.Time `gorm:"column:read_by_admin_at"`
}

func (m *OrderMessage) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
