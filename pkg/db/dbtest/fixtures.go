package dbtest

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/enums"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// User inserts an active account. The password hash is a placeholder.
func User(t testing.TB, conn *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        strings.ToLower(email),
		PasswordHash: "unused",
		FirstName:    "Test",
		LastName:     "User",
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

// Staff inserts an account with the staff flag set.
func Staff(t testing.TB, conn *gorm.DB, email string) *models.User {
	t.Helper()
	user := User(t, conn, email)
	require.NoError(t, conn.Model(user).Update("is_staff", true).Error)
	user.IsStaff = true
	return user
}

// Category inserts a category whose slug is derived from name.
func Category(t testing.TB, conn *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, Slug: strings.ReplaceAll(strings.ToLower(name), " ", "-")}
	require.NoError(t, conn.Create(category).Error)
	return category
}

// Product inserts a product priced at price. A nil stock means untracked.
func Product(t testing.TB, conn *gorm.DB, name, price string, stock *int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:  name,
		Slug:  strings.ReplaceAll(strings.ToLower(name), " ", "-"),
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

// Order inserts an order for userID in status with one line per product, quantity one each.
func Order(t testing.TB, conn *gorm.DB, userID uuid.UUID, status enums.OrderStatus, products ...*models.Product) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:          userID,
		OrderNumber:     "MUX-TEST-" + strings.ToUpper(uuid.NewString()[:8]),
		Status:          status,
		PaymentMethod:   enums.PaymentMethodTransfer,
		PaymentStatus:   enums.PaymentStatusPending,
		ShippingName:    "Test User",
		ShippingAddress: "Street 1",
		ShippingCity:    "Caracas",
		ShippingPhone:   "0000",
		ShippingEmail:   "test@example.com",
	}
	total := decimal.Zero
	for _, p := range products {
		order.Items = append(order.Items, models.OrderItem{ProductID: p.ID, ProductName: p.Name, Quantity: 1, Price: p.Price})
		total = total.Add(p.Price)
	}
	order.Subtotal, order.Total = total, total
	require.NoError(t, conn.Omit("User").Create(order).Error)
	return order
}

// IntPtr is shorthand for stock values.
func IntPtr(v int) *int { return &v }
