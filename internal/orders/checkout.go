package orders

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/enums"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/outbox"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	checkoutModeCart = "cart"
	checkoutModeItem = "item"

	orderNumberAttempts = 5
)

func (s *service) CheckoutCart(ctx context.Context, actor auth.Actor, input CheckoutInput) (*OrderDTO, error) {
	return s.checkout(ctx, actor, nil, input)
}

func (s *service) CheckoutItem(ctx context.Context, actor auth.Actor, cartItemID uuid.UUID, input CheckoutInput) (*OrderDTO, error) {
	return s.checkout(ctx, actor, &cartItemID, input)
}

func (s *service) checkout(ctx context.Context, actor auth.Actor, cartItemID *uuid.UUID, input CheckoutInput) (*OrderDTO, error) {
	mode := checkoutModeCart
	if cartItemID != nil {
		mode = checkoutModeItem
	}
	order, err := s.placeOrder(ctx, actor, cartItemID, input)
	if err != nil {
		s.metrics.Checkout(mode, resultLabel(err))
		return nil, err
	}
	s.metrics.Checkout(mode, "ok")

	if s.notifier != nil {
		if err := s.notifier.OrderCreated(ctx, order); err != nil {
			s.logError(ctx, order.ID, "notify admin of new order", err)
		}
	}
	return s.reload(ctx, order.ID)
}

func (s *service) placeOrder(ctx context.Context, actor auth.Actor, cartItemID *uuid.UUID, input CheckoutInput) (*models.Order, error) {
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	order, err := buildOrderHeader(user, input)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		repo := s.repo.WithTx(tx)

		lines, err := s.selectLines(ctx, carts, actor.UserID, cartItemID)
		if err != nil {
			return err
		}

		subtotal := decimal.Zero
		itemCount := 0
		for _, line := range lines {
			product, err := repo.LockProduct(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product no longer available")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
			}
			ok, err := repo.DecrementStock(ctx, product.ID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !ok {
				return pkgerrors.Newf(pkgerrors.CodeStateConflict, "insufficient stock for %s", product.Name).
					WithDetails(map[string]any{"product_id": product.ID, "requested": line.Quantity})
			}
			item := models.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				Price:       product.Price,
			}
			subtotal = subtotal.Add(item.LineTotal())
			itemCount += item.Quantity
			order.Items = append(order.Items, item)
		}

		order.Subtotal = subtotal
		order.Total = subtotal.Add(order.Shipping).Add(order.Tax)

		number, err := s.uniqueOrderNumber(ctx, repo)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if cartItemID != nil {
			err = carts.DeleteItem(ctx, *cartItemID)
		} else {
			err = carts.DeleteItems(ctx, lines[0].CartID)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: outbox.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				Total:       order.Total.StringFixed(2),
				ItemCount:   itemCount,
				Method:      order.PaymentMethod,
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout failed")
	}
	order.User = user
	return order, nil
}

// selectLines returns the cart lines being converted, sorted by product so row locks are taken in a stable order.
func (s *service) selectLines(ctx context.Context, carts cartLines, userID uuid.UUID, cartItemID *uuid.UUID) ([]models.CartItem, error) {
	cart, err := carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if cartItemID != nil {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	var lines []models.CartItem
	if cartItemID != nil {
		item, err := carts.FindItem(ctx, cart.ID, *cartItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart item not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}
		lines = []models.CartItem{*item}
	} else {
		lines = append(lines, cart.Items...)
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].ProductID.String() < lines[j].ProductID.String()
	})
	return lines, nil
}

type cartLines interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
}

func (s *service) uniqueOrderNumber(ctx context.Context, repo Repository) (string, error) {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number, err := NewOrderNumber(s.now())
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		taken, err := repo.OrderNumberExists(ctx, number)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order number")
		}
		if !taken {
			return number, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInternal, "could not allocate order number")
}

// buildOrderHeader validates the form and fills blank contact fields from the profile.
func buildOrderHeader(user *models.User, input CheckoutInput) (*models.Order, error) {
	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodTransfer
	}
	if !method.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", method)
	}
	if input.ShippingType != "" && !input.ShippingType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid shipping type %q", input.ShippingType)
	}
	if !input.ShippingAgency.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid shipping agency %q", input.ShippingAgency)
	}
	shipping, err := nonNegative("shipping", input.Shipping)
	if err != nil {
		return nil, err
	}
	tax, err := nonNegative("tax", input.Tax)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:           user.ID,
		Status:           enums.OrderStatusPending,
		PaymentMethod:    method,
		PaymentStatus:    enums.PaymentStatusPending,
		PaymentReference: strings.TrimSpace(input.PaymentReference),
		ShippingName:     fallback(input.ShippingName, user.FullName()),
		ShippingDocument: fallback(input.ShippingDocument, deref(user.Document)),
		ShippingAddress:  fallback(input.ShippingAddress, deref(user.Address)),
		CentralAddress:   strings.TrimSpace(input.CentralAddress),
		ShippingCity:     fallback(input.ShippingCity, deref(user.City)),
		ShippingPhone:    fallback(input.ShippingPhone, deref(user.Phone)),
		ShippingEmail:    fallback(input.ShippingEmail, user.Email),
		ShippingType:     input.ShippingType,
		ShippingAgency:   input.ShippingAgency,
		OfficePickup:     strings.TrimSpace(input.OfficePickup),
		Notes:            strings.TrimSpace(input.Notes),
		Shipping:         shipping,
		Tax:              tax,
	}

	missing := map[string]string{}
	for field, value := range map[string]string{
		"shipping_name":    order.ShippingName,
		"shipping_address": order.ShippingAddress,
		"shipping_city":    order.ShippingCity,
		"shipping_phone":   order.ShippingPhone,
		"shipping_email":   order.ShippingEmail,
	} {
		if value == "" {
			missing[field] = "required"
		}
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping details incomplete").WithDetails(missing)
	}
	return order, nil
}

func nonNegative(field string, value *decimal.Decimal) (decimal.Decimal, error) {
	if value == nil {
		return decimal.Zero, nil
	}
	if value.IsNegative() {
		return decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must not be negative", field)
	}
	return value.Round(2), nil
}

func fallback(value, profile string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return strings.TrimSpace(profile)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func resultLabel(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}
