// Package notifications emails the shop admin about customer activity.
package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/mailer"
)

// ContactMessage is a submission of the public contact form.
type ContactMessage struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// AdminNotifier composes admin emails and hands them to a mailer.Sender.
type AdminNotifier struct {
	sender     mailer.Sender
	adminEmail string
	shopName   string
}

func NewAdminNotifier(sender mailer.Sender, adminEmail, shopName string) (*AdminNotifier, error) {
	if sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if strings.TrimSpace(adminEmail) == "" {
		return nil, fmt.Errorf("admin email required")
	}
	if shopName == "" {
		shopName = "Shop"
	}
	return &AdminNotifier{sender: sender, adminEmail: adminEmail, shopName: shopName}, nil
}

// OrderCreated announces a new order. Single line orders name the product.
func (n *AdminNotifier) OrderCreated(ctx context.Context, order *models.Order) error {
	itemCount := 0
	for _, item := range order.Items {
		itemCount += item.Quantity
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Order number: %s\n", order.OrderNumber)
	fmt.Fprintf(&b, "Customer: %s\n", customerEmail(order))
	if len(order.Items) == 1 {
		item := order.Items[0]
		fmt.Fprintf(&b, "Product: %s x %d\n", item.ProductName, item.Quantity)
	} else {
		fmt.Fprintf(&b, "Items: %d\n", itemCount)
		for _, item := range order.Items {
			fmt.Fprintf(&b, "  - %s x %d\n", item.ProductName, item.Quantity)
		}
	}
	fmt.Fprintf(&b, "Payment method: %s\n", order.PaymentMethod.Label())
	fmt.Fprintf(&b, "Total: $%s\n", order.Total.StringFixed(2))

	return n.sender.Send(ctx, mailer.Email{
		ToEmail: n.adminEmail,
		ReplyTo: order.ShippingEmail,
		Subject: fmt.Sprintf("[%s] New order %s", n.shopName, order.OrderNumber),
		Text:    b.String(),
	})
}

func (n *AdminNotifier) OrderCancelled(ctx context.Context, order *models.Order, reason string) error {
	text := fmt.Sprintf("Order number: %s\nCustomer: %s\nReason: %s\n", order.OrderNumber, customerEmail(order), reason)
	return n.sender.Send(ctx, mailer.Email{
		ToEmail: n.adminEmail,
		Subject: fmt.Sprintf("[%s] Order %s cancelled by customer", n.shopName, order.OrderNumber),
		Text:    text,
	})
}

// ContactReceived relays a contact form submission; replies go to the sender.
func (n *AdminNotifier) ContactReceived(ctx context.Context, msg ContactMessage) error {
	text := fmt.Sprintf("From: %s <%s>\n\n%s\n", msg.Name, msg.Email, msg.Message)
	return n.sender.Send(ctx, mailer.Email{
		ToEmail: n.adminEmail,
		ReplyTo: msg.Email,
		Subject: fmt.Sprintf("[%s] Contact: %s", n.shopName, msg.Subject),
		Text:    text,
	})
}

func customerEmail(order *models.Order) string {
	if order.User != nil && order.User.Email != "" {
		return order.User.Email
	}
	return order.ShippingEmail
}
