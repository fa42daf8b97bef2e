package orders

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/internal/cart"
	"github.com/muxdry/storefront-backend/internal/users"
	"github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/db"
	"github.com/muxdry/storefront-backend/pkg/db/dbtest"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/enums"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/outbox"
	"github.com/muxdry/storefront-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubNotifier struct {
	created   []string
	cancelled []string
	fail      bool
}

func (n *stubNotifier) OrderCreated(_ context.Context, order *models.Order) error {
	n.created = append(n.created, order.OrderNumber)
	if n.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (n *stubNotifier) OrderCancelled(_ context.Context, order *models.Order, reason string) error {
	n.cancelled = append(n.cancelled, order.OrderNumber+":"+reason)
	return nil
}

type fixture struct {
	client   *db.Client
	conn     *gorm.DB
	svc      Service
	carts    *cart.Repository
	notifier *stubNotifier
	shopper  auth.Actor
	staff    auth.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	notifier := &stubNotifier{}
	carts := cart.NewRepository(conn)

	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Carts:    carts,
		Users:    users.NewRepository(conn),
		Tx:       client,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
		Notifier: notifier,
	})
	require.NoError(t, err)

	shopper := dbtest.User(t, conn, "shopper@example.com")
	staff := dbtest.Staff(t, conn, "staff@example.com")
	return &fixture{
		client:   client,
		conn:     conn,
		svc:      svc,
		carts:    carts,
		notifier: notifier,
		shopper:  auth.Actor{UserID: shopper.ID, Role: enums.UserRoleCustomer},
		staff:    auth.Actor{UserID: staff.ID, Role: enums.UserRoleStaff},
	}
}

func (f *fixture) addToCart(t *testing.T, product *models.Product, qty int) *models.CartItem {
	t.Helper()
	c, err := f.carts.GetOrCreate(context.Background(), f.shopper.UserID)
	require.NoError(t, err)
	item := &models.CartItem{CartID: c.ID, ProductID: product.ID, Quantity: qty}
	require.NoError(t, f.carts.CreateItem(context.Background(), item))
	return item
}

func (f *fixture) cartLines(t *testing.T) []models.CartItem {
	t.Helper()
	c, err := f.carts.FindByUser(context.Background(), f.shopper.UserID)
	require.NoError(t, err)
	return c.Items
}

func (f *fixture) stockOf(t *testing.T, id uuid.UUID) *int {
	t.Helper()
	var p models.Product
	require.NoError(t, f.conn.First(&p, "id = ?", id).Error)
	return p.Stock
}

func (f *fixture) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(model).Count(&count).Error)
	return count
}

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func checkoutForm() CheckoutInput {
	return CheckoutInput{
		ShippingName:    "Ana Perez",
		ShippingAddress: "Av. Principal 1",
		ShippingCity:    "Caracas",
		ShippingPhone:   "0414-0000000",
		ShippingEmail:   "ana@example.com",
		PaymentMethod:   enums.PaymentMethodPagoMovil,
	}
}

func TestCheckoutCartFreezesTotalsAndClearsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keyboard := dbtest.Product(t, f.conn, "Keyboard", "45.50", dbtest.IntPtr(5))
	cable := dbtest.Product(t, f.conn, "Cable", "3.25", nil)
	f.addToCart(t, keyboard, 2)
	f.addToCart(t, cable, 3)

	form := checkoutForm()
	form.Shipping = dec("5.00")
	form.Tax = dec("1.75")
	order, err := f.svc.CheckoutCart(ctx, f.shopper, form)
	require.NoError(t, err)

	require.Regexp(t, `^MUX-\d{8}-[0-9A-F]{6}$`, order.OrderNumber)
	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	require.Len(t, order.Items, 2)
	require.Equal(t, 5, order.ItemCount)
	require.True(t, order.Subtotal.Equal(decimal.RequireFromString("100.75")), order.Subtotal.String())
	require.True(t, order.Total.Equal(order.Subtotal.Add(order.Shipping).Add(order.Tax)), order.Total.String())
	require.True(t, order.Total.Equal(decimal.RequireFromString("107.50")), order.Total.String())

	require.Equal(t, 3, *f.stockOf(t, keyboard.ID))
	require.Nil(t, f.stockOf(t, cable.ID), "untracked stock stays untracked")
	require.Empty(t, f.cartLines(t))
	require.Equal(t, []string{order.OrderNumber}, f.notifier.created)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventOrderCreated, events[0].EventType)
}

func TestCheckoutPricesComeFromLiveProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lamp := dbtest.Product(t, f.conn, "Lamp", "20.00", nil)
	f.addToCart(t, lamp, 1)
	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", lamp.ID).Update("price", decimal.RequireFromString("18.00")).Error)

	order, err := f.svc.CheckoutCart(ctx, f.shopper, checkoutForm())
	require.NoError(t, err)
	require.True(t, order.Items[0].Price.Equal(decimal.RequireFromString("18.00")))
	require.Equal(t, "Lamp", order.Items[0].ProductName)
}

func TestCheckoutEmptyCartCreatesNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CheckoutCart(context.Background(), f.shopper, checkoutForm())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), err)

	_, err = f.carts.GetOrCreate(context.Background(), f.shopper.UserID)
	require.NoError(t, err)
	_, err = f.svc.CheckoutCart(context.Background(), f.shopper, checkoutForm())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), err)

	require.Zero(t, f.countRows(t, &models.Order{}))
	require.Zero(t, f.countRows(t, &models.OutboxEvent{}))
	require.Empty(t, f.notifier.created)
}

func TestCheckoutInsufficientStockChangesNothing(t *testing.T) {
	f := newFixture(t)
	plenty := dbtest.Product(t, f.conn, "Plenty", "1.00", dbtest.IntPtr(10))
	scarce := dbtest.Product(t, f.conn, "Scarce", "1.00", dbtest.IntPtr(1))
	f.addToCart(t, plenty, 4)
	f.addToCart(t, scarce, 2)

	_, err := f.svc.CheckoutCart(context.Background(), f.shopper, checkoutForm())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), err)

	require.Equal(t, 10, *f.stockOf(t, plenty.ID))
	require.Equal(t, 1, *f.stockOf(t, scarce.ID))
	require.Len(t, f.cartLines(t), 2)
	require.Zero(t, f.countRows(t, &models.Order{}))
	require.Zero(t, f.countRows(t, &models.OrderItem{}))
}

func TestCheckoutItemLeavesOtherLines(t *testing.T) {
	f := newFixture(t)
	a := dbtest.Product(t, f.conn, "Alpha", "4.00", nil)
	b := dbtest.Product(t, f.conn, "Beta", "6.00", nil)
	lineA := f.addToCart(t, a, 1)
	f.addToCart(t, b, 2)

	order, err := f.svc.CheckoutItem(context.Background(), f.shopper, lineA.ID, checkoutForm())
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	require.Equal(t, a.ID, order.Items[0].ProductID)

	left := f.cartLines(t)
	require.Len(t, left, 1)
	require.Equal(t, b.ID, left[0].ProductID)

	_, err = f.svc.CheckoutItem(context.Background(), f.shopper, uuid.New(), checkoutForm())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), err)
}

func TestCheckoutFallsBackToProfileAndValidates(t *testing.T) {
	f := newFixture(t)
	p := dbtest.Product(t, f.conn, "Gadget", "9.00", nil)
	f.addToCart(t, p, 1)

	_, err := f.svc.CheckoutCart(context.Background(), f.shopper, CheckoutInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), err)

	require.NoError(t, f.conn.Model(&models.User{}).Where("id = ?", f.shopper.UserID).Updates(map[string]any{
		"address": "Calle 2", "city": "Valencia", "phone": "0412-1111111",
	}).Error)
	order, err := f.svc.CheckoutCart(context.Background(), f.shopper, CheckoutInput{})
	require.NoError(t, err)
	require.Equal(t, "Valencia", order.ShippingCity)
	require.Equal(t, "shopper@example.com", order.ShippingEmail)
	require.Equal(t, enums.PaymentMethodTransfer, order.PaymentMethod)

	bad := checkoutForm()
	bad.Tax = dec("-1")
	_, err = f.svc.CheckoutCart(context.Background(), f.shopper, bad)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), err)
}

func TestCheckoutNotifierFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail = true
	p := dbtest.Product(t, f.conn, "Widget", "2.00", nil)
	f.addToCart(t, p, 1)

	order, err := f.svc.CheckoutCart(context.Background(), f.shopper, checkoutForm())
	require.NoError(t, err)
	require.NotEmpty(t, order.OrderNumber)
	require.EqualValues(t, 1, f.countRows(t, &models.Order{}))
}

func placeOrder(t *testing.T, f *fixture, product *models.Product, qty int) *OrderDTO {
	t.Helper()
	f.addToCart(t, product, qty)
	order, err := f.svc.CheckoutCart(context.Background(), f.shopper, checkoutForm())
	require.NoError(t, err)
	return order
}

func TestOwnerCancellation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := dbtest.Product(t, f.conn, "Chair", "30.00", dbtest.IntPtr(3))
	order := placeOrder(t, f, p, 1)

	stranger := dbtest.User(t, f.conn, "stranger@example.com")
	_, err := f.svc.Cancel(ctx, auth.Actor{UserID: stranger.ID, Role: enums.UserRoleCustomer}, order.ID, CancelInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), err)

	got, err := f.svc.Cancel(ctx, f.shopper, order.ID, CancelInput{})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, got.Status)
	require.True(t, strings.HasSuffix(got.Notes, "[Cancelled by user] user no longer interested"), got.Notes)
	require.False(t, got.CanCancel)
	require.Equal(t, []string{order.OrderNumber + ":user no longer interested"}, f.notifier.cancelled)
	require.Equal(t, 2, *f.stockOf(t, p.ID), "cancellation does not restock")

	_, err = f.svc.Cancel(ctx, f.shopper, order.ID, CancelInput{Reason: "again"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), err)
	require.Len(t, f.notifier.cancelled, 1, "a refused cancel sends no email")

	_, err = f.svc.UpdateStatus(ctx, f.staff, order.ID, StatusUpdateInput{Status: enums.OrderStatusConfirmed})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), err)
}

func TestOwnerCannotCancelOnceProcessing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := dbtest.Product(t, f.conn, "Desk", "80.00", nil)
	order := placeOrder(t, f, p, 1)

	_, err := f.svc.UpdateStatus(ctx, f.staff, order.ID, StatusUpdateInput{Status: enums.OrderStatusProcessing})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.shopper, order.ID, CancelInput{Reason: "changed my mind"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), err)

	_, err = f.svc.UpdateStatus(ctx, f.shopper, order.ID, StatusUpdateInput{Status: enums.OrderStatusShipped})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), err)

	got, err := f.svc.UpdateStatus(ctx, f.staff, order.ID, StatusUpdateInput{Status: enums.OrderStatusCancelled})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, got.Status)
}

func TestDeliveryStampsAndCountsSalesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := dbtest.Product(t, f.conn, "Monitor", "150.00", nil)
	order := placeOrder(t, f, p, 2)

	got, err := f.svc.UpdateStatus(ctx, f.staff, order.ID, StatusUpdateInput{Status: enums.OrderStatusDelivered})
	require.NoError(t, err)
	require.NotNil(t, got.ShippedAt, "skipping shipped still stamps it")
	require.NotNil(t, got.DeliveredAt)
	delivered := *got.DeliveredAt

	again, err := f.svc.UpdateStatus(ctx, f.staff, order.ID, StatusUpdateInput{Status: enums.OrderStatusDelivered})
	require.NoError(t, err)
	require.WithinDuration(t, delivered, *again.DeliveredAt, time.Millisecond)

	var product models.Product
	require.NoError(t, f.conn.First(&product, "id = ?", p.ID).Error)
	require.Equal(t, 2, product.SalesCount)

	var changes int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventOrderStatusChanged).Count(&changes).Error)
	require.EqualValues(t, 1, changes)
}

func TestUpdatePaymentStampsPaidAtOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := dbtest.Product(t, f.conn, "Speaker", "25.00", nil)
	order := placeOrder(t, f, p, 1)

	_, err := f.svc.UpdatePayment(ctx, f.shopper, order.ID, PaymentUpdateInput{PaymentStatus: enums.PaymentStatusPaid})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), err)

	paid, err := f.svc.UpdatePayment(ctx, f.staff, order.ID, PaymentUpdateInput{PaymentStatus: enums.PaymentStatusPaid})
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)

	_, err = f.svc.UpdatePayment(ctx, f.staff, order.ID, PaymentUpdateInput{PaymentStatus: enums.PaymentStatusRefunded})
	require.NoError(t, err)
	again, err := f.svc.UpdatePayment(ctx, f.staff, order.ID, PaymentUpdateInput{PaymentStatus: enums.PaymentStatusPaid})
	require.NoError(t, err)
	require.WithinDuration(t, *paid.PaidAt, *again.PaidAt, time.Millisecond)
}

func TestOrderQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := dbtest.Product(t, f.conn, "Mug", "7.00", nil)

	first := placeOrder(t, f, p, 1)
	second := placeOrder(t, f, p, 1)
	third := placeOrder(t, f, p, 1)
	_, err := f.svc.UpdateStatus(ctx, f.staff, third.ID, StatusUpdateInput{Status: enums.OrderStatusDelivered})
	require.NoError(t, err)

	count, err := f.svc.CountInProgress(ctx, f.shopper.UserID)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	current, err := f.svc.ListCurrent(ctx, f.shopper, CurrentFilters{}, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, current.Items, 1)
	require.NotEmpty(t, current.NextCursor)
	next, err := f.svc.ListCurrent(ctx, f.shopper, CurrentFilters{}, pagination.Params{Limit: 1, Cursor: current.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	require.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, []uuid.UUID{current.Items[0].ID, next.Items[0].ID})
	require.Empty(t, next.NextCursor)

	search, err := f.svc.ListCurrent(ctx, f.shopper, CurrentFilters{Query: strings.ToLower(second.OrderNumber)}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, search.Items, 1)
	require.Equal(t, second.ID, search.Items[0].ID)

	today := time.Now().UTC().Format(dayLayout)
	history, err := f.svc.ListHistory(ctx, f.shopper, HistoryFilters{Date: today}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, history.Items, 1)
	require.Equal(t, third.ID, history.Items[0].ID)

	recent, err := f.svc.ListHistory(ctx, f.shopper, HistoryFilters{Date: "3months"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, recent.Items, 1)

	_, err = f.svc.ListHistory(ctx, f.shopper, HistoryFilters{Date: "yesterday"}, pagination.Params{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), err)

	_, err = f.svc.ListAdmin(ctx, f.shopper, AdminFilters{}, pagination.Params{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), err)

	byEmail, err := f.svc.ListAdmin(ctx, f.staff, AdminFilters{Query: "SHOPPER@", Period: PeriodYear}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, byEmail.Items, 3)
	require.Equal(t, "shopper@example.com", byEmail.Items[0].CustomerEmail)

	delivered, err := f.svc.ListAdmin(ctx, f.staff, AdminFilters{Status: enums.OrderStatusDelivered}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, delivered.Items, 1)

	stranger := dbtest.User(t, f.conn, "other@example.com")
	_, err = f.svc.Get(ctx, auth.Actor{UserID: stranger.ID, Role: enums.UserRoleCustomer}, first.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), err)
	got, err := f.svc.Get(ctx, f.staff, first.ID)
	require.NoError(t, err)
	require.Equal(t, first.OrderNumber, got.OrderNumber)
}
