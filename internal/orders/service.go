package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/internal/cart"
	"github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/metrics"
	"github.com/muxdry/storefront-backend/pkg/outbox"
	"github.com/muxdry/storefront-backend/pkg/pagination"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier receives committed order events that staff should hear about.
type Notifier interface {
	OrderCreated(ctx context.Context, order *models.Order) error
	OrderCancelled(ctx context.Context, order *models.Order, reason string) error
}

// Service is the order lifecycle: checkout, status changes and listings.
type Service interface {
	CheckoutCart(ctx context.Context, actor auth.Actor, input CheckoutInput) (*OrderDTO, error)
	CheckoutItem(ctx context.Context, actor auth.Actor, cartItemID uuid.UUID, input CheckoutInput) (*OrderDTO, error)

	UpdateStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input StatusUpdateInput) (*OrderDTO, error)
	UpdatePayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input PaymentUpdateInput) (*OrderDTO, error)
	Cancel(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input CancelInput) (*OrderDTO, error)

	Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDTO, error)
	ListCurrent(ctx context.Context, actor auth.Actor, filters CurrentFilters, params pagination.Params) (*OrderPage, error)
	ListHistory(ctx context.Context, actor auth.Actor, filters HistoryFilters, params pagination.Params) (*OrderPage, error)
	ListAdmin(ctx context.Context, actor auth.Actor, filters AdminFilters, params pagination.Params) (*OrderPage, error)
	CountInProgress(ctx context.Context, userID uuid.UUID) (int64, error)
}

// ServiceParams bundles the order dependencies.
type ServiceParams struct {
	Repo     Repository
	Carts    cart.CartRepository
	Users    userLoader
	Tx       txRunner
	Outbox   outbox.Emitter
	Notifier Notifier
	Metrics  *metrics.OrderMetrics
	Logger   *logger.Logger
	Clock    func() time.Time
}

type service struct {
	repo     Repository
	carts    cart.CartRepository
	users    userLoader
	tx       txRunner
	outbox   outbox.Emitter
	notifier Notifier
	metrics  *metrics.OrderMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds an order service. Notifier, Metrics and Logger are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:     params.Repo,
		carts:    params.Carts,
		users:    params.Users,
		tx:       params.Tx,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      func() time.Time { return clock().UTC() },
	}, nil
}

// loadOwned returns the order when the actor owns it or is staff. Other callers get NOT_FOUND.
func (s *service) loadOwned(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if order.UserID != actor.UserID && !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) reload(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "reload order")
	}
	dto := NewOrderDTO(order)
	return &dto, nil
}

func (s *service) logError(ctx context.Context, orderID uuid.UUID, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(s.logg.WithOrderID(ctx, orderID.String()), msg, err)
}

func actorRef(actor auth.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
