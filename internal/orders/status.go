package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/enums"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/outbox"
	"gorm.io/gorm"
)

const (
	defaultCancelReason = "user no longer interested"
	cancelNotePrefix    = "[Cancelled by user] "
)

func (s *service) UpdateStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input StatusUpdateInput) (*OrderDTO, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff access required")
	}
	var applied *appliedTransition
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		applied, err = s.transition(ctx, tx, actor, order, input.Status, "")
		return err
	})
	if err != nil {
		return nil, notFoundOr(err, "update order status")
	}
	if applied != nil {
		s.metrics.Transition(string(applied.from), string(input.Status))
	}
	return s.reload(ctx, orderID)
}

// Cancel lets the owner withdraw an order that has not started processing.
func (s *service) Cancel(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input CancelInput) (*OrderDTO, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = defaultCancelReason
	}

	var applied *appliedTransition
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		owner := actor
		owner.Role = enums.UserRoleCustomer
		applied, err = s.transition(ctx, tx, owner, order, enums.OrderStatusCancelled, reason)
		return err
	})
	if err != nil {
		return nil, notFoundOr(err, "cancel order")
	}
	if applied == nil {
		return s.reload(ctx, orderID)
	}
	s.metrics.Transition(string(applied.from), string(enums.OrderStatusCancelled))

	if s.notifier != nil {
		order, err := s.repo.FindByID(ctx, orderID)
		if err == nil {
			err = s.notifier.OrderCancelled(ctx, order, reason)
		}
		if err != nil {
			s.logError(ctx, orderID, "notify admin of cancellation", err)
		}
	}
	return s.reload(ctx, orderID)
}

type appliedTransition struct {
	from enums.OrderStatus
}

// transition applies one status change to a locked order inside tx. It returns nil when the order
// already had the status. A non-empty cancelReason is appended to the notes.
func (s *service) transition(ctx context.Context, tx *gorm.DB, actor auth.Actor, order *models.Order, to enums.OrderStatus, cancelReason string) (*appliedTransition, error) {
	repo := s.repo.WithTx(tx)
	orderID := order.ID

	res, err := Transition(TransitionRequest{
		From:        order.Status,
		To:          to,
		ByStaff:     actor.IsStaff(),
		ShippedAt:   order.ShippedAt,
		DeliveredAt: order.DeliveredAt,
		Now:         s.now(),
	})
	if err != nil {
		return nil, err
	}
	if res.Noop {
		return nil, nil
	}

	cols := res.Columns(to)
	if cancelReason != "" {
		cols["notes"] = appendCancelNote(order.Notes, cancelReason)
	}
	if err := repo.UpdateOrder(ctx, orderID, cols); err != nil {
		return nil, err
	}
	if res.IncrementSales {
		if err := incrementSales(ctx, repo, order.Items); err != nil {
			return nil, err
		}
	}

	ref := actorRef(actor)
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         ref,
		Data: outbox.OrderStatusChangedEvent{
			OrderID:     orderID,
			OrderNumber: order.OrderNumber,
			From:        order.Status,
			To:          to,
		},
	}); err != nil {
		return nil, err
	}
	if to == enums.OrderStatusCancelled {
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         ref,
			Data: outbox.OrderCancelledEvent{
				OrderID:     orderID,
				OrderNumber: order.OrderNumber,
				From:        order.Status,
				Reason:      cancelReason,
				ByStaff:     actor.IsStaff(),
			},
		}); err != nil {
			return nil, err
		}
	}
	return &appliedTransition{from: order.Status}, nil
}

func incrementSales(ctx context.Context, repo Repository, items []models.OrderItem) error {
	for _, item := range items {
		if err := repo.IncrementSales(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func appendCancelNote(notes, reason string) string {
	if notes == "" {
		return cancelNotePrefix + reason
	}
	return notes + "\n" + cancelNotePrefix + reason
}

func (s *service) UpdatePayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input PaymentUpdateInput) (*OrderDTO, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff access required")
	}
	if !input.PaymentStatus.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment status %q", input.PaymentStatus)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.PaymentStatus == input.PaymentStatus {
			return nil
		}
		cols := map[string]any{"payment_status": input.PaymentStatus}
		if input.PaymentStatus == enums.PaymentStatusPaid && order.PaidAt == nil {
			cols["paid_at"] = s.now()
		}
		if err := repo.UpdateOrder(ctx, orderID, cols); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentUpdate,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         actorRef(actor),
			Data: outbox.OrderPaymentUpdatedEvent{
				OrderID:     orderID,
				OrderNumber: order.OrderNumber,
				From:        order.PaymentStatus,
				To:          input.PaymentStatus,
			},
		})
	})
	if err != nil {
		return nil, notFoundOr(err, "update payment status")
	}
	return s.reload(ctx, orderID)
}
