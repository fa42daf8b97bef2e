package orders

import (
	"time"

	"github.com/muxdry/storefront-backend/pkg/enums"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
)

// TransitionRequest is everything the transition rules look at.
type TransitionRequest struct {
	From        enums.OrderStatus
	To          enums.OrderStatus
	ByStaff     bool
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	Now         time.Time
}

// TransitionResult lists what applying a transition must write.
// Stamps are nil when the column keeps its current value.
type TransitionResult struct {
	Noop           bool
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
	IncrementSales bool
}

// Transition validates moving an order from req.From to req.To and derives its side effects.
// Forward moves may skip states. Same-state staff requests are a no-op.
// Owners may cancel only from pending or confirmed; staff from any non-terminal state.
func Transition(req TransitionRequest) (TransitionResult, error) {
	if !req.To.IsValid() {
		return TransitionResult{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", req.To)
	}
	// Checked before the same-state shortcut: an owner re-cancelling is refused.
	ownerCancel := req.To == enums.OrderStatusCancelled && !req.ByStaff
	if ownerCancel && !req.From.CustomerCancellable() {
		return TransitionResult{}, stateConflict(req, "order can no longer be cancelled")
	}
	if req.From == req.To {
		return TransitionResult{Noop: true}, nil
	}
	if req.From.IsTerminal() {
		return TransitionResult{}, stateConflict(req, "order is already "+string(req.From))
	}
	if req.To == enums.OrderStatusCancelled {
		return TransitionResult{}, nil
	}

	if !req.ByStaff {
		return TransitionResult{}, pkgerrors.New(pkgerrors.CodeForbidden, "only staff can change order status")
	}
	if req.To.Rank() < req.From.Rank() {
		return TransitionResult{}, stateConflict(req, "order status cannot move backwards")
	}

	var res TransitionResult
	now := req.Now.UTC()
	if (req.To == enums.OrderStatusShipped || req.To == enums.OrderStatusDelivered) && req.ShippedAt == nil {
		res.ShippedAt = &now
	}
	if req.To == enums.OrderStatusDelivered {
		if req.DeliveredAt == nil {
			res.DeliveredAt = &now
		}
		res.IncrementSales = true
	}
	return res, nil
}

// Columns renders the result plus the new status as update columns.
func (r TransitionResult) Columns(to enums.OrderStatus) map[string]any {
	cols := map[string]any{"status": to}
	if r.ShippedAt != nil {
		cols["shipped_at"] = *r.ShippedAt
	}
	if r.DeliveredAt != nil {
		cols["delivered_at"] = *r.DeliveredAt
	}
	return cols
}

func stateConflict(req TransitionRequest, msg string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, msg).
		WithDetails(map[string]string{"from": string(req.From), "to": string(req.To)})
}
