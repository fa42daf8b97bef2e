package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/enums"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/pagination"
)

const dayLayout = "2006-01-02"

func (s *service) Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOwned(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	dto := NewOrderDTO(order)
	return &dto, nil
}

// ListCurrent lists the caller's orders that are still moving through fulfilment.
func (s *service) ListCurrent(ctx context.Context, actor auth.Actor, filters CurrentFilters, params pagination.Params) (*OrderPage, error) {
	query := ListQuery{
		UserID:   &actor.UserID,
		Statuses: enums.InProgressOrderStatuses,
		Search:   filters.Query,
	}
	since, err := s.periodStart(filters.Period)
	if err != nil {
		return nil, err
	}
	query.Since = since
	if filters.Date != "" {
		day, err := parseDay(filters.Date)
		if err != nil {
			return nil, err
		}
		query.DayStart = &day
	}
	return s.list(ctx, query, params, customerPageSize)
}

// ListHistory lists finished orders; delivered unless another status is asked for.
func (s *service) ListHistory(ctx context.Context, actor auth.Actor, filters HistoryFilters, params pagination.Params) (*OrderPage, error) {
	status := filters.Status
	if status == "" {
		status = enums.OrderStatusDelivered
	}
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", status)
	}
	query := ListQuery{UserID: &actor.UserID, Statuses: []enums.OrderStatus{status}}

	switch date := strings.TrimSpace(filters.Date); date {
	case "":
	case historyThreeMonths:
		since, _ := s.periodStart(PeriodThreeMonths)
		query.Since = since
	default:
		day, err := parseDay(date)
		if err != nil {
			return nil, err
		}
		query.DayStart = &day
	}
	return s.list(ctx, query, params, customerPageSize)
}

// ListAdmin is the staff order table. The search term also matches the customer's email.
func (s *service) ListAdmin(ctx context.Context, actor auth.Actor, filters AdminFilters, params pagination.Params) (*OrderPage, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff access required")
	}
	query := ListQuery{Search: filters.Query, SearchAll: true}
	if filters.Status != "" {
		if !filters.Status.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", filters.Status)
		}
		query.Statuses = []enums.OrderStatus{filters.Status}
	}
	since, err := s.periodStart(filters.Period)
	if err != nil {
		return nil, err
	}
	query.Since = since
	return s.list(ctx, query, params, adminPageSize)
}

func (s *service) CountInProgress(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.CountByStatus(ctx, userID, enums.InProgressOrderStatuses)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	return count, nil
}

func (s *service) list(ctx context.Context, query ListQuery, params pagination.Params, pageSize int) (*OrderPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query.Cursor = cursor
	query.Limit = pagination.NormalizeLimitWithDefault(params.Limit, pageSize)

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := pagination.Trim(rows, query.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := OrderPage{Items: make([]OrderDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, NewOrderDTO(&page.Items[i]))
	}
	return &out, nil
}

func (s *service) periodStart(period Period) (*time.Time, error) {
	var days int
	switch period {
	case PeriodAll:
		return nil, nil
	case PeriodThreeMonths:
		days = 90
	case PeriodYear:
		days = 365
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid period %q", period)
	}
	since := s.now().AddDate(0, 0, -days)
	return &since, nil
}

func parseDay(value string) (time.Time, error) {
	day, err := time.ParseInLocation(dayLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid date %q, expected YYYY-MM-DD", value)
	}
	return day, nil
}
