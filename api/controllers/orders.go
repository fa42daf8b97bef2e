package controllers

import (
	"net/http"
	"strings"

	"github.com/muxdry/storefront-backend/api/responses"
	"github.com/muxdry/storefront-backend/api/validators"
	"github.com/muxdry/storefront-backend/internal/orders"
	"github.com/muxdry/storefront-backend/pkg/enums"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

// OrdersCheckout converts the caller's whole cart into one order.
func OrdersCheckout(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var body orders.CheckoutInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.CheckoutCart(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrdersCheckoutItem buys a single cart line and leaves the rest of the cart alone.
func OrdersCheckoutItem(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body orders.CheckoutInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.CheckoutItem(r.Context(), actor, itemID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func OrdersListCurrent(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		params, err := validators.ParseCursorParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		filters := orders.CurrentFilters{
			Period: orders.Period(strings.TrimSpace(query.Get("period"))),
			Date:   strings.TrimSpace(query.Get("date")),
			Query:  validators.TrimText(query.Get("q"), 100),
		}
		page, err := svc.ListCurrent(r.Context(), actor, filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func OrdersListHistory(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		params, err := validators.ParseCursorParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		filters := orders.HistoryFilters{
			Status: enums.OrderStatus(strings.TrimSpace(query.Get("status"))),
			Date:   strings.TrimSpace(query.Get("date")),
		}
		page, err := svc.ListHistory(r.Context(), actor, filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func OrdersGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrdersCancel lets the owner cancel while the order is still pending or confirmed.
// The body is optional.
func OrdersCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body orders.CancelInput
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		order, err := svc.Cancel(r.Context(), actor, orderID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminOrdersList is the staff order table with status, period and q filters.
func AdminOrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		params, err := validators.ParseCursorParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		filters := orders.AdminFilters{
			Status: enums.OrderStatus(strings.TrimSpace(query.Get("status"))),
			Period: orders.Period(strings.TrimSpace(query.Get("period"))),
			Query:  validators.TrimText(query.Get("q"), 100),
		}
		page, err := svc.ListAdmin(r.Context(), actor, filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminOrdersUpdateStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body orders.StatusUpdateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdateStatus(r.Context(), actor, orderID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func AdminOrdersUpdatePayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "orders")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body orders.PaymentUpdateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdatePayment(r.Context(), actor, orderID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
