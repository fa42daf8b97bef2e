package controllers

import (
	"net/http"

	"github.com/muxdry/storefront-backend/api/responses"
	"github.com/muxdry/storefront-backend/api/validators"
	"github.com/muxdry/storefront-backend/internal/contact"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

// ContactSubmit relays the public contact form. Delivery is best-effort so a
// valid form always answers 202.
func ContactSubmit(svc contact.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "contact")
			return
		}
		var body contact.Request
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Submit(r.Context(), body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "received"})
	}
}
