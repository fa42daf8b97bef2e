package controllers

import (
	"mime"
	"net/http"

	"github.com/muxdry/storefront-backend/api/responses"
	"github.com/muxdry/storefront-backend/api/validators"
	"github.com/muxdry/storefront-backend/internal/messages"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

type sendMessagePayload struct {
	Message string `json:"message" validate:"required"`
}

// MessagesThread returns an order's chat and marks the other side's messages read.
func MessagesThread(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "messages")
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
		thread, err := svc.ListThread(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, thread)
	}
}

// MessagesSend accepts JSON {"message": "..."} or a multipart form with a
// "message" field and an optional "file" image.
func MessagesSend(svc messages.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "messages")
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

		var input messages.SendInput
		if isMultipart(r) {
			if maxBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
			}
			if err := r.ParseMultipartForm(multipartMemoryCap); err != nil {
				responses.WriteError(r.Context(), logg, w, validationErr(err, "invalid multipart form"))
				return
			}
			input.Body = r.FormValue("message")
			data, _, err := formImage(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Image = data
		} else {
			var body sendMessagePayload
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Body = body.Message
		}

		msg, err := svc.Send(r.Context(), actor, orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}

// MessagesUnreadForOrder counts staff replies the owner has not opened.
func MessagesUnreadForOrder(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "messages")
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
		count, err := svc.UnreadForOrder(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, messages.UnreadDTO{Unread: count})
	}
}

func MessagesUnreadForUser(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "messages")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		count, err := svc.UnreadForUser(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, messages.UnreadDTO{Unread: count})
	}
}

func AdminMessagesUnread(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "messages")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		count, err := svc.UnreadForAdmin(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, messages.UnreadDTO{Unread: count})
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
