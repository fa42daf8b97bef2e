package controllers

import (
	"context"
	"net/http"

	"github.com/muxdry/storefront-backend/api/middleware"
	"github.com/muxdry/storefront-backend/api/responses"
	"github.com/muxdry/storefront-backend/api/validators"
	"github.com/muxdry/storefront-backend/pkg/auth"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

// requireActor writes UNAUTHORIZED and returns false when the request carries no caller.
func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (auth.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return auth.Actor{}, false
	}
	return actor, true
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}

func validationErr(err error, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, message)
}

func unavailableHandler(logg *logger.Logger, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unavailable(w, r, logg, name)
	}
}

// reply writes result under status, or the error envelope when err is set.
func reply(w http.ResponseWriter, r *http.Request, logg *logger.Logger, status int, result any, err error) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, status, result)
}

// bodyHandler decodes and validates a JSON body of type In, then hands it to call.
func bodyHandler[In, Out any](logg *logger.Logger, status int, call func(context.Context, In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body In
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := call(r.Context(), body)
		reply(w, r, logg, status, result, err)
	}
}

// actorHandler runs fn only for authenticated callers.
func actorHandler(logg *logger.Logger, fn func(http.ResponseWriter, *http.Request, auth.Actor)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if actor, ok := requireActor(w, r, logg); ok {
			fn(w, r, actor)
		}
	}
}
