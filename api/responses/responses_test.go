package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"hello": "world"})

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body Success
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, "world", body.Data.(map[string]any)["hello"])
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "bad input").
		WithDetails(map[string]string{"field": "demo"})
	WriteError(context.Background(), nil, w, err)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var body Failure
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, string(pkgerrors.CodeValidation), body.Error.Code)
	require.Equal(t, "bad input", body.Error.Message)
	require.NotNil(t, body.Error.Details)
}

func TestWriteErrorStateConflict(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled"))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body Failure
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, "order can no longer be cancelled", body.Error.Message)
}

func TestWriteErrorDefaultsToInternalForUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body Failure
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, string(pkgerrors.CodeInternal), body.Error.Code)
	require.Equal(t, "internal server error", body.Error.Message)
	require.Nil(t, body.Error.Details)
}
