package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/pagination"
)

// ParseQueryInt returns fallback when key is absent and a VALIDATION error when
// the value is not an integer within [min, max].
func ParseQueryInt(r *http.Request, key string, fallback, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be an integer", key).
			WithDetails(map[string]any{"field": key, "value": raw})
	}
	if n < min || n > max {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between %d and %d", key, min, max).
			WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return n, nil
}

func ParseCursorParams(r *http.Request) (pagination.Params, error) {
	limit, err := ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func ParseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil {
		return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid %s", name).
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

// TrimText trims input and cuts it to at most maxRunes runes without
// splitting a multi-byte character.
func TrimText(input string, maxRunes int) string {
	s := strings.TrimSpace(input)
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:maxRunes]))
}
