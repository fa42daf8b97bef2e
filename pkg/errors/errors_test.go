package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized},
		{code: CodeForbidden, status: http.StatusForbidden},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeConflict, status: http.StatusConflict},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s missing public message", tt.code)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("db down")
	err := Wrap(CodeDependency, cause, "load order")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDependency, err.Code())
	assert.Contains(t, err.Error(), "db down")

	wrapped := fmt.Errorf("outer: %w", err)
	require.True(t, IsCode(wrapped, CodeDependency))
	require.False(t, IsCode(wrapped, CodeNotFound))
	require.Nil(t, As(stdErrors.New("plain")))
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "invalid").WithDetails(map[string]string{"email": "required"})
	assert.Equal(t, map[string]string{"email": "required"}, err.Details())
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_reviews_product_user", TableName: "reviews", Message: "duplicate key value"}
	err := Wrap(CodeConflict, pgErr, "create review")

	d := Dump(err)
	assert.Equal(t, CodeConflict, d.Code)
	assert.Equal(t, "23505", d.PGCode)
	assert.Equal(t, "ux_reviews_product_user", d.PGConstraint)
	assert.Len(t, d.Chain, 2)

	fields := d.Fields()
	assert.Equal(t, "23505", fields["pg_code"])
	assert.Equal(t, "reviews", fields["pg_table"])
}
