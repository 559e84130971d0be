package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMetadataTable(t *testing.T) {
	statuses := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeForbidden:     http.StatusForbidden,
		CodeNotFound:      http.StatusNotFound,
		CodeConflict:      http.StatusConflict,
		CodeStateConflict: http.StatusUnprocessableEntity,
		CodeIdempotency:   http.StatusConflict,
		CodeRateLimit:     http.StatusTooManyRequests,
		CodeUpstream:      http.StatusInternalServerError,
		CodeInternal:      http.StatusInternalServerError,
		CodeDependency:    http.StatusServiceUnavailable,
	}
	for code, status := range statuses {
		meta := MetadataFor(code)
		require.Equal(t, status, meta.HTTPStatus, code)
		require.NotEmpty(t, meta.PublicMessage, code)
	}
	require.Len(t, metadataByCode, len(statuses), "every code needs a status")

	require.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
	require.True(t, MetadataFor(CodeValidation).DetailsAllowed)
	require.False(t, MetadataFor(CodeInternal).DetailsAllowed, "internal details must never reach clients")
}

func TestConstructorsKeepCodeMessageAndCause(t *testing.T) {
	base := New(CodeValidation, "missing planId")
	require.Equal(t, CodeValidation, base.Code())
	require.Equal(t, "missing planId", base.Message())
	require.Nil(t, base.Details())
	decorated := base.WithDetails(map[string]string{"planId": "is required"})
	require.Equal(t, map[string]string{"planId": "is required"}, decorated.Details())
	require.Nil(t, base.Details(), "WithDetails must not mutate the receiver")
	require.Equal(t, "VALIDATION_ERROR: missing planId", base.Error())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "bind payment")
	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, CodeConflict, wrapped.Code())
	require.Nil(t, Wrap(CodeConflict, nil, "no cause").Unwrap())

	require.Equal(t, "plan 7 not found", Newf(CodeNotFound, "plan %d not found", 7).Message())

	var nilErr *Error
	require.Equal(t, CodeInternal, nilErr.Code())
	require.Nil(t, nilErr.WithDetails("x"))
}

func TestAsAndIsFollowWrapping(t *testing.T) {
	inner := Wrap(CodeUpstream, stdErrors.New("timeout"), "fetch payment")
	outer := fmt.Errorf("reconcile: %w", inner)

	require.Same(t, inner, As(outer))
	require.Nil(t, As(nil))
	require.Nil(t, As(stdErrors.New("plain")))
	require.True(t, Is(outer, CodeUpstream))
	require.False(t, Is(outer, CodeNotFound))
	require.False(t, Is(nil, CodeUpstream))

	layered := Wrap(CodeInternal, fmt.Errorf("load: %w", New(CodeNotFound, "plan")), "checkout")
	require.True(t, Is(layered, CodeNotFound))
	require.True(t, Is(layered, CodeInternal))
	require.Equal(t, CodeInternal, As(layered).Code())
	require.Equal(t, "payment 42: lookup", Wrapf(CodeUpstream, nil, "payment %d: %s", 42, "lookup").Message())
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{stdErrors.New("connection reset"), true},
		{New(CodeUpstream, "mercado pago down"), true},
		{fmt.Errorf("tx: %w", New(CodeDependency, "db")), true},
		{New(CodeConflict, "payment already bound"), false},
		{New(CodeStateConflict, "expired to cancelled"), false},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Fatalf("IsRetryable(%v) = %v want %v", tc.err, got, tc.want)
		}
	}
}

func TestLogFieldsIncludesChainAndPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_payments_external_payment_id", TableName: "payments"}
	err := Wrap(CodeConflict, fmt.Errorf("insert payment: %w", pgErr), "payment already recorded")

	fields := LogFields(err)
	if fields["error_code"] != CodeConflict {
		t.Fatalf("expected conflict code, got %v", fields["error_code"])
	}
	if chain, _ := fields["error_chain"].([]string); len(chain) != 3 {
		t.Fatalf("expected three chain links, got %v", fields["error_chain"])
	}
	if fields["pg_code"] != "23505" || fields["pg_constraint"] != "idx_payments_external_payment_id" {
		t.Fatalf("expected postgres fields, got %v", fields)
	}
	if LogFields(nil) != nil {
		t.Fatalf("nil error should produce no fields")
	}
}
