package responses

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/types"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.False(t, body.Success)
	require.NotNil(t, body.Error)
	return body
}

func TestWriteSuccessWrapsData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]string{"plan": "gold"})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"success":true,"data":{"plan":"gold"}}`, rec.Body.String())
}

func TestWriteErrorKeepsClientMessageAndDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set(RequestIDHeader, "req-42")
	err := pkgerrors.New(pkgerrors.CodeValidation, "planId is required").
		WithDetails(map[string]string{"planId": "is required"})
	WriteError(context.Background(), nil, rec, err)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	require.Equal(t, "planId is required", body.Message)
	require.Equal(t, string(pkgerrors.CodeValidation), body.Error.Code)
	require.Equal(t, "req-42", body.Error.RequestID)
	require.Equal(t, map[string]any{"planId": "is required"}, body.Error.Details)
}

func TestWriteErrorHidesServerSideMessages(t *testing.T) {
	cases := map[string]struct {
		err     error
		status  int
		message string
	}{
		"untyped": {errors.New("pq: relation does not exist"), http.StatusInternalServerError, "internal server error"},
		"upstream": {
			pkgerrors.Wrap(pkgerrors.CodeUpstream, errors.New("dial tcp: timeout"), "fetch payment 123"),
			http.StatusInternalServerError, "payment provider unavailable",
		},
		"dependency": {
			pkgerrors.New(pkgerrors.CodeDependency, "redis at 10.0.0.3 refused"),
			http.StatusServiceUnavailable, "dependency unavailable",
		},
	}
	for name, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(context.Background(), nil, rec, tc.err)
		require.Equal(t, tc.status, rec.Code, name)
		require.Equal(t, tc.message, decodeError(t, rec).Message, name)
	}
}

func TestWriteErrorDropsDetailsForInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeInternal, "x").WithDetails("stack"))
	require.Nil(t, decodeError(t, rec).Error.Details)
}

func TestWriteJSONEncodeFailureIsWellFormed(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, map[string]float64{"bad": math.Inf(1)})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, string(pkgerrors.CodeInternal), decodeError(t, rec).Error.Code)
}

func TestWriteAck(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAck(rec)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "{\"received\":true}\n", rec.Body.String())
}
