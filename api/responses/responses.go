package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/logger"
	"github.com/abex/clubes-abex/pkg/types"
)

// RequestIDHeader is set on the response by the request id middleware and
// echoed in error bodies so members can quote it to support.
const RequestIDHeader = "X-Request-Id"

const encodeFailureBody = `{"success":false,"message":"internal server error","error":{"code":"INTERNAL_ERROR"}}`

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, types.SuccessEnvelope{Success: true, Data: data})
}

// WriteAck acknowledges a provider notification.
func WriteAck(w http.ResponseWriter) {
	WriteJSON(w, http.StatusOK, types.WebhookAck{Received: true})
}

// WriteError renders err as an error envelope. Client errors keep their own
// message; server errors only ever show the code's public message.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("error written without a cause")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())
	serverSide := meta.HTTPStatus >= http.StatusInternalServerError

	body := types.ErrorEnvelope{
		Message: meta.PublicMessage,
		Error: &types.APIError{
			Code:      string(typed.Code()),
			RequestID: w.Header().Get(RequestIDHeader),
		},
	}
	if msg := typed.Message(); !serverSide && msg != "" {
		body.Message = msg
	}
	if meta.DetailsAllowed {
		body.Error.Details = typed.Details()
	}

	ctx = logg.WithFields(ctx, pkgerrors.LogFields(err))
	if serverSide {
		logg.Error(ctx, "request.error", err)
	} else {
		logg.Warn(ctx, "request.rejected")
	}
	WriteJSON(w, meta.HTTPStatus, body)
}

// WriteJSON encodes payload before touching the response so an encoding
// failure still produces a well-formed 500.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	encoded, err := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(encodeFailureBody + "\n"))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(encoded, '\n'))
}
