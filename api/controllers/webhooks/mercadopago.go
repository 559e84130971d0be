package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/abex/clubes-abex/api/responses"
	mpwebhook "github.com/abex/clubes-abex/internal/webhooks/mercadopago"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/logger"
)

const (
	maxNotificationBytes = 1 << 20

	signatureHeader = "X-Signature"
	requestIDHeader = "X-Request-Id"
)

type MercadoPagoWebhookService interface {
	Handle(ctx context.Context, d mpwebhook.Delivery) (string, error)
}

// MercadoPagoWebhook receives payment notifications. Only malformed input,
// a bad signature or an unreachable gateway produce a non-2xx status; every
// other outcome is acknowledged so Mercado Pago stops redelivering.
func MercadoPagoWebhook(svc MercadoPagoWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxNotificationBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		outcome, err := svc.Handle(ctx, mpwebhook.Delivery{
			Body:      payload,
			Query:     r.URL.Query(),
			Signature: r.Header.Get(signatureHeader),
			RequestID: r.Header.Get(requestIDHeader),
		})
		if err != nil && rejects(err) {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithField(ctx, "outcome", outcome)
			if err != nil {
				logg.Error(ctx, "webhook.acknowledged_with_error", err)
			} else {
				logg.Info(ctx, "webhook.acknowledged")
			}
		}
		responses.WriteAck(w)
	}
}

func rejects(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return false
	}
	switch typed.Code() {
	case pkgerrors.CodeValidation, pkgerrors.CodeUnauthorized, pkgerrors.CodeUpstream:
		return true
	}
	return false
}
