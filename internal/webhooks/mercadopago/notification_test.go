package mpwebhook

import (
	"net/url"
	"testing"

	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
)

func TestParseNotificationShapes(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		query url.Values
		want  string
	}{
		{"numeric data id", `{"type":"payment","action":"payment.updated","data":{"id":12345}}`, nil, "12345"},
		{"string data id", `{"type":"payment","data":{"id":"67890"}}`, nil, "67890"},
		{"resource url", `{"topic":"payment","resource":"https://api.mercadolibre.com/collections/notifications/555"}`, nil, "555"},
		{"resource bare id", `{"topic":"payment","resource":"556"}`, nil, "556"},
		{"ipn query", ``, url.Values{"topic": {"payment"}, "id": {"777"}}, "777"},
		{"webhook query", ``, url.Values{"type": {"payment"}, "data.id": {"888"}}, "888"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := ParseNotification([]byte(tc.body), tc.query)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !n.IsPayment() {
				t.Fatalf("expected payment notification")
			}
			if n.ExternalID != tc.want {
				t.Fatalf("expected id %q, got %q", tc.want, n.ExternalID)
			}
		})
	}
}

func TestParseNotificationIgnoresOtherTopics(t *testing.T) {
	n, err := ParseNotification([]byte(`{"type":"merchant_order","data":{"id":"1"}}`), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.IsPayment() {
		t.Fatalf("merchant_order must not be treated as payment")
	}
}

func TestParseNotificationRejectsBadInput(t *testing.T) {
	inputs := map[string]string{
		"malformed json":  `{"type":`,
		"missing type":    `{"data":{"id":"1"}}`,
		"payment no id":   `{"type":"payment"}`,
		"null payment id": `{"type":"payment","data":{"id":null}}`,
	}
	for name, body := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := ParseNotification([]byte(body), nil)
			if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
