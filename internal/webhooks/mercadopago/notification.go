package mpwebhook

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
)

// Notification is the subset of a Mercado Pago notification the receiver acts on.
type Notification struct {
	Topic      string
	Action     string
	ExternalID string
}

type notificationBody struct {
	Type     string `json:"type"`
	Topic    string `json:"topic"`
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Data     struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

// IsPayment reports whether the notification concerns a payment.
func (n Notification) IsPayment() bool {
	return strings.Contains(n.Topic, "payment") || strings.HasPrefix(n.Action, "payment")
}

// ParseNotification reads both webhook (JSON body) and IPN (query string)
// deliveries. The external id may be data.id as a number or string, the tail
// of a resource URL, or the data.id / id query parameter.
func ParseNotification(body []byte, query url.Values) (*Notification, error) {
	var payload notificationBody
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification body")
		}
	}

	n := &Notification{
		Topic:  strings.ToLower(firstNonEmpty(payload.Type, payload.Topic, query.Get("type"), query.Get("topic"))),
		Action: strings.ToLower(strings.TrimSpace(payload.Action)),
	}
	n.ExternalID = firstNonEmpty(
		rawID(payload.Data.ID),
		resourceID(payload.Resource),
		query.Get("data.id"),
		query.Get("id"),
	)

	if n.Topic == "" && n.Action == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification type missing")
	}
	if n.IsPayment() && n.ExternalID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id missing")
	}
	return n, nil
}

func rawID(raw json.RawMessage) string {
	value := strings.TrimSpace(string(raw))
	if value == "" || value == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func resourceID(resource string) string {
	resource = strings.TrimRight(strings.TrimSpace(resource), "/")
	if resource == "" {
		return ""
	}
	if idx := strings.LastIndex(resource, "/"); idx >= 0 {
		return resource[idx+1:]
	}
	return resource
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
