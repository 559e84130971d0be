package types

type SuccessEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type APIError struct {
	Code      string `json:"code"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// ErrorEnvelope is rendered for every failed request. Clients display Message.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Error   *APIError `json:"error,omitempty"`
}

// WebhookAck is returned to payment providers once a notification is accepted.
type WebhookAck struct {
	Received bool `json:"received"`
}
