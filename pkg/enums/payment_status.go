package enums

import (
	"fmt"
	"strings"
)

// PaymentStatus is the ledger state of a single payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusApproved,
	PaymentStatusRejected,
	PaymentStatusCancelled,
	PaymentStatusRefunded,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

// PaymentStatusFromGateway maps Mercado Pago payment states onto the ledger states.
func PaymentStatusFromGateway(value string) (PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "approved":
		return PaymentStatusApproved, nil
	case "pending", "in_process", "authorized", "in_mediation":
		return PaymentStatusPending, nil
	case "rejected":
		return PaymentStatusRejected, nil
	case "cancelled":
		return PaymentStatusCancelled, nil
	case "refunded", "charged_back":
		return PaymentStatusRefunded, nil
	}
	return "", fmt.Errorf("unknown gateway payment status %q", value)
}
