package enums

import (
	"database/sql/driver"
	"fmt"
	"maps"
	"strings"
)

// SubscriptionStatus is the lifecycle state of a member subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusInactive  SubscriptionStatus = "inactive"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusRenewed   SubscriptionStatus = "renewed"
)

var validSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusPending,
	SubscriptionStatusActive,
	SubscriptionStatusInactive,
	SubscriptionStatusCancelled,
	SubscriptionStatusExpired,
	SubscriptionStatusRenewed,
}

// legacySubscriptionStatuses maps historical spellings (capitalized and
// Portuguese) onto the canonical values. Keys are lower-cased.
var legacySubscriptionStatuses = map[string]SubscriptionStatus{
	"ativa":     SubscriptionStatusActive,
	"ativo":     SubscriptionStatusActive,
	"pendente":  SubscriptionStatusPending,
	"inativa":   SubscriptionStatusInactive,
	"inativo":   SubscriptionStatusInactive,
	"cancelada": SubscriptionStatusCancelled,
	"cancelado": SubscriptionStatusCancelled,
	"canceled":  SubscriptionStatusCancelled,
	"expirada":  SubscriptionStatusExpired,
	"expirado":  SubscriptionStatusExpired,
	"renovada":  SubscriptionStatusRenewed,
	"renovado":  SubscriptionStatusRenewed,
}

// LegacySubscriptionSpellings returns a copy of the historical spellings and
// the canonical status each one maps to.
func LegacySubscriptionSpellings() map[string]SubscriptionStatus {
	return maps.Clone(legacySubscriptionStatuses)
}

// String implements fmt.Stringer.
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SubscriptionStatus) IsValid() bool {
	for _, candidate := range validSubscriptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the subscription can only leave this state by renewal.
func (s SubscriptionStatus) IsTerminal() bool {
	switch s {
	case SubscriptionStatusCancelled, SubscriptionStatusExpired, SubscriptionStatusInactive:
		return true
	}
	return false
}

// ParseSubscriptionStatus converts raw input into a SubscriptionStatus.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	for _, candidate := range validSubscriptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}

// ParseLegacySubscriptionStatus accepts canonical values plus the historical
// spellings still found in imported data ("Active", "Ativa", "Cancelada", ...).
func ParseLegacySubscriptionStatus(value string) (SubscriptionStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if status, err := ParseSubscriptionStatus(normalized); err == nil {
		return status, nil
	}
	if status, ok := legacySubscriptionStatuses[normalized]; ok {
		return status, nil
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}

// Scan reads stored values through the legacy parser. Stored rows are
// canonical once the normalize_legacy_subscription_status migration has run;
// the parser covers rows imported into a database that has not.
func (s *SubscriptionStatus) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*s = ""
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported subscription status type %T", src)
	}
	status, err := ParseLegacySubscriptionStatus(raw)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Value implements driver.Valuer.
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}
