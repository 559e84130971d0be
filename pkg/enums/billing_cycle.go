package enums

import (
	"fmt"
	"strings"
)

// BillingCycle controls the length of a subscription window.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleAnnual  BillingCycle = "annual"
)

var validBillingCycles = []BillingCycle{
	BillingCycleMonthly,
	BillingCycleAnnual,
}

// String implements fmt.Stringer.
func (b BillingCycle) String() string {
	return string(b)
}

// IsValid reports whether the value is known.
func (b BillingCycle) IsValid() bool {
	for _, candidate := range validBillingCycles {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBillingCycle converts raw input into a BillingCycle. Empty input
// defaults to monthly; "yearly"/"anual"/"mensal" are accepted aliases.
func ParseBillingCycle(value string) (BillingCycle, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "monthly", "month", "mensal":
		return BillingCycleMonthly, nil
	case "annual", "yearly", "year", "anual":
		return BillingCycleAnnual, nil
	}
	return "", fmt.Errorf("invalid billing cycle %q", value)
}
