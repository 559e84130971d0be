package enums

import "testing"

func TestParseLegacySubscriptionStatus(t *testing.T) {
	cases := map[string]SubscriptionStatus{
		"active":      SubscriptionStatusActive,
		"Active":      SubscriptionStatusActive,
		"Ativa":       SubscriptionStatusActive,
		" Cancelada ": SubscriptionStatusCancelled,
		"Inativa":     SubscriptionStatusInactive,
		"Expirada":    SubscriptionStatusExpired,
		"Pendente":    SubscriptionStatusPending,
		"canceled":    SubscriptionStatusCancelled,
	}
	for raw, want := range cases {
		got, err := ParseLegacySubscriptionStatus(raw)
		if err != nil {
			t.Fatalf("ParseLegacySubscriptionStatus(%q) error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseLegacySubscriptionStatus(%q) = %q, want %q", raw, got, want)
		}
	}

	if _, err := ParseLegacySubscriptionStatus("paused"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestParseSubscriptionStatusIsStrict(t *testing.T) {
	if _, err := ParseSubscriptionStatus("Active"); err == nil {
		t.Fatalf("canonical parser must reject legacy casing")
	}
}

func TestPaymentStatusFromGateway(t *testing.T) {
	cases := map[string]PaymentStatus{
		"approved":     PaymentStatusApproved,
		"in_process":   PaymentStatusPending,
		"authorized":   PaymentStatusPending,
		"in_mediation": PaymentStatusPending,
		"rejected":     PaymentStatusRejected,
		"cancelled":    PaymentStatusCancelled,
		"charged_back": PaymentStatusRefunded,
		"REFUNDED":     PaymentStatusRefunded,
	}
	for raw, want := range cases {
		got, err := PaymentStatusFromGateway(raw)
		if err != nil {
			t.Fatalf("PaymentStatusFromGateway(%q) error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("PaymentStatusFromGateway(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := PaymentStatusFromGateway("mystery"); err == nil {
		t.Fatalf("expected error for unknown gateway status")
	}
}

func TestParseBillingCycle(t *testing.T) {
	if got, _ := ParseBillingCycle(""); got != BillingCycleMonthly {
		t.Fatalf("expected empty billing to default to monthly, got %q", got)
	}
	if got, _ := ParseBillingCycle("Anual"); got != BillingCycleAnnual {
		t.Fatalf("expected anual alias, got %q", got)
	}
	if _, err := ParseBillingCycle("weekly"); err == nil {
		t.Fatalf("expected error for weekly")
	}
}

func TestSubscriptionStatusIsTerminal(t *testing.T) {
	if SubscriptionStatusActive.IsTerminal() || SubscriptionStatusPending.IsTerminal() {
		t.Fatalf("active/pending are not terminal")
	}
	if !SubscriptionStatusCancelled.IsTerminal() || !SubscriptionStatusExpired.IsTerminal() {
		t.Fatalf("cancelled/expired must be terminal")
	}
	if SubscriptionStatusRenewed.IsTerminal() {
		t.Fatalf("renewed records cannot be renewed again")
	}
}

func TestSubscriptionStatusScanMapsLegacyRows(t *testing.T) {
	var status SubscriptionStatus
	if err := status.Scan([]byte("Ativa")); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if status != SubscriptionStatusActive {
		t.Fatalf("expected active got %q", status)
	}
	if err := status.Scan("paused"); err == nil {
		t.Fatalf("expected error for unknown stored status")
	}
}
