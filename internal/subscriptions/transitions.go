package subscriptions

import (
	"github.com/abex/clubes-abex/pkg/enums"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
)

var allowedTransitions = map[enums.SubscriptionStatus][]enums.SubscriptionStatus{
	enums.SubscriptionStatusPending: {
		enums.SubscriptionStatusActive,
		enums.SubscriptionStatusCancelled,
	},
	enums.SubscriptionStatusActive: {
		enums.SubscriptionStatusCancelled,
		enums.SubscriptionStatusExpired,
		enums.SubscriptionStatusInactive,
		enums.SubscriptionStatusRenewed,
	},
	enums.SubscriptionStatusCancelled: {enums.SubscriptionStatusRenewed},
	enums.SubscriptionStatusExpired:   {enums.SubscriptionStatusRenewed},
	enums.SubscriptionStatusInactive:  {enums.SubscriptionStatusRenewed},
}

// CanTransition reports whether a subscription may move from one status to another.
func CanTransition(from, to enums.SubscriptionStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func ensureTransition(from, to enums.SubscriptionStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "subscription cannot move from %s to %s", from, to)
}
