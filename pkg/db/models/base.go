package models

import "github.com/google/uuid"

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model, in dependency order, for AutoMigrate callers.
func All() []any {
	return []any{
		&User{},
		&ProviderAccount{},
		&Plan{},
		&Subscription{},
		&Payment{},
		&Content{},
		&WebhookEvent{},
	}
}
