package models

import "github.com/google/uuid"

// ensureID assigns a client side UUID so inserts do not depend on database defaults.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model, in dependency order. Tests use it with AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Category{},
		&Product{},
		&ProductFavorite{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&OrderMessage{},
		&Review{},
		&OutboxEvent{},
	}
}
