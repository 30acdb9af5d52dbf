package models

import (
	"time"
)

type User struct {
	ID                string
	Email             string
	Name              string
	Role              string  // e.g., "user", "admin"
	Status            string  // "active", "suspended", "disabled"
	BillingCustomerID *string // Set for token-only subscribers; used for pseudonym translation
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
