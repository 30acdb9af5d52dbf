package models

// SecurityQuestion is one entry in the fixed identity-verification catalog.
// The catalog is loaded at process start and never changes.
type SecurityQuestion struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Required bool   `json:"required"`
}
