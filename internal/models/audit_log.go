package models

import "time"

// AuditLog is an append-only record of a sensitive action.
type AuditLog struct {
	ID          int       `json:"id"`
	UserID      *int      `json:"user_id,omitempty"`
	UserName    *string   `json:"user_name,omitempty"`
	OrderID     *int      `json:"order_id,omitempty"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	IPAddress   *string   `json:"ip_address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type AuditLogFilter struct {
	UserID  *int
	OrderID *int
	Action  string
	Limit   int
}
