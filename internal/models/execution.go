package models

import "time"

type Execution struct {
	ID              int        `json:"id"`
	OrderID         int        `json:"order_id"`
	TechnicianID    int        `json:"technician_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	WorkPerformed   string     `json:"work_performed"`
	Confirmation    string     `json:"confirmation"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
