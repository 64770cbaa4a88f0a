package models

import "time"

type Order struct {
	ID               int        `json:"id"`
	Number           string     `json:"number"`
	ClientID         int        `json:"client_id"`
	ClientName       string     `json:"client_name,omitempty"`
	TechnicianID     *int       `json:"technician_id,omitempty"`
	TechnicianName   *string    `json:"technician_name,omitempty"`
	ServiceType      string     `json:"service_type"`
	Description      string     `json:"description"`
	Priority         string     `json:"priority"`
	Address          string     `json:"address"`
	Status           string     `json:"status"`
	ImpedimentReason *string    `json:"impediment_reason,omitempty"`
	RequestedAt      time.Time  `json:"requested_at"`
	AssignedAt       *time.Time `json:"assigned_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type CreateOrderRequest struct {
	ClientID    int    `json:"client_id,omitempty"` // agents create on behalf of a client
	ServiceType string `json:"service_type"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Address     string `json:"address"`
}

// OrderActionRequest carries the optional inputs of an order action.
type OrderActionRequest struct {
	TechnicianID  *int   `json:"technician_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
	WorkPerformed string `json:"work_performed,omitempty"`
}

type OrderFilter struct {
	Status string
	Limit  int
	Offset int
}

// OrderDetail is the order plus everything the detail view shows.
type OrderDetail struct {
	Order            *Order         `json:"order"`
	Appointments     []*Appointment `json:"appointments"`
	Executions       []*Execution   `json:"executions"`
	AvailableActions []string       `json:"available_actions"`
}
