package models

import "time"

type Notification struct {
	ID      int       `json:"id"`
	UserID  int       `json:"user_id"`
	OrderID *int      `json:"order_id,omitempty"`
	Type    string    `json:"type"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
	Read    bool      `json:"read"`
}

type BroadcastRequest struct {
	Role    string `json:"role"` // empty or "all" targets every active user
	Type    string `json:"type"`
	Message string `json:"message"`
}

type NotificationPage struct {
	Notifications       []*Notification `json:"notifications"`
	Unread              int             `json:"unread"`
	PollIntervalSeconds int             `json:"poll_interval_seconds"`
}
