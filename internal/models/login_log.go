package models

import "time"

type LoginLog struct {
	ID         int        `json:"id"`
	UserID     *int       `json:"user_id,omitempty"`
	UserName   string     `json:"user_name,omitempty"`
	Identifier string     `json:"identifier"`
	Success    bool       `json:"success"`
	TokenID    string     `json:"-"`
	IPAddress  string     `json:"ip_address,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	LoginTime  time.Time  `json:"login_time"`
	LogoutTime *time.Time `json:"logout_time,omitempty"`
}
