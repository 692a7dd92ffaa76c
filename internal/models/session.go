package models

import "time"

// Session is a time-boxed login of a user that carries the deposited balance
type Session struct {
	ID              int
	UserID          int
	ExpiryTime      time.Time
	DepositedAmount int
	CreatedAt       time.Time
}

// IsActive reports whether the session has not expired at the given moment
func (s *Session) IsActive(now time.Time) bool {
	return now.Before(s.ExpiryTime)
}

// SessionProduct is one purchased unit recorded against a session
type SessionProduct struct {
	ID        int
	SessionID int
	ProductID int
	CreatedAt time.Time
}
