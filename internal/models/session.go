package models

import "time"

const unknownLocation = "Unknown"

// Location is the coarse geolocation attached to a session
type Location struct {
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city"`
}

// UnknownLocation is used whenever geolocation is unavailable
func UnknownLocation() Location {
	return Location{Country: unknownLocation, Region: unknownLocation, City: unknownLocation}
}

// SessionStatus classifies a session by last activity
type SessionStatus string

const (
	SessionActive   SessionStatus = "active"
	SessionInactive SessionStatus = "inactive"
	SessionExpired  SessionStatus = "expired"
)

// Session is one authenticated browser session of a user
type Session struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	SessionID    string     `json:"session_id"`
	IPAddress    string     `json:"ip_address"`
	UserAgent    string     `json:"user_agent"`
	DeviceID     string     `json:"device_id"`
	Location     Location   `json:"location"`
	LastActivity time.Time  `json:"last_activity"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"-"`
	Signature    string     `json:"-"`
}

// Status classifies the session: active within activeWithin, inactive
// within inactiveWithin, expired otherwise.
func (s *Session) Status(now time.Time, activeWithin, inactiveWithin time.Duration) SessionStatus {
	age := now.Sub(s.LastActivity)
	switch {
	case age <= activeWithin:
		return SessionActive
	case age <= inactiveWithin:
		return SessionInactive
	default:
		return SessionExpired
	}
}

func (s *Session) SigningFields() []any {
	return []any{
		s.UserID, s.SessionID, s.IPAddress, s.UserAgent, s.DeviceID,
		s.Location.Country, s.Location.Region, s.Location.City,
		signTime(&s.LastActivity),
	}
}
