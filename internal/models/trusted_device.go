package models

import "time"

const (
	ActivityLastDay   = "Active (last 24h)"
	ActivityLastWeek  = "Active (last week)"
	ActivityLastMonth = "Active (last month)"
	ActivityInactive  = "Inactive"
)

// TrustedDevice is a browser the user has signed in from, keyed by header fingerprint
type TrustedDevice struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	DeviceID   string     `json:"device_id"`
	Name       string     `json:"name"`
	Browser    string     `json:"browser"`
	Platform   string     `json:"platform"`
	IPAddress  string     `json:"ip_address"`
	LastUsedAt time.Time  `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"-"`
	Signature  string     `json:"-"`
}

// ActivityStatus labels the device by how recently it was used
func (d *TrustedDevice) ActivityStatus(now time.Time) string {
	age := now.Sub(d.LastUsedAt)
	switch {
	case age <= 24*time.Hour:
		return ActivityLastDay
	case age <= 7*24*time.Hour:
		return ActivityLastWeek
	case age <= 30*24*time.Hour:
		return ActivityLastMonth
	default:
		return ActivityInactive
	}
}

func (d *TrustedDevice) SigningFields() []any {
	return []any{
		d.UserID, d.DeviceID, d.Name, d.Browser, d.Platform, d.IPAddress,
		signTime(&d.LastUsedAt),
	}
}
