package apikey

import "time"

// AdminDeviceName is the device label reserved for the administrative key.
const AdminDeviceName = "admin"

// APIKey represents a row in the api_keys table.
type APIKey struct {
	ID            int64
	Key           string
	DeviceName    string
	Active        bool
	CreatedAt     time.Time
	DeactivatedAt *time.Time
}

// IsAdmin reports whether the key carries the administrative device label.
func (k *APIKey) IsAdmin() bool {
	return k.DeviceName == AdminDeviceName
}
