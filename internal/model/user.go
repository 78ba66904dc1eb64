package model

import "time"

// User is the account row addressed by its vehicle-number identity.
// Account creation and profile editing are owned by the identity
// service; the signaling server only reads the push token and display
// name and updates the presence columns.
type User struct {
	ID          string    `db:"id" json:"id"`
	Identity    string    `db:"car_number" json:"carNumber"`
	DisplayName *string   `db:"display_name" json:"displayName,omitempty"`
	PushToken   *string   `db:"push_token" json:"-"`
	IsOnline    bool      `db:"is_online" json:"isOnline"`
	LastSeenAt  time.Time `db:"last_seen_at" json:"lastSeenAt"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Name returns the receiver-facing display name, falling back to the
// identity when the profile has none.
func (u *User) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Identity
}
