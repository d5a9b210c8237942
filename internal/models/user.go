package models

import "time"

// UserProfile is the public identity record for a user. ProfilePic is nil
// until the user uploads an avatar.
type UserProfile struct {
	UID        string    `db:"uid" json:"uid"`
	Username   string    `db:"username" json:"username"`
	Email      string    `db:"email" json:"email"`
	ProfilePic *string   `db:"profile_pic" json:"profile_pic"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	LastActive time.Time `db:"last_active" json:"last_active"`
}

// UsernameEntry is the reverse-index record enforcing case-insensitive
// username uniqueness. The key is always the lowercased username.
type UsernameEntry struct {
	Username string `db:"username" json:"username"`
	UID      string `db:"uid" json:"uid"`
}
