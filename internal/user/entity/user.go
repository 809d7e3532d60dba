package entity

import "time"

// User represents an account row in the `users` table.
type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Profile is the public projection returned by signup and /me.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Username: u.Username}
}
