// Package model defines the data structures used throughout the application.
package model

import "time"

// User is an account created on first GitHub sign-in and overwritten on each
// later sign-in.
//
// ID is GitHub's numeric user id rendered as a decimal string. It is the
// identity carried in session tokens and in Project.OwnerID.
//
// EncryptedToken is the user's GitHub access token sealed by
// auth.TokenCipher. It is serialized so document backends can persist it,
// but it must never be written to an API response: handlers return
// Profile() instead.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Avatar         string    `json:"avatar"`
	EncryptedToken string    `json:"encryptedToken,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// UserProfile is the public view of a User.
type UserProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

// Profile strips the sensitive fields from u.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Email:    u.Email,
		Avatar:   u.Avatar,
	}
}
