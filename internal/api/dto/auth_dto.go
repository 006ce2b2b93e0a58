package dto

import "time"

// LoginRequest payload for PIN login.
type LoginRequest struct {
	IDNumber string `json:"id_number"`
	Pin      string `json:"pin"`
}

// RefreshRequest payload for non-cookie callers.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SessionResponse describes an issued session.
type SessionResponse struct {
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}
