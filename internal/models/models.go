package models

import "time"

// User represents a registered account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Budget       float64   `json:"budget"`
	CreatedAt    time.Time `json:"created_at"`
}

// Expense represents a single expense record owned by one user.
type Expense struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// Session represents a logged-in user session.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
