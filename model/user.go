package model

import (
	"time"
)

// DefaultPlan is assigned when a user registers without picking a plan
const DefaultPlan = "free"

// User model
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Plan         string    `json:"plan"`
	Admin        bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest is the body of POST /user/register
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Plan     string `json:"plan"`
}

// LoginRequest is the body of POST /user/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by a successful register or login
type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"isAdmin"`
}
