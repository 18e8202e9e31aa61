package model

import "time"

// DefaultPlan is assigned to every account created through signup.
const DefaultPlan = "standard"

// User represents an account in the credential store.
type User struct {
	ID           string
	Email        string
	Name         string
	Phone        string
	Country      string
	Plan         string
	PasswordHash string
	CreatedAt    time.Time
}

// SignupRequest represents a user registration request.
type SignupRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Country  string `json:"country,omitempty"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by successful signup and login calls.
type AuthResponse struct {
	OK    bool   `json:"ok"`
	Token string `json:"token"`
}

// UserResponse represents user data safe for API responses (no sensitive fields).
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Country   string    `json:"country,omitempty"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}

// Response converts the stored user into its public representation.
func (u *User) Response() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Country:   u.Country,
		Plan:      u.Plan,
		CreatedAt: u.CreatedAt,
	}
}
