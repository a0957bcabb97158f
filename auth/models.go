package auth

import "time"

type Role string

const (
	RoleEmployer   Role = "EMPLOYER"
	RoleFreelancer Role = "FREELANCER"
	RoleAdmin      Role = "ADMIN"
)

// User is the domain representation of a marketplace account.
// It mirrors the users table and should not include JSON annotations so it
// can be reused by different presentation layers.
type User struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  string
	Role          Role
	RequestedRole *Role
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RegisterRequest contains user registration data supplied by callers.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// LoginRequest contains user login credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
