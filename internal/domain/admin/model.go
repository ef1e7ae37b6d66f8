package admin

import (
	"time"

	"github.com/google/uuid"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
)

// Admin is a back-office account.
type Admin struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"fullName"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"isActive"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Identity is the token identity of a.
func (a *Admin) Identity() auth.Admin {
	return auth.Admin{ID: a.ID, Email: a.Email, Name: a.FullName, Role: a.Role}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Admin     *Admin    `json:"admin"`
}

// MinPasswordLength applies to newly created admin accounts.
const MinPasswordLength = 10
