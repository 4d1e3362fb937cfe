package domain

import (
	"time"

	"github.com/ridloal/agri-traceability/internal/identity"
)

// User is an actor profile. ID is the subject id issued by the identity
// provider; accounts and credentials live there, not here.
type User struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"display_name"`
	Role        identity.Role `json:"role"`
	PhoneNumber *string       `json:"phone_number,omitempty"` // Pointer agar bisa null
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Untuk PUT /users/me. Role diambil dari token, bukan dari body.
type UpsertProfileRequest struct {
	DisplayName string  `json:"display_name" binding:"required"`
	PhoneNumber *string `json:"phone_number"`
}
