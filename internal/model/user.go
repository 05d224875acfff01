package model

import "time"

// Roles recognised by the authorization middleware.
const (
	RoleCustomer = "Customer"
	RoleSales    = "Sales"
	RoleAdmin    = "Admin"
)

// ValidRole reports whether r is one of the three roles.
func ValidRole(r string) bool {
	switch r {
	case RoleCustomer, RoleSales, RoleAdmin:
		return true
	}
	return false
}

// User represents an application user record as stored in the
// `users` table. The password and refresh token hashes never leave
// the service layer.
//
// Fields:
//  ID               – primary key identifier of the user.
//  Username         – unique display name.
//  Email            – unique email address.
//  PasswordHash     – bcrypt hashed password.
//  Role             – Customer, Sales or Admin.
//  ProfileImage     – stored file name of the profile picture.
//  RefreshTokenHash – SHA‑256 of the live refresh token, empty after logout.
//  RefreshExpiresAt – expiry of that refresh token.
type User struct {
	ID               uint64     `json:"id"`                     // users.id
	Username         string     `json:"username"`               // users.username
	Email            string     `json:"email"`                  // users.email
	PasswordHash     string     `json:"-"`                      // users.password_hash
	Role             string     `json:"role"`                   // users.role
	ProfileImage     string     `json:"profileImage,omitempty"` // users.profile_image
	RefreshTokenHash string     `json:"-"`                      // users.refresh_token_hash
	RefreshExpiresAt *time.Time `json:"-"`                      // users.refresh_expires_at
	CreatedAt        time.Time  `json:"createdAt"`              // users.created_at
	UpdatedAt        time.Time  `json:"updatedAt"`              // users.updated_at
}
