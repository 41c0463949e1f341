package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
	RoleFraud  Role = "fraud"
)

// ValidRole reports whether r is one of the known marketplace roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleVendor, RoleAdmin, RoleFraud:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountBanned AccountStatus = "banned"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	Email     string        `json:"email" bun:"email,pk"`
	Name      string        `json:"name" bun:"name"`
	Image     string        `json:"image" bun:"image"`
	Role      Role          `json:"role" bun:"role"`
	Status    AccountStatus `json:"status" bun:"status"`
	CreatedAt time.Time     `json:"createdAt" bun:"created_at"`
	LastLogin time.Time     `json:"lastLogin" bun:"last_login"`
}

// UpsertUserRequest is the self-service profile payload. Role and status are
// never taken from the client.
type UpsertUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Image string `json:"image"`
}

type SetRoleRequest struct {
	Role Role `json:"role" binding:"required"`
}

// TokenExchangeRequest carries the identity-provider assertion presented at
// login. The assertion is a JWT signed by the external identity provider; the
// service never mints a token for an unverified email.
type TokenExchangeRequest struct {
	Assertion string `json:"assertion" binding:"required"`
}

type TokenExchangeResponse struct {
	AccessToken string `json:"accessToken"`
	User        *User  `json:"user"`
}
