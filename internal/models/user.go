package models

import "github.com/golang-jwt/jwt/v5"

// Subscription tiers.
const (
	TierFree       = "free"
	TierBusiness   = "business"
	TierEnterprise = "enterprise"
)

// Roles handed over by the auth subsystem.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the already-authenticated caller the auth collaborator hands us.
type Identity struct {
	AccountID string
	Tier      string
	Role      string
}

// Claims defines the structure of the JWT claims minted by the auth subsystem.
type Claims struct {
	AccountID string `json:"account_id"`
	Tier      string `json:"tier"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}
