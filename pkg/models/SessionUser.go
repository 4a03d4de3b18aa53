package models

import (
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

/*
SessionUser is what lives inside the encrypted session cookie. Expiry is a
fixed TTL from CreatedAt with no sliding renewal, so every verification
re-checks the age server-side.
*/
type SessionUser struct {
	UserID     string
	Role       string
	CreatedAt  time.Time
	IsLoggedIn bool
}
