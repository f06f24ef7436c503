package users

import (
	"time"

	"github.com/fincontrol/fincontrol/internal/rbac"
)

// User is an account that can sign in and act in approval workflows. The
// role is assigned at creation and drives both route access and which
// workflow steps the user may decide.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         rbac.Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateInput carries the fields needed to provision an account.
type CreateInput struct {
	Name     string
	Email    string
	Password string
	Role     rbac.Role
}
