package auth

import "context"

const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// Identity is the verified caller of a request.
type Identity struct {
	UID   string `json:"uid"`
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// IsAdmin reports whether the verified role grants admin access.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// DisplayName prefers the name claim, then the email, then the UID.
func (i Identity) DisplayName() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.Email != "":
		return i.Email
	}
	return i.UID
}

// Verifier turns a raw bearer token into a verified Identity.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Identity, error)
}
