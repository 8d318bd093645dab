package auth

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"

	"campus/internal/store"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// RoleLookup resolves the role of a user that carries no role claim.
type RoleLookup func(ctx context.Context, uid string) (string, error)

// FirebaseVerifier verifies Firebase ID tokens. The role comes from the "role" custom
// claim, then an "admin: true" claim, then the Roles lookup.
type FirebaseVerifier struct {
	tokens idTokenVerifier
	Roles  RoleLookup
}

// NewFirebaseVerifier opens the Auth client of a Firebase app.
func NewFirebaseVerifier(ctx context.Context, app *firebase.App, roles RoleLookup) (*FirebaseVerifier, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &FirebaseVerifier{tokens: client, Roles: roles}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, raw string) (Identity, error) {
	tok, err := v.tokens.VerifyIDToken(ctx, raw)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{UID: tok.UID}
	id.Name, _ = tok.Claims["name"].(string)
	id.Email, _ = tok.Claims["email"].(string)

	if role, ok := tok.Claims["role"].(string); ok && role != "" {
		id.Role = role
		return id, nil
	}
	if admin, ok := tok.Claims["admin"].(bool); ok && admin {
		id.Role = RoleAdmin
		return id, nil
	}
	if v.Roles != nil {
		role, err := v.Roles(ctx, tok.UID)
		if err != nil {
			return Identity{}, fmt.Errorf("resolve role for %s: %w", tok.UID, err)
		}
		id.Role = role
	}
	if id.Role == "" {
		id.Role = RoleStudent
	}
	return id, nil
}

// StoreRoles reads the role from the users/{uid} document. A missing profile yields no role.
func StoreRoles(s store.Store) RoleLookup {
	return func(ctx context.Context, uid string) (string, error) {
		doc, err := s.Get(ctx, "users", uid)
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		role, _ := doc.Fields["role"].(string)
		return role, nil
	}
}
