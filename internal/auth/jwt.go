package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents JWT payload.
type Claims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs an HS256 token for subject. Used by local tooling and tests; production
// identities come from Firebase.
func Issue(subject, role, name, issuer, key string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		Subject: subject,
		Role:    role,
		Name:    name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Parse validates a token and returns claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	return *claims, nil
}

// JWTVerifier accepts HS256 tokens minted by Issue.
type JWTVerifier struct {
	Key    string
	Issuer string
}

// NewJWTVerifier creates a verifier for the given signing key and issuer.
func NewJWTVerifier(key, issuer string) *JWTVerifier {
	return &JWTVerifier{Key: key, Issuer: issuer}
}

func (v *JWTVerifier) Verify(_ context.Context, raw string) (Identity, error) {
	claims, err := Parse(raw, v.Key, v.Issuer)
	if err != nil {
		return Identity{}, err
	}
	uid := claims.Subject
	if uid == "" {
		uid = claims.RegisteredClaims.Subject
	}
	if uid == "" {
		return Identity{}, errors.New("token has no subject")
	}
	return Identity{UID: uid, Role: claims.Role, Name: claims.Name, Email: claims.Email}, nil
}
