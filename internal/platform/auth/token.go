package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	jwt.RegisteredClaims
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles"`
}

// TokenIssuer signs HS256 access tokens for successful logins.
type TokenIssuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(key []byte, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{key: key, issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue returns a token whose subject is "<role>:<id>".
func (t *TokenIssuer) Issue(role Role, userID int64, tenantID string) (string, error) {
	if len(t.key) == 0 {
		return "", errors.New("token signing key not configured")
	}
	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   Subject(role, userID),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		TenantID: tenantID,
		Roles:    []string{string(role)},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func Subject(role Role, id int64) string {
	return string(role) + ":" + strconv.FormatInt(id, 10)
}

// ParseSubject splits a "<role>:<id>" subject.
func ParseSubject(sub string) (Role, int64, bool) {
	role, rawID, found := strings.Cut(sub, ":")
	if !found {
		return "", 0, false
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	switch Role(role) {
	case RolePatient, RoleDoctor, RoleAdmin:
		return Role(role), id, true
	}
	return "", 0, false
}
