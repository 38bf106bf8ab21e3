package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for member tokens that fail to parse or
// verify
var ErrInvalidToken = errors.New("invalid token")

// MemberClaims are the claims of a member bearer token. The subject is
// the member id.
type MemberClaims struct {
	jwt.RegisteredClaims
}

// MakeMemberToken signs an HS256 token for memberID valid for ttl
func MakeMemberToken(memberID, secret string, ttl time.Duration) (string, error) {
	return makeMemberToken(memberID, secret, time.Now(), ttl)
}

func makeMemberToken(memberID, secret string, now time.Time, ttl time.Duration) (string, error) {
	if memberID == "" {
		return "", errors.New("member id is required")
	}
	if secret == "" {
		return "", errors.New("signing secret is required")
	}
	claims := MemberClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   memberID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign member token: %w", err)
	}
	return signed, nil
}

// ParseMemberToken verifies raw and returns the member id it was issued
// for. Only HMAC-signed tokens are accepted.
func ParseMemberToken(raw, secret string) (string, error) {
	claims := &MemberClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
