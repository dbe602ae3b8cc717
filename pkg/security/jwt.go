package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenInvalid = errors.New("authorization token invalid")

// Claims carried by an auth token
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Tokens issues and parses HS256 auth tokens
type Tokens struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{
		Secret: []byte(secret),
		TTL:    ttl,
		Now:    time.Now,
	}
}

func (t *Tokens) Issue(userID, email string) (string, error) {
	now := t.Now()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.TTL)),
		},
	})

	return tok.SignedString(t.Secret)
}

func (t *Tokens) Parse(raw string) (*Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(raw, &claims, func(_ *jwt.Token) (any, error) {
		return t.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrTokenInvalid, err)
	}

	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return &claims, nil
}
