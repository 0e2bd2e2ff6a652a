// Package session mints and validates the signed artifacts that prove a
// bearer is a given user until an expiry.
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed, forged and expired artifacts alike.
	ErrInvalidToken = errors.New("invalid session token")

	errInvalidSigningMethod = errors.New("invalid signing method")
)

// Artifact is a minted session: the token handed to the client and when it expires.
type Artifact struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Boundary mints and validates session artifacts.
type Boundary interface {
	Mint(userID string) (Artifact, error)
	Validate(token string) (string, error)
}

// JWTBoundary issues HS256 tokens whose subject is the user id.
type JWTBoundary struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTBoundary constructs a JWTBoundary.
func NewJWTBoundary(secret string, ttl time.Duration) (*JWTBoundary, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &JWTBoundary{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (b *JWTBoundary) Mint(userID string) (Artifact, error) {
	if strings.TrimSpace(userID) == "" {
		return Artifact{}, errors.New("user id is required")
	}

	now := b.now()
	expiresAt := now.Add(b.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Token: token, ExpiresAt: expiresAt.Truncate(time.Second)}, nil
}

// Validate returns the user id carried by token, or ErrInvalidToken.
func (b *JWTBoundary) Validate(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidSigningMethod
		}
		return b.secret, nil
	}, jwt.WithTimeFunc(b.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
