// Package auth issues the credentials that mark a connection as a room's owner.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid owner token")

// OwnerTokens signs HS256 tokens scoped to a single room code.
type OwnerTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewOwnerTokens(secret string, ttl time.Duration) *OwnerTokens {
	return &OwnerTokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed token for roomCode and its unique ID.
func (t *OwnerTokens) Issue(roomCode string) (string, string, error) {
	now := t.now()
	id := uuid.NewString()
	claims := jwt.RegisteredClaims{
		Subject:  roomCode,
		ID:       id,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if t.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign owner token: %w", err)
	}
	return signed, id, nil
}

// Verify checks signature, expiry and room scope, returning the token ID.
func (t *OwnerTokens) Verify(token, roomCode string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithSubject(roomCode),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.ID == "" {
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}
