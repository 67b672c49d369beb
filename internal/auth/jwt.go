// Package auth verifies the signed tokens clients present when opening a
// connection and issues them for trusted callers such as tests and tooling.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const Issuer = "roomchat"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoUserID     = errors.New("no user id")
)

// Claims carries the identity inside the token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTAuthenticator resolves HS256 tokens to identities.
type JWTAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret []byte) *JWTAuthenticator {
	return &JWTAuthenticator{secret: secret}
}

// GenerateToken signs a token for userID that expires after ttl.
func (a *JWTAuthenticator) GenerateToken(userID domain.UserID, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: string(userID),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
	})
	return token.SignedString(a.secret)
}

// Authenticate validates signature, algorithm and expiry, and returns the
// identity the token carries.
func (a *JWTAuthenticator) Authenticate(_ context.Context, tokenString string) (domain.UserID, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.UserID == "" {
		return "", ErrNoUserID
	}
	return domain.UserID(claims.UserID), nil
}
