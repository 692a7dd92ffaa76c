// Package auth issues and validates signed access tokens
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the validated content of an access token
type Claims struct {
	UserID    int
	SessionID int
	ExpiresAt time.Time
}

// accessClaims is the token payload: sub carries the user id, sid the session id
type accessClaims struct {
	SessionID int `json:"sid"`
	jwt.RegisteredClaims
}

// TokenGenerator handles JWT token generation and validation
type TokenGenerator struct {
	secret []byte
	method jwt.SigningMethod
}

// NewTokenGenerator creates a new token generator for an HMAC algorithm (HS256, HS384 or HS512)
func NewTokenGenerator(secret, algorithm string) (*TokenGenerator, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}

	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported token algorithm: %s", algorithm)
	}

	return &TokenGenerator{
		secret: []byte(secret),
		method: method,
	}, nil
}

// Generate creates an access token for a user session that expires at expiresAt
func (tg *TokenGenerator) Generate(userID, sessionID int, expiresAt time.Time) (string, error) {
	claims := accessClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(tg.method, claims)
	tokenString, err := token.SignedString(tg.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// Validate checks the signature, algorithm and expiry of a token and returns its claims
func (tg *TokenGenerator) Validate(tokenString string) (*Claims, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return tg.secret, nil
	},
		jwt.WithValidMethods([]string{tg.method.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject in token: %w", err)
	}

	if claims.SessionID <= 0 {
		return nil, fmt.Errorf("session id not found in token")
	}

	return &Claims{
		UserID:    userID,
		SessionID: claims.SessionID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
