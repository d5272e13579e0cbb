package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the lifetime of an issued access token.
const TokenTTL = 24 * time.Hour

var (
	ErrMissingSecret   = errors.New("token: signing secret not configured")
	ErrInvalidToken    = errors.New("token: invalid")
	ErrExpiredToken    = errors.New("token: expired")
	ErrMalformedClaims = errors.New("token: missing user id claim")
)

// Claims carries the user id under "id" alongside the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
}

// TokenService issues and verifies HS256 bearer tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: TokenTTL, now: time.Now}
}

// Issue signs a token for userID that expires after TokenTTL.
func (s *TokenService) Issue(userID string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: userID,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the user id carried by a valid token.
func (s *TokenService) Verify(tokenString string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.UserID == "" {
		return "", ErrMalformedClaims
	}
	return claims.UserID, nil
}
