package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Identity is the already-authenticated caller presented at the handshake.
// Credentials are checked upstream; this service only carries the identity
// through to presence tracking and logs.
type Identity struct {
	UserID   string
	UserType string
	UserName string
}

// TokenManager validates handshake JWTs issued by the upstream application.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
}

// Enabled reports whether token validation is configured.
func (tm *TokenManager) Enabled() bool {
	return tm != nil && len(tm.secret) > 0
}

// Claims describes the JWT payload.
type Claims struct {
	SubjectID string `json:"sub"`
	UserType  string `json:"userType"`
	UserName  string `json:"name"`
	jwt.RegisteredClaims
}

// GenerateToken builds and signs a JWT for the identity. Used by tooling
// and tests; production tokens come from the upstream application.
func (tm *TokenManager) GenerateToken(identity Identity) (string, time.Time, error) {
	expiresAt := time.Now().Add(tm.ttl)
	claims := &Claims{
		SubjectID: identity.UserID,
		UserType:  identity.UserType,
		UserName:  identity.UserName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates the token and returns the embedded identity.
func (tm *TokenManager) ParseToken(tokenStr string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return Identity{}, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, errors.New("invalid token claims")
	}
	return Identity{
		UserID:   claims.SubjectID,
		UserType: claims.UserType,
		UserName: claims.UserName,
	}, nil
}
