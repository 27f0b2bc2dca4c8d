package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/allura/allura-web/model"
)

// ErrInvalidToken is returned for tokens that fail parsing or verification
var ErrInvalidToken = errors.New("invalid token")

// Claims carried by the API bearer tokens
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies API tokens
type TokenManager struct {
	secretKey  []byte
	issuer     string
	defaultTTL time.Duration
	now        func() time.Time
}

// NewTokenManager creates a new token manager
func NewTokenManager(secretKey []byte, issuer string, defaultTTL time.Duration) *TokenManager {
	return &TokenManager{
		secretKey:  secretKey,
		issuer:     issuer,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Issue creates a signed token for the user
func (tm *TokenManager) Issue(user model.User) (string, error) {
	now := tm.now()
	claims := &Claims{
		Username: user.Username,
		Email:    user.Email,
		IsAdmin:  user.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tm.issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.defaultTTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secretKey)
	if err != nil {
		return "", fmt.Errorf("cannot sign token: %w", err)
	}
	return signed, nil
}

// Verify parses the token and checks signature, issuer and expiry
func (tm *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return tm.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tm.issuer),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
