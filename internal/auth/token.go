package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/ticketapp/internal/domain"
)

// TokenManager issues session tokens and checks restored ones.
type TokenManager interface {
	Issue(user domain.User) (string, error)
	Validate(token string, user domain.User) error
}

const opaquePrefix = "token_"

// OpaqueTokens issues random "token_<hex>" strings. Any non-empty token is
// accepted on restore.
type OpaqueTokens struct{}

func (OpaqueTokens) Issue(domain.User) (string, error) {
	return opaquePrefix + strings.ReplaceAll(uuid.NewString(), "-", ""), nil
}

func (OpaqueTokens) Validate(token string, _ domain.User) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("empty token")
	}
	return nil
}

// JWTTokens issues HS256 tokens bound to the user id.
type JWTTokens struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTTokens builds a new manager.
func NewJWTTokens(secret string, ttlMinutes int) *JWTTokens {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &JWTTokens{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
}

// Claims describes JWT payload.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (tm *JWTTokens) Issue(user domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Validate rejects tokens that are malformed, expired, or issued for
// another user.
func (tm *JWTTokens) Validate(tokenStr string, user domain.User) error {
	claims, err := tm.ParseToken(tokenStr)
	if err != nil {
		return err
	}
	if claims.Subject != user.ID {
		return errors.New("token subject mismatch")
	}
	return nil
}

// ParseToken validates and returns claims.
func (tm *JWTTokens) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
