package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"minerva-scheduler/internal/models"
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewToken issues a signed session token for the user. Credential checking
// happens upstream; this only encodes an already-authenticated identity.
func NewToken(secret string, user models.UserContext, ttl time.Duration) (string, error) {
	const op = "auth.NewToken"

	claims := Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// ParseToken validates a session token and recovers the user context.
func ParseToken(secret, raw string) (models.UserContext, error) {
	const op = "auth.ParseToken"

	var claims Claims

	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithLeeway(5*time.Second))
	if err != nil {
		return models.UserContext{}, fmt.Errorf("%s: %w", op, err)
	}

	if claims.Subject == "" {
		return models.UserContext{}, fmt.Errorf("%s: token has no subject", op)
	}

	return models.UserContext{
		UID:  claims.Subject,
		Role: models.UserRole(claims.Role),
	}, nil
}
