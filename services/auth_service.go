package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

// AuthService issues and validates the session tokens the mini app sends as a
// Bearer header. The subject claim is the internal user id.
type AuthService struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewAuthService(secret string, ttl time.Duration, clock clockwork.Clock) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{secret: []byte(secret), ttl: ttl, clock: clock}
}

type sessionClaims struct {
	TelegramID int64 `json:"tg,omitempty"`
	jwt.RegisteredClaims
}

func (a *AuthService) Issue(userID string, telegramID int64) (string, error) {
	now := a.clock.Now()
	claims := sessionClaims{
		TelegramID: telegramID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ResolveUserID validates the token and returns its subject.
func (a *AuthService) ResolveUserID(token string) (string, error) {
	if token == "" {
		return "", newError(KindUnauthorized, "missing session token")
	}
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.clock.Now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", newError(KindUnauthorized, "session expired")
		}
		return "", newError(KindUnauthorized, "invalid session token")
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", newError(KindUnauthorized, "invalid session token")
	}
	return claims.Subject, nil
}
