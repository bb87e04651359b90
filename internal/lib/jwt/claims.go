package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims - содержимое сессионного токена.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// UserID возвращает идентификатор пользователя из Subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// TTL возвращает оставшееся время жизни токена относительно now.
func (c *Claims) TTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if left := c.ExpiresAt.Sub(now); left > 0 {
		return left
	}
	return 0
}
