package login

import (
	"context"

	"github.com/magabrotheeeer/examprep/internal/services/auth"
)

// Service описывает вход пользователя по e-mail и паролю.
type Service interface {
	Login(ctx context.Context, email, password string) (*auth.Session, error)
}
