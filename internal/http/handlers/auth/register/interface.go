package register

import (
	"context"

	"github.com/magabrotheeeer/examprep/internal/services/auth"
)

// Service описывает регистрацию пользователя.
type Service interface {
	Register(ctx context.Context, email, password, name string) (*auth.Session, error)
}
