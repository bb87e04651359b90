// Package password хеширует пароли пользователей bcrypt-ом и сверяет их при входе.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength - bcrypt не учитывает байты после 72-го.
const MaxLength = 72

var (
	// ErrTooLong возвращается для паролей длиннее MaxLength байт.
	ErrTooLong = errors.New("password is longer than 72 bytes")
	// ErrMismatch означает, что пароль не соответствует хешу.
	ErrMismatch = errors.New("password does not match")
)

// GetHash возвращает bcrypt-хеш пароля.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	if len(password) > MaxLength {
		return "", fmt.Errorf("%s: %w", op, ErrTooLong)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// CompareHash сверяет хеш с введённым паролем.
// Несовпадение возвращается как ErrMismatch, прочие ошибки (битый хеш) - как есть.
func CompareHash(hash, password string) error {
	const op = "password.CompareHash"
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return fmt.Errorf("%s: %w", op, ErrMismatch)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
