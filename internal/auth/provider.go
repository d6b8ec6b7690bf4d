package auth

import (
	"context"
	"errors"

	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
)

var (
	// ErrInvalidCredentials - провайдер отверг email или пароль
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrEmailTaken - аккаунт с таким email уже существует
	ErrEmailTaken = errors.New("auth: email already registered")
	// ErrSessionExpired - токен сессии не найден или истек
	ErrSessionExpired = errors.New("auth: session expired")
	// ErrWeakPassword - пароль короче минимальной длины
	ErrWeakPassword = errors.New("auth: password must be at least 8 characters")
)

// Provider определяет границу провайдера аутентификации.
// Потребители не знают о его внутреннем устройстве.
type Provider interface {
	CreateAccount(ctx context.Context, email, password, name string) (*models.Principal, error)
	SignIn(ctx context.Context, email, password string) (*models.Principal, string, error)
	SignOut(ctx context.Context, token string) error
	ResolveToken(ctx context.Context, token string) (*models.Principal, error)
	OnPrincipalChanged(fn func(*models.Principal)) (unsubscribe func())
}
