package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// UserStore определяет контракт хранилища аккаунтов для провайдера
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// PasswordProvider - провайдер аутентификации по email и паролю.
// Пароли хранятся bcrypt-хэшами в бд, токены сессий - в Redis.
// События смены принципала рассылаются зарегистрированным слушателям.
type PasswordProvider struct {
	users  UserStore
	tokens *TokenStore
	logger *logrus.Logger

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(*models.Principal)
}

func NewPasswordProvider(users UserStore, tokens *TokenStore, log *logrus.Logger) *PasswordProvider {
	return &PasswordProvider{
		users:     users,
		tokens:    tokens,
		logger:    log,
		listeners: make(map[int]func(*models.Principal)),
	}
}

// CreateAccount регистрирует новый аккаунт с ролью user
func (p *PasswordProvider) CreateAccount(ctx context.Context, email, password, name string) (*models.Principal, error) {
	log := p.logger.WithFields(logrus.Fields{
		"provider": "password",
		"method":   "CreateAccount",
		"email":    email,
	})

	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	if existing, err := p.users.GetUserByEmail(ctx, email); err == nil && existing != nil {
		log.Warn("Attempted to register an already existing email")
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	}
	if err := p.users.CreateUser(ctx, user); err != nil {
		log.WithError(err).Error("Failed to create user account")
		return nil, fmt.Errorf("auth: create account: %w", err)
	}

	log.WithField("uid", user.ID).Info("Account created")
	return &models.Principal{UID: user.ID.String(), Email: user.Email}, nil
}

// SignIn проверяет учетные данные и открывает сессию.
// Возвращает принципала и непрозрачный токен сессии.
func (p *PasswordProvider) SignIn(ctx context.Context, email, password string) (*models.Principal, string, error) {
	log := p.logger.WithFields(logrus.Fields{
		"provider": "password",
		"method":   "SignIn",
		"email":    email,
	})

	user, err := p.users.GetUserByEmail(ctx, email)
	if err != nil || user == nil {
		log.Warn("Sign-in for unknown email")
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn("Sign-in with wrong password")
		return nil, "", ErrInvalidCredentials
	}

	principal := &models.Principal{UID: user.ID.String(), Email: user.Email}
	token := uuid.NewString()
	if err := p.tokens.Save(ctx, token, principal); err != nil {
		log.WithError(err).Error("Failed to save session token")
		return nil, "", fmt.Errorf("auth: save session: %w", err)
	}

	log.WithField("uid", principal.UID).Info("User signed in")
	p.notify(principal)
	return principal, token, nil
}

// SignOut закрывает сессию по токену
func (p *PasswordProvider) SignOut(ctx context.Context, token string) error {
	if err := p.tokens.Revoke(ctx, token); err != nil {
		return fmt.Errorf("auth: revoke session: %w", err)
	}
	p.logger.WithField("provider", "password").Info("User signed out")
	p.notify(nil)
	return nil
}

// ResolveToken возвращает принципала по токену сессии
func (p *PasswordProvider) ResolveToken(ctx context.Context, token string) (*models.Principal, error) {
	principal, err := p.tokens.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("auth: resolve token: %w", err)
	}
	return principal, nil
}

// OnPrincipalChanged регистрирует слушателя событий смены принципала.
// Возвращенная функция снимает регистрацию; повторный вызов безопасен.
func (p *PasswordProvider) OnPrincipalChanged(fn func(*models.Principal)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *PasswordProvider) notify(principal *models.Principal) {
	p.mu.Lock()
	fns := make([]func(*models.Principal), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(principal)
	}
}
