package auth

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memUserStore - хранилище аккаунтов в памяти для тестов
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*models.User)}
}

func (s *memUserStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Email] = user
	user.CreatedAt = time.Now()
	return nil
}

func (s *memUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return nil, fmt.Errorf("user with email %s not found", email)
	}
	return user, nil
}

func newTestProvider(t *testing.T) (*PasswordProvider, *memUserStore) {
	t.Helper()
	store, _ := setupTokenStore(t, time.Hour)
	users := newMemUserStore()

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	return NewPasswordProvider(users, store, logger), users
}

func TestCreateAccount_Success(t *testing.T) {
	// Подготовка
	provider, users := newTestProvider(t)
	ctx := context.Background()

	// Действие
	principal, err := provider.CreateAccount(ctx, "new@example.com", "strong-password", "Новый Пользователь")

	// Проверки
	require.NoError(t, err)
	require.NotNil(t, principal)
	assert.Equal(t, "new@example.com", principal.Email)

	stored, err := users.GetUserByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, stored.Role)
	// Пароль не хранится открытым текстом
	assert.NotEqual(t, "strong-password", stored.PasswordHash)
}

func TestCreateAccount_EmailTaken(t *testing.T) {
	// Подготовка
	provider, _ := newTestProvider(t)
	ctx := context.Background()
	_, err := provider.CreateAccount(ctx, "dup@example.com", "strong-password", "Первый")
	require.NoError(t, err)

	// Действие
	principal, err := provider.CreateAccount(ctx, "dup@example.com", "another-password", "Второй")

	// Проверки
	require.Error(t, err)
	assert.Nil(t, principal)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestCreateAccount_WeakPassword(t *testing.T) {
	// Подготовка
	provider, _ := newTestProvider(t)

	// Действие
	principal, err := provider.CreateAccount(context.Background(), "weak@example.com", "short", "Слабый")

	// Проверки
	require.Error(t, err)
	assert.Nil(t, principal)
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestSignIn_Success_NotifiesListeners(t *testing.T) {
	// Подготовка
	provider, _ := newTestProvider(t)
	ctx := context.Background()
	_, err := provider.CreateAccount(ctx, "user@example.com", "strong-password", "Пользователь")
	require.NoError(t, err)

	var mu sync.Mutex
	var events []*models.Principal
	unsubscribe := provider.OnPrincipalChanged(func(p *models.Principal) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, p)
	})
	defer unsubscribe()

	// Действие
	principal, token, err := provider.SignIn(ctx, "user@example.com", "strong-password")

	// Проверки
	require.NoError(t, err)
	require.NotNil(t, principal)
	assert.NotEmpty(t, token)

	// Токен разрешается обратно в того же принципала
	resolved, err := provider.ResolveToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, principal, resolved)

	// Слушатель получил событие входа
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, principal.UID, events[0].UID)
}

func TestSignIn_WrongPassword(t *testing.T) {
	// Подготовка
	provider, _ := newTestProvider(t)
	ctx := context.Background()
	_, err := provider.CreateAccount(ctx, "user@example.com", "strong-password", "Пользователь")
	require.NoError(t, err)

	// Действие
	principal, token, err := provider.SignIn(ctx, "user@example.com", "wrong-password")

	// Проверки
	require.Error(t, err)
	assert.Nil(t, principal)
	assert.Empty(t, token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignIn_UnknownEmail(t *testing.T) {
	// Подготовка
	provider, _ := newTestProvider(t)

	// Действие
	_, _, err := provider.SignIn(context.Background(), "ghost@example.com", "whatever-password")

	// Проверки: неизвестный email неотличим от неверного пароля
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignOut_RevokesTokenAndNotifies(t *testing.T) {
	// Подготовка
	provider, _ := newTestProvider(t)
	ctx := context.Background()
	_, err := provider.CreateAccount(ctx, "user@example.com", "strong-password", "Пользователь")
	require.NoError(t, err)
	_, token, err := provider.SignIn(ctx, "user@example.com", "strong-password")
	require.NoError(t, err)

	var mu sync.Mutex
	var events []*models.Principal
	unsubscribe := provider.OnPrincipalChanged(func(p *models.Principal) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, p)
	})
	defer unsubscribe()

	// Действие
	require.NoError(t, provider.SignOut(ctx, token))

	// Проверки: токен больше не разрешается, слушатель получил nil
	_, err = provider.ResolveToken(ctx, token)
	assert.ErrorIs(t, err, ErrSessionExpired)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Nil(t, events[0])
}

func TestOnPrincipalChanged_Unsubscribe(t *testing.T) {
	// Подготовка
	provider, _ := newTestProvider(t)
	ctx := context.Background()
	_, err := provider.CreateAccount(ctx, "user@example.com", "strong-password", "Пользователь")
	require.NoError(t, err)

	var mu sync.Mutex
	count := 0
	unsubscribe := provider.OnPrincipalChanged(func(p *models.Principal) {
		mu.Lock()
		defer mu.Unlock()
		count++
	})

	_, _, err = provider.SignIn(ctx, "user@example.com", "strong-password")
	require.NoError(t, err)

	// Действие: после снятия слушатель событий не получает
	unsubscribe()
	unsubscribe() // Повторный вызов безопасен
	_, _, err = provider.SignIn(ctx, "user@example.com", "strong-password")
	require.NoError(t, err)

	// Проверки
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}
