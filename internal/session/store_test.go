package session

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEventSource фиксирует зарегистрированного слушателя и позволяет
// вручную прогонять события провайдера
type fakeEventSource struct {
	listener func(*models.Principal)
	unsubs   int
}

func (f *fakeEventSource) OnPrincipalChanged(fn func(*models.Principal)) func() {
	f.listener = fn
	return func() { f.unsubs++ }
}

func (f *fakeEventSource) emit(p *models.Principal) {
	f.listener(p)
}

// fakeProfiles - источник профилей с управляемым ответом
type fakeProfiles struct {
	user *models.User
	err  error
}

func (f *fakeProfiles) GetUserByID(ctx context.Context, uid string) (*models.User, error) {
	return f.user, f.err
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах
	return logger
}

func TestStore_ResolvingUntilFirstEvent(t *testing.T) {
	// Подготовка
	source := &fakeEventSource{}
	store := NewStore(source, &fakeProfiles{}, testLogger())
	defer store.Close()

	// Проверки: до первого события состояние неизвестно
	assert.True(t, store.Resolving())
	_, ok := store.Current()
	assert.False(t, ok)

	// Действие: первое событие - даже "нет пользователя" - завершает разрешение
	source.emit(nil)

	// Проверки: шлюз одноразовый
	assert.False(t, store.Resolving())
	_, ok = store.Current()
	assert.False(t, ok)
}

func TestStore_SignInResolvesRoleFromProfile(t *testing.T) {
	// Подготовка
	uid := uuid.New()
	source := &fakeEventSource{}
	profiles := &fakeProfiles{
		user: &models.User{
			ID:   uid,
			Name: "Администратор",
			Role: models.RoleAdmin,
		},
	}
	store := NewStore(source, profiles, testLogger())
	defer store.Close()

	// Действие
	source.emit(&models.Principal{UID: uid.String(), Email: "admin@example.com"})

	// Проверки
	sess, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, uid.String(), sess.UID)
	assert.Equal(t, "admin@example.com", sess.Email)
	assert.Equal(t, "Администратор", sess.Name)
	assert.Equal(t, models.RoleAdmin, sess.Role)
	assert.True(t, store.IsAdmin())
}

func TestStore_ProfileFetchFailureFallsOpen(t *testing.T) {
	// Подготовка
	source := &fakeEventSource{}
	profiles := &fakeProfiles{err: fmt.Errorf("бд недоступна")}
	store := NewStore(source, profiles, testLogger())
	defer store.Close()

	// Действие: сбой загрузки профиля не блокирует вход
	source.emit(&models.Principal{UID: "user-1", Email: "user@example.com"})

	// Проверки: сессия собрана из полей провайдера с ролью по умолчанию
	sess, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, "user-1", sess.UID)
	assert.Equal(t, models.RoleUser, sess.Role)
	assert.Empty(t, sess.Name)
	assert.False(t, store.IsAdmin())
	assert.False(t, store.Resolving())
}

func TestStore_SignOutClearsSession(t *testing.T) {
	// Подготовка
	source := &fakeEventSource{}
	store := NewStore(source, &fakeProfiles{}, testLogger())
	defer store.Close()
	source.emit(&models.Principal{UID: "user-1", Email: "user@example.com"})
	_, ok := store.Current()
	require.True(t, ok)

	// Действие
	source.emit(nil)

	// Проверки
	_, ok = store.Current()
	assert.False(t, ok)
	assert.False(t, store.IsAdmin())
}

func TestStore_Resolve_UsesProfileRole(t *testing.T) {
	// Подготовка
	uid := uuid.New()
	profiles := &fakeProfiles{
		user: &models.User{
			ID:   uid,
			Name: "Модератор",
			Role: models.RoleAdmin,
		},
	}
	store := NewStore(&fakeEventSource{}, profiles, testLogger())
	defer store.Close()

	// Действие: разрешением пользуются и слушатель провайдера,
	// и HTTP-запросы - результат обязан совпадать
	sess := store.Resolve(context.Background(), &models.Principal{
		UID:   uid.String(),
		Email: "mod@example.com",
	})

	// Проверки
	assert.Equal(t, uid.String(), sess.UID)
	assert.Equal(t, "Модератор", sess.Name)
	assert.Equal(t, models.RoleAdmin, sess.Role)
}

func TestStore_Resolve_FailsOpenOnProfileError(t *testing.T) {
	// Подготовка
	profiles := &fakeProfiles{err: fmt.Errorf("бд недоступна")}
	store := NewStore(&fakeEventSource{}, profiles, testLogger())
	defer store.Close()

	// Действие
	sess := store.Resolve(context.Background(), &models.Principal{
		UID:   "user-1",
		Email: "user@example.com",
	})

	// Проверки: роль по умолчанию, вход не заблокирован
	assert.Equal(t, "user-1", sess.UID)
	assert.Equal(t, models.RoleUser, sess.Role)
	assert.Empty(t, sess.Name)
}

func TestStore_CloseDeregistersListenerOnce(t *testing.T) {
	// Подготовка
	source := &fakeEventSource{}
	store := NewStore(source, &fakeProfiles{}, testLogger())

	// Действие
	store.Close()
	store.Close()

	// Проверки
	assert.Equal(t, 1, source.unsubs)
}
