package session

import (
	"context"
	"sync"

	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
	"github.com/sirupsen/logrus"
)

// ProfileSource определяет контракт получения профиля пользователя
// для разрешения роли
type ProfileSource interface {
	GetUserByID(ctx context.Context, uid string) (*models.User, error)
}

// EventSource определяет контракт провайдера аутентификации,
// необходимый хранилищу сессий
type EventSource interface {
	OnPrincipalChanged(fn func(*models.Principal)) (unsubscribe func())
}

// Store хранит текущую сессию, производную от событий провайдера
// аутентификации. Регистрирует ровно один слушатель на все время жизни.
type Store struct {
	profiles ProfileSource
	logger   *logrus.Logger

	mu        sync.RWMutex
	current   *models.Session
	resolving bool

	unsubOnce sync.Once
	unsub     func()
}

// NewStore создает хранилище и подписывается на события провайдера.
// До первого события Resolving() возвращает true.
func NewStore(provider EventSource, profiles ProfileSource, log *logrus.Logger) *Store {
	s := &Store{
		profiles:  profiles,
		logger:    log,
		resolving: true,
	}
	s.unsub = provider.OnPrincipalChanged(s.handleEvent)
	return s
}

// Current возвращает текущую сессию, если она есть
func (s *Store) Current() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return models.Session{}, false
	}
	return *s.current, true
}

// Resolving сообщает, обработано ли хотя бы одно событие провайдера.
// Одноразовый шлюз: после первого события навсегда false.
func (s *Store) Resolving() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolving
}

// IsAdmin сообщает, имеет ли текущая сессия роль администратора
func (s *Store) IsAdmin() bool {
	sess, ok := s.Current()
	return ok && sess.IsAdmin()
}

// Close снимает слушатель провайдера. Идемпотентен.
func (s *Store) Close() {
	s.unsubOnce.Do(func() {
		if s.unsub != nil {
			s.unsub()
		}
	})
}

// Resolve строит сессию из принципала: подтягивает профиль за ролью.
// Единственная точка разрешения - ею пользуются и слушатель провайдера,
// и HTTP-middleware.
func (s *Store) Resolve(ctx context.Context, p *models.Principal) models.Session {
	sess := models.Session{
		UID:   p.UID,
		Email: p.Email,
		Role:  models.RoleUser,
	}

	user, err := s.profiles.GetUserByID(ctx, p.UID)
	switch {
	case err != nil:
		// Ошибка загрузки профиля не блокирует вход: сессия собирается
		// из полей провайдера с ролью по умолчанию
		s.logger.WithError(err).WithField("uid", p.UID).Warn("Failed to fetch user profile, falling back to provider fields")
	case user != nil:
		sess.Name = user.Name
		if user.Role != "" {
			sess.Role = user.Role
		}
	}

	return sess
}

// handleEvent обрабатывает событие провайдера: при наличии принципала
// разрешает сессию, при отсутствии сбрасывает ее
func (s *Store) handleEvent(p *models.Principal) {
	if p == nil {
		s.set(nil)
		return
	}

	sess := s.Resolve(context.Background(), p)
	s.set(&sess)
}

func (s *Store) set(sess *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sess
	s.resolving = false
}
