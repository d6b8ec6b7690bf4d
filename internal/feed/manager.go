package feed

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Manager владеет жизненным циклом подписок: на каждого логического
// потребителя приходится не более одной живой подписки в любой момент
type Manager struct {
	source SnapshotSource
	bus    ChangeBus
	logger *logrus.Logger

	mu   sync.Mutex
	subs map[string]*Subscription
}

func NewManager(source SnapshotSource, bus ChangeBus, log *logrus.Logger) *Manager {
	return &Manager{
		source: source,
		bus:    bus,
		logger: log,
		subs:   make(map[string]*Subscription),
	}
}

// Watch открывает подписку для потребителя. Если у потребителя уже есть
// живая подписка (например, сменился дескриптор запроса), старая
// снимается до открытия новой - они никогда не работают одновременно.
func (m *Manager) Watch(ctx context.Context, consumerID string, q Query, deliver func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.subs[consumerID]; ok {
		old.Dispose()
	}
	m.subs[consumerID] = Open(ctx, m.source, m.bus, q, deliver, m.logger)
}

// Refresh принудительно запрашивает свежий снимок для потребителя
func (m *Manager) Refresh(consumerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.subs[consumerID]; ok {
		s.Refresh()
	}
}

// Dispose снимает подписку потребителя. Идемпотентен.
func (m *Manager) Dispose(consumerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.subs[consumerID]; ok {
		s.Dispose()
		delete(m.subs, consumerID)
	}
}

// Close снимает все подписки
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.subs {
		s.Dispose()
		delete(m.subs, id)
	}
}
