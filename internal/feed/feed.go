package feed

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Scope определяет область подписки на коллекцию инцидентов
type Scope int

const (
	// ScopeAll - все инциденты
	ScopeAll Scope = iota
	// ScopeByOwner - инциденты конкретного пользователя
	ScopeByOwner
)

// Query - дескриптор запроса живой подписки
type Query struct {
	Scope   Scope
	OwnerID string
}

// State - состояние представления, доставляемое потребителю.
// Items всегда полный снимок, а не диф: каждая доставка замещает предыдущую.
type State struct {
	Items   []models.Incident
	Loading bool
	Err     error
}

// SnapshotSource определяет контракт для получения полного снимка коллекции
type SnapshotSource interface {
	Snapshot(ctx context.Context, q Query) ([]models.Incident, error)
}

// ChangeBus определяет контракт шины изменений: notify вызывается
// при каждом изменении коллекции, cancel снимает подписку
type ChangeBus interface {
	Subscribe(ctx context.Context, notify func()) (cancel func(), err error)
}

// Subscription - одна живая подписка на ленту инцидентов
type Subscription struct {
	query   Query
	source  SnapshotSource
	deliver func(State)
	logger  *logrus.Logger

	alive  atomic.Bool
	kick   chan struct{}
	cancel context.CancelFunc
	unsub  func()
}

// Open открывает подписку: немедленно доставляет состояние загрузки,
// подписывается на шину изменений и запрашивает первый снимок.
// Каждое уведомление шины приводит к доставке нового полного снимка.
func Open(ctx context.Context, source SnapshotSource, bus ChangeBus, q Query, deliver func(State), log *logrus.Logger) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		query:   q,
		source:  source,
		deliver: deliver,
		logger:  log,
		kick:    make(chan struct{}, 1),
		cancel:  cancel,
	}
	s.alive.Store(true)

	// Сначала состояние загрузки, потом первый снимок
	deliver(State{Loading: true})

	unsub, err := bus.Subscribe(ctx, s.Refresh)
	if err != nil {
		log.WithError(err).Error("Failed to subscribe to change bus")
		deliver(State{Err: fmt.Errorf("feed: subscribe: %w", err)})
	}
	s.unsub = unsub

	go s.run(ctx)
	s.Refresh()
	return s
}

// Refresh запрашивает повторную выборку снимка. Несколько запросов
// подряд схлопываются в один.
func (s *Subscription) Refresh() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Dispose снимает подписку. Повторный вызов - no-op, после вызова
// ни одно состояние не будет доставлено потребителю.
func (s *Subscription) Dispose() {
	if !s.alive.CompareAndSwap(true, false) {
		return
	}
	if s.unsub != nil {
		s.unsub()
	}
	s.cancel()
}

// Alive сообщает, жива ли еще подписка
func (s *Subscription) Alive() bool {
	return s.alive.Load()
}

func (s *Subscription) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
			s.refresh(ctx)
		}
	}
}

// refresh выбирает полный снимок и доставляет его потребителю.
// Проверка живости выполняется после выборки: запоздавший снимок
// по уже закрытой подписке не доставляется.
func (s *Subscription) refresh(ctx context.Context) {
	items, err := s.source.Snapshot(ctx, s.query)
	if !s.alive.Load() {
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch feed snapshot")
		s.deliver(State{Err: fmt.Errorf("feed: snapshot: %w", err)})
		return
	}
	s.deliver(State{Items: normalize(items)})
}

// normalize дедуплицирует снимок по id и сортирует его по created_at
// по убыванию. Сортировка выполняется на клиенте при каждой доставке,
// независимо от гарантий бэкенда. Сортировка стабильная: при равных
// created_at сохраняется порядок источника.
func normalize(items []models.Incident) []models.Incident {
	seen := make(map[uuid.UUID]struct{}, len(items))
	out := make([]models.Incident, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
