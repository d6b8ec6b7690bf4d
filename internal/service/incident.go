package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Build-Your-Web-2025/SafeCity/internal/config"
	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
	"github.com/Build-Your-Web-2025/SafeCity/internal/webhook"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IncidentRepository определяет контракт для работы с бд инцидентов
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	GetStats(ctx context.Context) (*models.Stats, error)
	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// ChangePublisher уведомляет живые ленты об изменении коллекции
type ChangePublisher interface {
	NotifyChanged(ctx context.Context) error
}

// IncidentService определяет контракт шлюза мутаций и чтения инцидентов.
// Привилегированные операции (VerifyIncident, DeleteIncident) сами роли
// не проверяют: допуск решается на границе HTTP.
type IncidentService interface {
	SubmitIncident(ctx context.Context, draft models.IncidentDraft) (uuid.UUID, error)
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	VerifyIncident(ctx context.Context, id uuid.UUID) error
	DeleteIncident(ctx context.Context, id uuid.UUID) error
	GetStats(ctx context.Context) (*models.Stats, error)
}

type incidentService struct {
	repo     IncidentRepository
	logger   *logrus.Logger
	cfg      *config.Config
	webhooks webhook.Publisher
	changes  ChangePublisher
	validate *validator.Validate
}

func NewIncidentService(repo IncidentRepository, logger *logrus.Logger, cfg *config.Config, webhooks webhook.Publisher, changes ChangePublisher) IncidentService {
	return &incidentService{
		repo:     repo,
		logger:   logger,
		cfg:      cfg,
		webhooks: webhooks,
		changes:  changes,
		validate: validator.New(),
	}
}

// SubmitIncident валидирует черновик, подставляет значения по умолчанию
// и записывает новый документ. Возвращает присвоенный id.
// Локальное состояние представлений не трогает: мутация становится
// видимой только через живую ленту.
func (s *incidentService) SubmitIncident(ctx context.Context, draft models.IncidentDraft) (uuid.UUID, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "SubmitIncident",
		"title":   draft.Title,
	})
	log.Info("Attempting to submit a new incident")

	if err := s.validate.Struct(draft); err != nil {
		log.WithError(err).Warn("Incident draft failed validation")
		return uuid.Nil, &ValidationError{Err: err}
	}

	// Значения по умолчанию: без сессии репортер анонимный
	reporterID := draft.ReporterID
	if reporterID == "" {
		reporterID = models.AnonymousReporter
	}

	incident := &models.Incident{
		Title:         draft.Title,
		Description:   draft.Description,
		Category:      draft.Category,
		Latitude:      *draft.Latitude,
		Longitude:     *draft.Longitude,
		PhotoURL:      draft.PhotoURL,
		ReporterID:    reporterID,
		ReporterEmail: draft.ReporterEmail,
		Status:        models.StatusOpen,
		Verified:      false,
	}

	// created_at присваивает бд на записи
	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return uuid.Nil, &RemoteWriteError{Op: "create", Err: err}
	}

	s.notifyChanged(ctx, log)

	log.WithField("incident_id", incident.ID).Info("Incident submitted successfully")
	return incident.ID, nil
}

// GetIncident получает инцидент по ID, сначала из кеша, потом из бд
func (s *incidentService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})

	cached, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident cache")
	}
	if cached != nil {
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Error("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}

// ListIncidents возвращает список инцидентов с пагинацией
func (s *incidentService) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "ListIncidents",
		"page":      page,
		"page_size": pageSize,
	})

	incidents, err := s.repo.ListIncidents(ctx, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

// VerifyIncident помечает инцидент верифицированным. Идемпотентен:
// повторная верификация уже верифицированного инцидента не ошибка.
func (s *incidentService) VerifyIncident(ctx context.Context, id uuid.UUID) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "VerifyIncident",
		"incident_id": id,
	})
	log.Info("Attempting to verify incident")

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to verify a non-existent incident")
		return fmt.Errorf("service: incident %s not found for verify: %w", id, err)
	}

	alreadyVerified := incident.Verified

	if err := s.repo.SetVerified(ctx, id, true); err != nil {
		log.WithError(err).Error("Failed to verify incident in repository")
		return &RemoteWriteError{Op: "verify", Err: err}
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	s.notifyChanged(ctx, log)

	// Повторная верификация не порождает повторного уведомления
	if !alreadyVerified {
		event := webhook.VerifiedEvent{
			IncidentID: id,
			Title:      incident.Title,
			Category:   incident.Category,
			VerifiedAt: time.Now().UTC(),
		}
		if err := s.webhooks.Publish(ctx, event); err != nil {
			log.WithError(err).Error("Failed to publish verified-incident event")
		}
	}

	log.Info("Incident verified successfully")
	return nil
}

// DeleteIncident удаляет инцидент
func (s *incidentService) DeleteIncident(ctx context.Context, id uuid.UUID) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "DeleteIncident",
		"incident_id": id,
	})
	log.Info("Attempting to delete incident")

	if err := s.repo.Delete(ctx, id); err != nil {
		log.WithError(err).Error("Failed to delete incident in repository")
		return &RemoteWriteError{Op: "delete", Err: err}
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	s.notifyChanged(ctx, log)

	log.Info("Incident deleted successfully")
	return nil
}

// GetStats возвращает счетчики инцидентов для дашборда
func (s *incidentService) GetStats(ctx context.Context) (*models.Stats, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "GetStats",
	})

	stats, err := s.repo.GetStats(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to get incident stats from repository")
		return nil, fmt.Errorf("service: could not get stats: %w", err)
	}
	return stats, nil
}

// notifyChanged публикует уведомление об изменении коллекции.
// Сбой публикации не откатывает мутацию: ленты отстанут до следующего
// события, запись уже принята.
func (s *incidentService) notifyChanged(ctx context.Context, log *logrus.Entry) {
	if err := s.changes.NotifyChanged(ctx); err != nil {
		log.WithError(err).Error("Failed to notify change bus")
	}
}
