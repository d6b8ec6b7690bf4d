package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Build-Your-Web-2025/SafeCity/internal/config"
	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
	"github.com/Build-Your-Web-2025/SafeCity/internal/service/mocks"
	"github.com/Build-Your-Web-2025/SafeCity/internal/webhook"
	webhook_mocks "github.com/Build-Your-Web-2025/SafeCity/internal/webhook/mocks"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestIncidentService - вспомогательная функция для создания инстанса сервиса с моками.
func newTestIncidentService(t *testing.T) (*incidentService, *mocks.MockIncidentRepository, *webhook_mocks.MockPublisher, *mocks.MockChangePublisher) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockIncidentRepository(ctrl)
	webhookMock := webhook_mocks.NewMockPublisher(ctrl)
	changesMock := mocks.NewMockChangePublisher(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{}

	service := NewIncidentService(repoMock, logger, cfg, webhookMock, changesMock)
	return service.(*incidentService), repoMock, webhookMock, changesMock
}

func floatPtr(v float64) *float64 {
	return &v
}

// validDraft возвращает черновик, проходящий валидацию
func validDraft() models.IncidentDraft {
	return models.IncidentDraft{
		Title:       "Разбитый светофор",
		Description: "Светофор на перекрестке не работает",
		Category:    models.CategoryRoadIssue,
		Latitude:    floatPtr(55.75),
		Longitude:   floatPtr(37.61),
	}
}

func TestSubmitIncident_Success_Anonymous(t *testing.T) {
	// Подготовка
	service, repoMock, _, changesMock := newTestIncidentService(t)
	ctx := context.Background()
	assignedID := uuid.New()
	draft := validDraft()

	// Ожидания
	repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(ctx context.Context, inc *models.Incident) error {
			// Без сессии репортер анонимный, статус и верификация по умолчанию
			assert.Equal(t, models.AnonymousReporter, inc.ReporterID)
			assert.Equal(t, models.StatusOpen, inc.Status)
			assert.False(t, inc.Verified)
			// Симулируем, что БД присвоила id и created_at
			inc.ID = assignedID
			inc.CreatedAt = time.Now()
			return nil
		}).Times(1)

	changesMock.EXPECT().NotifyChanged(ctx).Return(nil).Times(1)

	// Действие
	id, err := service.SubmitIncident(ctx, draft)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, assignedID, id)
}

func TestSubmitIncident_Success_WithReporter(t *testing.T) {
	// Подготовка
	service, repoMock, _, changesMock := newTestIncidentService(t)
	ctx := context.Background()
	draft := validDraft()
	draft.ReporterID = "user-123"
	draft.ReporterEmail = "user@example.com"

	// Ожидания
	repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(ctx context.Context, inc *models.Incident) error {
			assert.Equal(t, "user-123", inc.ReporterID)
			assert.Equal(t, "user@example.com", inc.ReporterEmail)
			inc.ID = uuid.New()
			return nil
		}).Times(1)

	changesMock.EXPECT().NotifyChanged(ctx).Return(nil).Times(1)

	// Действие
	_, err := service.SubmitIncident(ctx, draft)

	// Проверки
	require.NoError(t, err)
}

func TestSubmitIncident_MissingCoordinates(t *testing.T) {
	// Подготовка
	service, repoMock, _, changesMock := newTestIncidentService(t)
	ctx := context.Background()
	draft := validDraft()
	draft.Latitude = nil
	draft.Longitude = nil // Отсутствует локация

	// Ожидания: запись не создается, уведомление не публикуется
	repoMock.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
	changesMock.EXPECT().NotifyChanged(gomock.Any()).Times(0)

	// Действие
	id, err := service.SubmitIncident(ctx, draft)

	// Проверки
	require.Error(t, err)
	assert.Equal(t, uuid.Nil, id)
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestSubmitIncident_ZeroCoordinatesAreValid(t *testing.T) {
	// Подготовка
	service, repoMock, _, changesMock := newTestIncidentService(t)
	ctx := context.Background()
	draft := validDraft()
	// Экватор и гринвичский меридиан - валидная точка, а не отсутствие локации
	draft.Latitude = floatPtr(0)
	draft.Longitude = floatPtr(0)

	// Ожидания
	repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(ctx context.Context, inc *models.Incident) error {
			assert.Zero(t, inc.Latitude)
			assert.Zero(t, inc.Longitude)
			inc.ID = uuid.New()
			return nil
		}).Times(1)
	changesMock.EXPECT().NotifyChanged(ctx).Return(nil).Times(1)

	// Действие
	id, err := service.SubmitIncident(ctx, draft)

	// Проверки
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
}

func TestSubmitIncident_OutOfRangeLatitude(t *testing.T) {
	// Подготовка
	service, repoMock, _, changesMock := newTestIncidentService(t)
	ctx := context.Background()
	draft := validDraft()
	draft.Latitude = floatPtr(95)

	// Ожидания
	repoMock.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
	changesMock.EXPECT().NotifyChanged(gomock.Any()).Times(0)

	// Действие
	_, err := service.SubmitIncident(ctx, draft)

	// Проверки
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestSubmitIncident_UnknownCategory(t *testing.T) {
	// Подготовка
	service, repoMock, _, changesMock := newTestIncidentService(t)
	ctx := context.Background()
	draft := validDraft()
	draft.Category = "ufo_sighting"

	// Ожидания
	repoMock.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
	changesMock.EXPECT().NotifyChanged(gomock.Any()).Times(0)

	// Действие
	_, err := service.SubmitIncident(ctx, draft)

	// Проверки
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestSubmitIncident_RemoteWriteError(t *testing.T) {
	// Подготовка
	service, repoMock, _, changesMock := newTestIncidentService(t)
	ctx := context.Background()
	dbError := fmt.Errorf("соединение с бд потеряно")

	// Ожидания
	repoMock.EXPECT().Create(ctx, gomock.Any()).Return(dbError).Times(1)
	changesMock.EXPECT().NotifyChanged(gomock.Any()).Times(0)

	// Действие
	id, err := service.SubmitIncident(ctx, validDraft())

	// Проверки
	require.Error(t, err)
	assert.Equal(t, uuid.Nil, id)
	var remoteErr *RemoteWriteError
	assert.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "create", remoteErr.Op)
}

func TestSubmitIncident_NotifyFailureDoesNotFailSubmit(t *testing.T) {
	// Подготовка
	service, repoMock, _, changesMock := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания: сбой шины не откатывает мутацию
	repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(ctx context.Context, inc *models.Incident) error {
			inc.ID = uuid.New()
			return nil
		}).Times(1)
	changesMock.EXPECT().NotifyChanged(ctx).Return(fmt.Errorf("redis недоступен")).Times(1)

	// Действие
	id, err := service.SubmitIncident(ctx, validDraft())

	// Проверки
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
}

func TestGetIncident_Success_FromCache(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	expectedIncident := &models.Incident{
		ID:    incidentID,
		Title: "Тестовый инцидент из кеша",
	}

	// Ожидания
	repoMock.EXPECT().
		GetIncidentFromCache(ctx, incidentID).
		Return(expectedIncident, nil).
		Times(1)

	// Действие
	incident, err := service.GetIncident(ctx, incidentID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expectedIncident, incident)
}

func TestGetIncident_Success_FromDB(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	expectedIncident := &models.Incident{
		ID:    incidentID,
		Title: "Тестовый инцидент из БД",
	}

	// Ожидания
	// 1. Промах кеша
	repoMock.EXPECT().
		GetIncidentFromCache(ctx, incidentID).
		Return(nil, nil).
		Times(1)

	// 2. Попадание в БД
	repoMock.EXPECT().
		GetByID(ctx, incidentID).
		Return(expectedIncident, nil).
		Times(1)

	// 3. Запись в кеш
	repoMock.EXPECT().
		SetIncidentCache(ctx, expectedIncident).
		Return(nil).
		Times(1)

	// Действие
	incident, err := service.GetIncident(ctx, incidentID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expectedIncident, incident)
}

func TestGetIncident_NotFound(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()

	// Ожидания
	repoMock.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(nil, nil).Times(1)
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(nil, fmt.Errorf("wrap: %w", ErrNotFound)).Times(1)

	// Действие
	incident, err := service.GetIncident(ctx, incidentID)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListIncidents_Success(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	page, pageSize := 1, 10
	expectedIncidents := []*models.Incident{
		{ID: uuid.New(), Title: "Инцидент 1"},
		{ID: uuid.New(), Title: "Инцидент 2"},
	}

	// Ожидания
	repoMock.EXPECT().ListIncidents(ctx, page, pageSize).Return(expectedIncidents, nil).Times(1)

	// Действие
	incidents, err := service.ListIncidents(ctx, page, pageSize)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expectedIncidents, incidents)
}

func TestListIncidents_ClampsPagination(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания: невалидные значения пагинации приводятся к умолчаниям
	repoMock.EXPECT().ListIncidents(ctx, 1, 20).Return(nil, nil).Times(1)

	// Действие
	_, err := service.ListIncidents(ctx, 0, 1000)

	// Проверки
	require.NoError(t, err)
}

func TestVerifyIncident_Success_FirstTime(t *testing.T) {
	// Подготовка
	service, repoMock, webhookMock, changesMock := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	existing := &models.Incident{
		ID:       incidentID,
		Title:    "Пожар в парке",
		Category: models.CategoryFire,
		Verified: false,
	}

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(existing, nil).Times(1)
	repoMock.EXPECT().SetVerified(ctx, incidentID, true).Return(nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)
	changesMock.EXPECT().NotifyChanged(ctx).Return(nil).Times(1)

	// Первая верификация публикует событие вебхука
	webhookMock.EXPECT().
		Publish(ctx, gomock.Any()).
		Do(func(ctx context.Context, event webhook.VerifiedEvent) {
			assert.Equal(t, incidentID, event.IncidentID)
			assert.Equal(t, existing.Title, event.Title)
			assert.Equal(t, existing.Category, event.Category)
		}).Return(nil).Times(1)

	// Действие
	err := service.VerifyIncident(ctx, incidentID)

	// Проверки
	require.NoError(t, err)
}

func TestVerifyIncident_Idempotent(t *testing.T) {
	// Подготовка
	service, repoMock, webhookMock, changesMock := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	existing := &models.Incident{
		ID:       incidentID,
		Verified: true, // Уже верифицирован
	}

	// Ожидания: повторная верификация не ошибка, но событие не публикуется
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(existing, nil).Times(1)
	repoMock.EXPECT().SetVerified(ctx, incidentID, true).Return(nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)
	changesMock.EXPECT().NotifyChanged(ctx).Return(nil).Times(1)
	webhookMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	err := service.VerifyIncident(ctx, incidentID)

	// Проверки
	require.NoError(t, err)
}

func TestVerifyIncident_NotFound(t *testing.T) {
	// Подготовка
	service, repoMock, webhookMock, changesMock := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(nil, fmt.Errorf("wrap: %w", ErrNotFound)).Times(1)
	changesMock.EXPECT().NotifyChanged(gomock.Any()).Times(0)
	webhookMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	err := service.VerifyIncident(ctx, incidentID)

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIncident_Success(t *testing.T) {
	// Подготовка
	service, repoMock, _, changesMock := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()

	// Ожидания
	repoMock.EXPECT().Delete(ctx, incidentID).Return(nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)
	changesMock.EXPECT().NotifyChanged(ctx).Return(nil).Times(1)

	// Действие
	err := service.DeleteIncident(ctx, incidentID)

	// Проверки
	require.NoError(t, err)
}

func TestDeleteIncident_NotFound(t *testing.T) {
	// Подготовка
	service, repoMock, _, changesMock := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()

	// Ожидания
	repoMock.EXPECT().Delete(ctx, incidentID).Return(fmt.Errorf("wrap: %w", ErrNotFound)).Times(1)
	changesMock.EXPECT().NotifyChanged(gomock.Any()).Times(0)

	// Действие
	err := service.DeleteIncident(ctx, incidentID)

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetStats_Success(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	expectedStats := &models.Stats{
		Total:    5,
		Verified: 2,
		ByCategory: map[models.Category]int{
			models.CategoryFire:      3,
			models.CategoryRoadIssue: 2,
		},
		ByStatus: map[models.Status]int{
			models.StatusOpen: 5,
		},
	}

	// Ожидания
	repoMock.EXPECT().GetStats(ctx).Return(expectedStats, nil).Times(1)

	// Действие
	stats, err := service.GetStats(ctx)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expectedStats, stats)
}

func TestGetStats_RepositoryError(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	repoMock.EXPECT().GetStats(ctx).Return(nil, errors.New("ошибка бд")).Times(1)

	// Действие
	stats, err := service.GetStats(ctx)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, stats)
	assert.ErrorContains(t, err, "could not get stats")
}
