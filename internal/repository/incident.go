package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Build-Your-Web-2025/SafeCity/internal/feed"
	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
	"github.com/Build-Your-Web-2025/SafeCity/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const incidentColumns = `
			id,
			title,
			description,
			category,
			latitude,
			longitude,
			reporter_id,
			reporter_email,
			photo_url,
			status,
			verified,
			created_at`

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) *IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

// Create создает новую запись об инциденте в бд.
// id и created_at присваиваются на стороне бд.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (title, description, category, latitude, longitude, reporter_id, reporter_email, photo_url, status, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id, created_at;
	`
	err := r.db.QueryRow(ctx, query,
		incident.Title,
		incident.Description,
		incident.Category,
		incident.Latitude,
		incident.Longitude,
		incident.ReporterID,
		incident.ReporterEmail,
		incident.PhotoURL,
		incident.Status,
		incident.Verified,
	).Scan(&incident.ID, &incident.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT` + incidentColumns + `
		FROM incidents
		WHERE id = $1;
	`
	incident := &models.Incident{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.Category,
		&incident.Latitude,
		&incident.Longitude,
		&incident.ReporterID,
		&incident.ReporterEmail,
		&incident.PhotoURL,
		&incident.Status,
		&incident.Verified,
		&incident.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s: %w", id, service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// SetVerified выставляет флаг верификации. Повторная установка того же
// значения затрагивает строку и не считается ошибкой.
func (r *IncidentRepository) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	query := `
		UPDATE incidents SET
			verified = $1
		WHERE id = $2;
	`
	cmdTag, err := r.db.Exec(ctx, query, verified, id)
	if err != nil {
		return fmt.Errorf("failed to set incident verified: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident with id %s: %w", id, service.ErrNotFound)
	}
	return nil
}

// Delete удаляет инцидент из бд
func (r *IncidentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM incidents
		WHERE id = $1;
	`
	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete incident: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident with id %s: %w", id, service.ErrNotFound)
	}
	return nil
}

// ListIncidents возвращает список инцидентов с пагинацией
func (r *IncidentRepository) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	// рассчитываем смещение
	offset := (page - 1) * pageSize

	query := `SELECT` + incidentColumns + `
		FROM incidents
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2;
	`
	rows, err := r.db.Query(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// Snapshot возвращает полный снимок инцидентов по дескриптору запроса.
// Сортировка по created_at выполняется на уровне подписки (compound
// ordering поддерживается бд), лента все равно пересортирует на клиенте.
func (r *IncidentRepository) Snapshot(ctx context.Context, q feed.Query) ([]models.Incident, error) {
	query := `SELECT` + incidentColumns + `
		FROM incidents
	`
	args := []any{}
	if q.Scope == feed.ScopeByOwner {
		query += ` WHERE reporter_id = $1`
		args = append(args, q.OwnerID)
	}
	query += ` ORDER BY created_at DESC;`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query incident snapshot: %w", err)
	}
	defer rows.Close()

	incidents := make([]models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row in Snapshot: %w", err)
		}
		incidents = append(incidents, *incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error snapshot iteration: %w", err)
	}
	return incidents, nil
}

// GetStats возвращает счетчики инцидентов по категориям и статусам
func (r *IncidentRepository) GetStats(ctx context.Context) (*models.Stats, error) {
	query := `
		SELECT category, status, verified, COUNT(*)
		FROM incidents
		GROUP BY category, status, verified;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get incident stats: %w", err)
	}
	defer rows.Close()

	stats := &models.Stats{
		ByCategory: make(map[models.Category]int),
		ByStatus:   make(map[models.Status]int),
	}
	for rows.Next() {
		var (
			category models.Category
			status   models.Status
			verified bool
			count    int
		)
		if err := rows.Scan(&category, &status, &verified, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.Total += count
		stats.ByCategory[category] += count
		stats.ByStatus[status] += count
		if verified {
			stats.Verified += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error stats iteration: %w", err)
	}
	return stats, nil
}

// GetIncidentFromCache пытается получить инцидент из Redis
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	key := fmt.Sprintf("incident:%s", id.String())
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	key := fmt.Sprintf("incident:%s", incident.ID.String())
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	// Устанавливаем срок жизни кэша, например, 5 минут
	if err := r.redisClient.Set(ctx, key, val, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache удаляет инцидент из Redis кэша
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	key := fmt.Sprintf("incident:%s", id.String())
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}

func scanIncident(rows pgx.Rows) (*models.Incident, error) {
	incident := &models.Incident{}
	err := rows.Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.Category,
		&incident.Latitude,
		&incident.Longitude,
		&incident.ReporterID,
		&incident.ReporterEmail,
		&incident.PhotoURL,
		&incident.Status,
		&incident.Verified,
		&incident.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}
