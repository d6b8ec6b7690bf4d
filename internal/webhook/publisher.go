package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	verifiedQueueKey = "webhook:verified_events"
)

// VerifiedEvent - событие верификации инцидента администратором
type VerifiedEvent struct {
	IncidentID uuid.UUID       `json:"incident_id"`
	Title      string          `json:"title"`
	Category   models.Category `json:"category"`
	VerifiedAt time.Time       `json:"verified_at"`
}

// Publisher - интерфейс для публикации событий верификации
type Publisher interface {
	Publish(ctx context.Context, event VerifiedEvent) error
}

// RedisPublisher - реализация Publisher, использующая очередь в Redis
type RedisPublisher struct {
	redisClient *redis.Client
}

// NewRedisPublisher создает новый RedisPublisher
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		redisClient: client,
	}
}

// Publish ставит событие верификации в очередь Redis
func (p *RedisPublisher) Publish(ctx context.Context, event VerifiedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal verified event: %w", err)
	}

	// Используем LPUSH для добавления события в левую часть списка (очереди)
	if err := p.redisClient.LPush(ctx, verifiedQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish verified event to Redis: %w", err)
	}
	return nil
}
