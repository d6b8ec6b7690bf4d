package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
	"github.com/redis/go-redis/v9"
)

const tokenPrefix = "session:"

// TokenStore хранит непрозрачные токены сессий в Redis с TTL
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *TokenStore) key(token string) string {
	return tokenPrefix + token
}

// Save сохраняет принципала под токеном со сроком жизни сессии
func (s *TokenStore) Save(ctx context.Context, token string, principal *models.Principal) error {
	payload, err := json.Marshal(principal)
	if err != nil {
		return fmt.Errorf("failed to marshal principal: %w", err)
	}
	if err := s.client.Set(ctx, s.key(token), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	return nil
}

// Lookup возвращает принципала по токену.
// Отсутствующий или истекший токен дает ErrSessionExpired.
func (s *TokenStore) Lookup(ctx context.Context, token string) (*models.Principal, error) {
	payload, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("failed to lookup session token: %w", err)
	}

	principal := &models.Principal{}
	if err := json.Unmarshal(payload, principal); err != nil {
		return nil, fmt.Errorf("failed to unmarshal principal: %w", err)
	}
	return principal, nil
}

// Revoke удаляет токен сессии. Удаление несуществующего токена - no-op.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("failed to revoke session token: %w", err)
	}
	return nil
}
