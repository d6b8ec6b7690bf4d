package feed

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const changeChannel = "incidents:changed"

// RedisBus - шина изменений на Redis pub/sub. Издатель публикует
// уведомление после каждой успешной мутации, подписчики в ответ
// перечитывают снимок.
type RedisBus struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisBus(client *redis.Client, log *logrus.Logger) *RedisBus {
	return &RedisBus{
		client: client,
		logger: log,
	}
}

// Subscribe подписывается на канал изменений. Порядок уведомлений внутри
// одной подписки соответствует порядку публикаций.
func (b *RedisBus) Subscribe(ctx context.Context, notify func()) (func(), error) {
	pubsub := b.client.Subscribe(ctx, changeChannel)

	// Дожидаемся подтверждения подписки, иначе первые события можно потерять
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", changeChannel, err)
	}

	go func() {
		for range pubsub.Channel() {
			notify()
		}
	}()

	return func() {
		if err := pubsub.Close(); err != nil {
			b.logger.WithError(err).Warn("Failed to close pubsub subscription")
		}
	}, nil
}

// NotifyChanged публикует уведомление об изменении коллекции инцидентов
func (b *RedisBus) NotifyChanged(ctx context.Context) error {
	if err := b.client.Publish(ctx, changeChannel, "changed").Err(); err != nil {
		return fmt.Errorf("failed to publish change notification: %w", err)
	}
	return nil
}
