package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
)

// LinkCache кэширует ссылку для читающей стороны. Инвалидируется
// воркером после каждой записи архивных полей.
type LinkCache interface {
	GetLink(ctx context.Context, linkID int64) (*models.Link, error)
	SetLink(ctx context.Context, link *models.Link) error
	Invalidate(ctx context.Context, linkID int64) error
}

type RedisLinkCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisLinkCache(redisURL, password string, db int, ttl time.Duration, logger *slog.Logger) (*RedisLinkCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ошибка при подключении к Redis: %w", err)
	}

	logger.Info("Соединение с Redis успешно установлено")

	return &RedisLinkCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func (c *RedisLinkCache) GetLink(ctx context.Context, linkID int64) (*models.Link, error) {
	key := linkKey(linkID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			c.logger.Debug("Кэш не найден",
				"linkID", linkID,
			)

			return nil, nil
		}

		c.logger.Error("Ошибка при получении данных из Redis",
			"error", err,
			"linkID", linkID,
		)

		return nil, fmt.Errorf("ошибка при получении данных из Redis: %w", err)
	}

	var link models.Link
	if err := json.Unmarshal(data, &link); err != nil {
		c.logger.Error("Ошибка при десериализации данных из Redis",
			"error", err,
			"linkID", linkID,
		)

		return nil, fmt.Errorf("ошибка при десериализации данных из Redis: %w", err)
	}

	c.logger.Debug("Ссылка получена из кэша",
		"linkID", linkID,
	)

	return &link, nil
}

func (c *RedisLinkCache) SetLink(ctx context.Context, link *models.Link) error {
	key := linkKey(link.ID)

	data, err := json.Marshal(link)
	if err != nil {
		c.logger.Error("Ошибка при сериализации данных для Redis",
			"error", err,
			"linkID", link.ID,
		)

		return fmt.Errorf("ошибка при сериализации данных для Redis: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("Ошибка при сохранении данных в Redis",
			"error", err,
			"linkID", link.ID,
		)

		return fmt.Errorf("ошибка при сохранении данных в Redis: %w", err)
	}

	c.logger.Debug("Ссылка сохранена в кэш",
		"linkID", link.ID,
		"ttl", c.ttl,
	)

	return nil
}

func (c *RedisLinkCache) Invalidate(ctx context.Context, linkID int64) error {
	if err := c.client.Del(ctx, linkKey(linkID)).Err(); err != nil {
		c.logger.Error("Ошибка при удалении данных из Redis",
			"error", err,
			"linkID", linkID,
		)

		return fmt.Errorf("ошибка при удалении данных из Redis: %w", err)
	}

	c.logger.Debug("Кэш ссылки инвалидирован",
		"linkID", linkID,
	)

	return nil
}

func (c *RedisLinkCache) Close() error {
	return c.client.Close()
}

func linkKey(linkID int64) string {
	return fmt.Sprintf("link:%d", linkID)
}
