// Package sessions реализует хранилище состояний linking flow в Redis.
// Сессия живёт ограниченное время: истечение TTL и есть таймаут диалога,
// отдельных таймеров на разговор нет.
package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"subsync-bot/internal/config"
)

// Store хранит сессии linking flow по идентификатору чата.
type Store struct {
	db *redis.Client
}

// New подключается к Redis и проверяет соединение.
func New(ctx context.Context, cfg config.RedisConnection) (*Store, error) {
	const op = "sessions.New"

	db := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		Username:     cfg.User,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Store{db: db}, nil
}

func key(chatID int64) string {
	return fmt.Sprintf("linking:%d", chatID)
}

// Get читает сессию чата. Возвращает false, если сессии нет или она истекла.
func (s *Store) Get(ctx context.Context, chatID int64, result any) (bool, error) {
	const op = "sessions.Get"

	val, err := s.db.Get(ctx, key(chatID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal([]byte(val), result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет сессию чата с временем жизни ttl.
func (s *Store) Set(ctx context.Context, chatID int64, value any, ttl time.Duration) error {
	const op = "sessions.Set"

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = s.db.Set(ctx, key(chatID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Delete удаляет сессию чата. Отсутствие ключа ошибкой не считается.
func (s *Store) Delete(ctx context.Context, chatID int64) error {
	const op = "sessions.Delete"

	if err := s.db.Del(ctx, key(chatID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
