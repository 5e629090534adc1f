// Package reminder периодически находит подписки, требующие напоминания,
// и публикует события в очередь. Отправкой текста занимается отдельный
// воркер, читающий очередь.
package reminder

import (
	"context"
	"log/slog"
	"time"

	"subsync-bot/internal/lib/sl"
	"subsync-bot/internal/models"
)

// Directory — часть каталога пользователей, нужная планировщику.
type Directory interface {
	FindExpiringWithin(ctx context.Context, days int) ([]*models.User, error)
	MarkReminderSent(ctx context.Context, chatID int64) error
}

// Publisher публикует событие в брокер.
type Publisher interface {
	Publish(exchange, routingKey string, message any) error
}

// Service находит подписки, истекающие в ближайшие windowDays дней или
// уже истекшие, и ставит напоминания в очередь.
type Service struct {
	directory  Directory
	publisher  Publisher
	windowDays int
	interval   time.Duration
	log        *slog.Logger
}

// New создает новый экземпляр Service.
func New(directory Directory, publisher Publisher, windowDays int, interval time.Duration, log *slog.Logger) *Service {
	return &Service{
		directory:  directory,
		publisher:  publisher,
		windowDays: windowDays,
		interval:   interval,
		log:        log,
	}
}

// Run запускает цикл планировщика: первый проход сразу, дальше по тикеру
// до отмены контекста.
func (s *Service) Run(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce выполняет один проход планировщика.
func (s *Service) RunOnce(ctx context.Context) {
	s.log.Info("starting reminder scan", slog.Int("window_days", s.windowDays))

	users, err := s.directory.FindExpiringWithin(ctx, s.windowDays)
	if err != nil {
		s.log.Error("failed to find users for reminders", sl.Err(err))
		return
	}
	if len(users) == 0 {
		s.log.Info("no reminders due")
		return
	}
	s.log.Info("found users for reminders", slog.Int("count", len(users)))

	now := time.Now()
	for _, user := range users {
		event := models.ReminderEvent{
			ChatID:  user.ChatID,
			Kind:    models.ReminderExpired,
			EndDate: user.SubscriptionEndDate,
		}
		if user.HasActiveSubscription(now) {
			event.Kind = models.ReminderExpiring
		}

		if err := s.publisher.Publish("notifications", "reminder", event); err != nil {
			s.log.Error("failed to publish reminder", slog.Int64("chat_id", user.ChatID), sl.Err(err))
			continue
		}
		// отметка после успешной публикации, иначе напоминание потеряется
		if err := s.directory.MarkReminderSent(ctx, user.ChatID); err != nil {
			s.log.Error("failed to mark reminder sent", slog.Int64("chat_id", user.ChatID), sl.Err(err))
		}
	}
}
