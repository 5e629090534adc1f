// Package sender превращает события напоминаний из очереди в сообщения
// Telegram. Воркер не ходит в базу: все нужное лежит в самом событии.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"subsync-bot/internal/lib/dateutil"
	"subsync-bot/internal/lib/sl"
	"subsync-bot/internal/models"
)

// Transport отправляет текст в чат Telegram.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Service обрабатывает события напоминаний.
type Service struct {
	transport Transport
	renewLink string
	log       *slog.Logger
}

// New создает новый экземпляр Service. renewLink подставляется в текст
// напоминания об истекшей подписке.
func New(transport Transport, renewLink string, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		renewLink: renewLink,
		log:       log,
	}
}

// HandleReminder — обработчик для консьюмера очереди. Ошибка возвращает
// сообщение в очередь.
func (s *Service) HandleReminder(ctx context.Context) func([]byte) error {
	return func(body []byte) error {
		const op = "services.sender.HandleReminder"

		var event models.ReminderEvent
		if err := json.Unmarshal(body, &event); err != nil {
			s.log.Error("failed to unmarshal reminder event", sl.Err(err))
			// битое сообщение нет смысла возвращать в очередь
			return nil
		}

		text := s.renderText(event)
		if err := s.transport.SendMessage(ctx, event.ChatID, text); err != nil {
			s.log.Error("failed to send reminder", slog.Int64("chat_id", event.ChatID), sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}

		s.log.Info("reminder sent", slog.Int64("chat_id", event.ChatID),
			slog.String("kind", string(event.Kind)))
		return nil
	}
}

func (s *Service) renderText(event models.ReminderEvent) string {
	switch event.Kind {
	case models.ReminderExpiring:
		return fmt.Sprintf(
			"Напоминание: ваша подписка действует до %s.\n"+
				"Продление происходит автоматически, если вы не отменяли платеж.",
			dateutil.FormatDate(event.EndDate))
	case models.ReminderExpired:
		return fmt.Sprintf(
			"Ваша подписка закончилась. Чтобы снова получить доступ, оформите ее заново: %s",
			s.renewLink)
	default:
		return "Статус вашей подписки изменился. Проверьте его командой /status."
	}
}
