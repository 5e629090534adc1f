// Package sender собирает воркер отправки напоминаний: консьюмер очереди
// плюс клиент Telegram.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"subsync-bot/internal/bot"
	"subsync-bot/internal/config"
	"subsync-bot/internal/rabbitmq"
	sendersvc "subsync-bot/internal/services/sender"
)

// App — приложение воркера напоминаний.
type App struct {
	service *sendersvc.Service
	conn    *amqp.Connection
	ch      *amqp.Channel
	logger  *slog.Logger
}

// New инициализирует воркер.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.sender.New"

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transport, err := bot.NewTransport(cfg.BotToken)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	service := sendersvc.New(transport, cfg.Links.PaymentRussian, logger)

	return &App{
		service: service,
		conn:    conn,
		ch:      ch,
		logger:  logger,
	}, nil
}

// Run подписывается на очередь и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	const op = "app.sender.Run"

	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.ReminderQueue, a.service.HandleReminder(ctx))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	a.logger.Info("notification sender started", slog.String("queue", rabbitmq.ReminderQueue))
	<-ctx.Done()

	a.logger.Info("shutting down notification sender")
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	return nil
}
