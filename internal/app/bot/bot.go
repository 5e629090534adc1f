// Package bot собирает основное приложение: каталог пользователей,
// адаптеры провайдеров, движок сверки, диалог привязки, планировщик
// напоминаний, Telegram-поверхность и служебный HTTP-сервер.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	botsurface "subsync-bot/internal/bot"
	"subsync-bot/internal/config"
	"subsync-bot/internal/lib/sl"
	"subsync-bot/internal/migrations"
	"subsync-bot/internal/ops"
	"subsync-bot/internal/provider/ainox"
	"subsync-bot/internal/provider/wix"
	"subsync-bot/internal/rabbitmq"
	"subsync-bot/internal/services/linking"
	"subsync-bot/internal/services/recon"
	"subsync-bot/internal/services/reminder"
	"subsync-bot/internal/sessions"
	"subsync-bot/internal/storage"
)

// App — основное приложение бота.
type App struct {
	cfg      *config.Config
	db       *storage.Storage
	engine   *recon.Engine
	reminder *reminder.Service
	surface  *botsurface.Bot
	opsSrv   *ops.Server
	amqpConn *amqp.Connection
	amqpCh   *amqp.Channel
	logger   *slog.Logger
}

// New инициализирует все зависимости приложения.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.bot.New"

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sessionStore, err := sessions.New(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	wixClient := wix.NewClient(cfg.Wix, logger)
	ainoxClient := ainox.NewClient(cfg.Ainox, logger)

	engine := recon.New(db, wixClient, ainoxClient, logger)
	linker := linking.New(sessionStore, db, engine, logger)
	reminderSvc := reminder.New(db, rabbitmq.NewChannelPublisher(ch),
		cfg.Sync.ReminderWindow, cfg.Sync.ReminderInterval, logger)

	surface, err := botsurface.New(cfg.BotToken, db, linker, engine, ainoxClient,
		cfg.Links, cfg.AdminChatIDs, logger)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &App{
		cfg:      cfg,
		db:       db,
		engine:   engine,
		reminder: reminderSvc,
		surface:  surface,
		opsSrv:   ops.New(cfg.OpsServer, logger),
		amqpConn: conn,
		amqpCh:   ch,
		logger:   logger,
	}, nil
}

// Run запускает все компоненты и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	go a.runReconcileLoop(ctx)
	go a.reminder.Run(ctx)
	go func() {
		if err := a.opsSrv.Run(ctx); err != nil {
			a.logger.Error("ops server stopped with error", sl.Err(err))
		}
	}()

	err := a.surface.Run(ctx)

	a.logger.Info("shutting down application")
	if closeErr := a.amqpCh.Close(); closeErr != nil {
		a.logger.Error("failed to close channel", sl.Err(closeErr))
	}
	if closeErr := a.amqpConn.Close(); closeErr != nil {
		a.logger.Error("failed to close connection", sl.Err(closeErr))
	}
	if closeErr := a.db.DB.Close(); closeErr != nil {
		a.logger.Error("failed to close database", sl.Err(closeErr))
	}
	return err
}

// runReconcileLoop запускает первую сверку с задержкой, дальше по тикеру.
// Задержка дает окружению (база, провайдеры) подняться после старта.
func (a *App) runReconcileLoop(ctx context.Context) {
	timer := time.NewTimer(a.cfg.Sync.ReconcileDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		a.engine.ReconcileAll(ctx)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(a.cfg.Sync.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.engine.ReconcileAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}
