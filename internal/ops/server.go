// Package ops поднимает служебный HTTP-сервер бота: health-check для
// docker-compose и метрики Prometheus. Пользовательских маршрутов здесь
// нет, бот общается с Telegram через long polling.
package ops

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"subsync-bot/internal/config"
)

// Server — служебный HTTP-сервер.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// New собирает роутер и настраивает http.Server по конфигурации.
func New(cfg config.OpsServer, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "OK"})
	})
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{server: srv, logger: logger}
}

// Run запускает сервер и блокируется до отмены контекста, после чего
// выполняет graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ops server starting", slog.String("address", s.server.Addr))
		err := s.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.logger.Info("shutting down ops server gracefully")
		return s.server.Shutdown(timeoutCtx)
	}
}
