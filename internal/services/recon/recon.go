// Package recon реализует движок сверки подписок: периодический полный
// проход по записям обоих провайдеров и разовую проверку одного email
// для linking flow.
package recon

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"subsync-bot/internal/lib/sl"
	"subsync-bot/internal/metrics"
	"subsync-bot/internal/models"
	"subsync-bot/internal/storage"
)

// Directory определяет используемую движком часть каталога пользователей.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateSubscription(ctx context.Context, chatID int64,
		status models.SubscriptionStatus, endDate *time.Time, isRussian bool) error
}

// SiteCommerceProvider — адаптер международной платформы.
type SiteCommerceProvider interface {
	// ActiveRecords возвращает нормализованные записи активных заказов.
	// Ошибки провайдера мягкие: пустой срез, не error.
	ActiveRecords(ctx context.Context) []models.SubscriptionRecord
}

// RussianBillingProvider — адаптер российского биллинга.
type RussianBillingProvider interface {
	Records(ctx context.Context) []models.SubscriptionRecord
	RecordsByEmail(ctx context.Context, email string) []models.SubscriptionRecord
}

// Engine сверяет записи провайдеров с каталогом пользователей.
// Движок не хранит состояния между вызовами: каждое обновление
// пользователя — независимая короткая запись в каталог.
type Engine struct {
	directory Directory
	site      SiteCommerceProvider
	billing   RussianBillingProvider
	log       *slog.Logger
}

// New создает новый экземпляр движка сверки.
func New(directory Directory, site SiteCommerceProvider, billing RussianBillingProvider, log *slog.Logger) *Engine {
	return &Engine{
		directory: directory,
		site:      site,
		billing:   billing,
		log:       log,
	}
}

// ReconcileAll выполняет полный проход: каждая запись каждого провайдера
// применяется к каталогу независимо и best-effort. Ошибка по одному
// пользователю логируется и не прерывает обработку остальных. Операция
// идемпотентна и рассчитана на периодический запуск планировщиком.
func (e *Engine) ReconcileAll(ctx context.Context) {
	e.log.Info("starting full subscription reconciliation")

	siteRecords := e.site.ActiveRecords(ctx)
	for _, rec := range siteRecords {
		metrics.RecordsProcessed.WithLabelValues(string(models.PaymentInternational)).Inc()
		e.apply(ctx, rec)
	}

	billingRecords := e.billing.Records(ctx)
	for _, rec := range billingRecords {
		metrics.RecordsProcessed.WithLabelValues(string(models.PaymentRussian)).Inc()
		e.apply(ctx, rec)
	}

	e.log.Info("reconciliation completed",
		slog.Int("site_records", len(siteRecords)),
		slog.Int("billing_records", len(billingRecords)))
}

// apply применяет одну запись провайдера к каталогу по merge-политике:
//   - активная запись авторитетна и перезаписывает состояние целиком;
//   - неактивная переводит в expired только пользователя со статусом
//     active: кто никогда не был активен, остаётся none.
func (e *Engine) apply(ctx context.Context, rec models.SubscriptionRecord) {
	if rec.Email == "" {
		return
	}

	user, err := e.directory.FindByEmail(ctx, rec.Email)
	if errors.Is(err, storage.ErrUserNotFound) {
		// Подписчик без аккаунта в боте — обычное дело, не ошибка.
		e.log.Info("no directory user for record", sl.Email(rec.Email),
			slog.String("ref", rec.ProviderReference))
		return
	}
	if err != nil {
		e.log.Error("directory lookup failed", sl.Email(rec.Email), sl.Err(err))
		metrics.UpdateFailures.Inc()
		return
	}

	if rec.IsActive {
		err = e.directory.UpdateSubscription(ctx, user.ChatID, models.StatusActive,
			rec.EndDate, rec.PaymentMethod == models.PaymentRussian)
	} else if user.SubscriptionStatus == models.StatusActive {
		err = e.directory.UpdateSubscription(ctx, user.ChatID, models.StatusExpired,
			user.SubscriptionEndDate, user.IsRussianPayment)
	} else {
		return
	}

	if err != nil {
		e.log.Error("failed to update subscription", slog.Int64("chat_id", user.ChatID), sl.Err(err))
		metrics.UpdateFailures.Inc()
		return
	}
	metrics.UsersUpdated.Inc()
	e.log.Info("subscription updated", slog.Int64("chat_id", user.ChatID),
		slog.Bool("active", rec.IsActive), slog.String("ref", rec.ProviderReference))
}

// Verify выполняет разовую проверку одного email по обоим провайдерам.
// Сначала международная платформа; российский биллинг опрашивается только
// если там активной записи нет, с обязательной перепроверкой точного
// совпадения адреса. Каталог не изменяется. Недоступность провайдера
// деградирует до "не найдено".
func (e *Engine) Verify(ctx context.Context, email string) (bool, *models.SubscriptionRecord) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return false, nil
	}

	for _, rec := range e.site.ActiveRecords(ctx) {
		if rec.IsActive && rec.Email == normalized {
			e.log.Info("active site-commerce subscription found", sl.Email(normalized))
			metrics.VerifyRequests.WithLabelValues("found").Inc()
			return true, &rec
		}
	}

	for _, rec := range e.billing.RecordsByEmail(ctx, normalized) {
		if rec.Email != normalized {
			// Серверный фильтр биллинга может отдавать частичные совпадения.
			e.log.Info("skipping non-exact billing match", sl.Email(rec.Email))
			continue
		}
		if rec.IsActive {
			e.log.Info("active billing subscription found", sl.Email(normalized))
			metrics.VerifyRequests.WithLabelValues("found").Inc()
			return true, &rec
		}
	}

	e.log.Info("no active subscription found", sl.Email(normalized))
	metrics.VerifyRequests.WithLabelValues("not_found").Inc()
	return false, nil
}
