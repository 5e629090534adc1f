// Package metrics содержит счётчики Prometheus для наблюдения за сверкой
// подписок. Метрики регистрируются в реестре по умолчанию и отдаются
// служебным HTTP-сервером на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsProcessed — количество записей провайдеров, прошедших через сверку.
	RecordsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subsync_records_processed_total",
		Help: "Provider records seen during reconciliation.",
	}, []string{"provider"})

	// UsersUpdated — успешные записи результата сверки в каталог.
	UsersUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subsync_users_updated_total",
		Help: "Directory users updated by the reconciliation engine.",
	})

	// UpdateFailures — неуспешные записи в каталог, пропущенные по best-effort.
	UpdateFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subsync_update_failures_total",
		Help: "Directory updates that failed and were skipped.",
	})

	// VerifyRequests — исходы онлайн-проверок email, result: found|not_found.
	VerifyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subsync_verify_requests_total",
		Help: "Single-email verification outcomes.",
	}, []string{"result"})
)
