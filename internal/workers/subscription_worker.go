package workers

import (
	"time"

	"tradehub_backend/internal/logger"

	"gorm.io/gorm"
)

// SubscriptionExpiryWorker помечает истекшие подписки в фоне.
// Вебхуки Stripe остаются основным источником правды; воркер
// подстраховывает на случай пропущенной доставки событий.
type SubscriptionExpiryWorker struct {
	db       *gorm.DB
	interval time.Duration
}

func NewSubscriptionExpiryWorker(db *gorm.DB) *SubscriptionExpiryWorker {
	return &SubscriptionExpiryWorker{
		db:       db,
		interval: 1 * time.Hour,
	}
}

// Run запускает цикл проверки. Блокирует, вызывать в отдельной горутине.
func (w *SubscriptionExpiryWorker) Run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for range ticker.C {
		w.expireOverdueSubscriptions()
	}
}

func (w *SubscriptionExpiryWorker) expireOverdueSubscriptions() {
	result := w.db.Exec(`
		UPDATE company_subscriptions
		SET status = 'expired', updated_at = NOW()
		WHERE status IN ('active', 'trialing')
		AND subscription_expires_at IS NOT NULL
		AND subscription_expires_at < NOW()
	`)
	if result.Error != nil {
		logger.Error("Failed to expire overdue subscriptions", "error", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		return
	}
	logger.Info("Marked subscriptions as expired", "count", result.RowsAffected)

	// Зеркалим статус в companies для быстрых проверок доступа
	mirror := w.db.Exec(`
		UPDATE companies c
		SET subscription_status = 'expired', updated_at = NOW()
		FROM company_subscriptions cs
		WHERE cs.company_id = c.id
		AND cs.status = 'expired'
		AND c.subscription_status IN ('active', 'trialing')
	`)
	if mirror.Error != nil {
		logger.Error("Failed to mirror expired status to companies", "error", mirror.Error)
	}
}
