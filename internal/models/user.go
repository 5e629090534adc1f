// Package models содержит доменную модель пользователя каталога,
// привязку email и поля состояния подписки. Структуры используются
// в бизнес-логике и при работе с хранилищем.
package models

import "time"

// SubscriptionStatus описывает состояние подписки пользователя в каталоге.
type SubscriptionStatus string

const (
	// StatusNone — пользователь никогда не наблюдался с активной подпиской.
	StatusNone SubscriptionStatus = "none"
	// StatusActive — у пользователя есть действующая подписка.
	StatusActive SubscriptionStatus = "active"
	// StatusExpired — подписка была активна и перестала подтверждаться провайдером.
	StatusExpired SubscriptionStatus = "expired"
)

// User представляет пользователя чат-бота.
// Email может быть nil, пока пользователь не привязал адрес через linking flow.
type User struct {
	ChatID              int64      // Идентификатор чата Telegram, неизменяемый
	Username            string     // Username из Telegram, может быть пустым
	FirstName           string     // Имя из профиля Telegram
	Email               *string    // Привязанный email, нормализованный (lower, trim)
	SubscriptionStatus  SubscriptionStatus
	SubscriptionEndDate *time.Time // До какой даты подписка действует
	IsRussianPayment    bool       // Оплата через российского провайдера
	LastReminderSent    *time.Time // Когда отправлено последнее напоминание
	JoinedAt            time.Time  // Дата первого обращения к боту
}

// HasActiveSubscription сообщает, действует ли подписка на момент now.
func (u *User) HasActiveSubscription(now time.Time) bool {
	if u.SubscriptionStatus != StatusActive || u.SubscriptionEndDate == nil {
		return false
	}
	return u.SubscriptionEndDate.After(now)
}
