package models

import "time"

// ReminderKind различает виды напоминаний, публикуемых планировщиком.
type ReminderKind string

const (
	// ReminderExpiring — подписка заканчивается в ближайшие дни.
	ReminderExpiring ReminderKind = "expiring"
	// ReminderExpired — подписка уже истекла.
	ReminderExpired ReminderKind = "expired"
)

// ReminderEvent — сообщение очереди notifications, по одному на пользователя.
// Текст уведомления формирует потребитель, событие несёт только факты.
type ReminderEvent struct {
	ChatID  int64        `json:"chat_id"`
	Kind    ReminderKind `json:"kind"`
	EndDate *time.Time   `json:"end_date,omitempty"`
}
