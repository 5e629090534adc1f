package models

import "time"

// PaymentMethod указывает, через какого провайдера оформлена подписка.
// Значение фиксировано для каждого адаптера и не выводится из ответа API.
type PaymentMethod string

const (
	PaymentInternational PaymentMethod = "international"
	PaymentRussian       PaymentMethod = "russian"
)

// SubscriptionRecord — нормализованная запись о подписчике, которую
// возвращают оба провайдерских адаптера. Сырые форматы провайдеров
// не выходят за границу адаптера.
type SubscriptionRecord struct {
	Email             string        // Нормализованный email, ключ для поиска в каталоге
	IsActive          bool          // Подтверждает ли провайдер активную подписку
	EndDate           *time.Time    // До какой даты подписка оплачена, nil если неизвестно
	PaymentMethod     PaymentMethod // Провайдер, из которого получена запись
	ProviderReference string        // ID заказа или подписчика для трассировки
}
