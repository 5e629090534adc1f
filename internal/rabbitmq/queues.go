package rabbitmq

// QueueConfig описывает очередь и ее ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Очередь напоминаний о подписках.
const (
	ReminderQueue      = "notification.reminder"
	ReminderRoutingKey = "reminder"
)

func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: ReminderQueue, RoutingKey: ReminderRoutingKey},
	}
}
