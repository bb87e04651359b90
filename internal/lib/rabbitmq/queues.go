package rabbitmq

// Exchange - direct-обменник уведомлений.
const Exchange = "notifications"

// Ключи маршрутизации уведомлений.
const (
	RoutingEntitlementActivated = "entitlement.activated"
	RoutingAccessExpiring       = "access.expiring"
)

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди, которые слушает sender.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notifications.entitlement.activated", RoutingKey: RoutingEntitlementActivated},
		{QueueName: "notifications.access.expiring", RoutingKey: RoutingAccessExpiring},
	}
}
