package kafka

// Topics для Kafka.
const (
	TopicOrderEvents = "minimarket.order.events"
)
