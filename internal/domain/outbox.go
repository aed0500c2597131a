package domain

import (
	"context"
	"time"
)

const (
	// OutboxAggregateOrder — тип агрегата для событий заказа.
	OutboxAggregateOrder = "order"

	// EventOrderCheckedOut публикуется при успешном checkout корзины.
	EventOrderCheckedOut = "order.checked_out"
	// EventOrderCancelled публикуется при отмене корзины с возвратом стока.
	EventOrderCancelled = "order.cancelled"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
	Stats(ctx context.Context) (OutboxStats, error)
}

// OutboxPublisher публикует событие наружу; обязан быть идемпотентным.
type OutboxPublisher interface {
	Publish(ctx context.Context, msg OutboxMessage) error
}
