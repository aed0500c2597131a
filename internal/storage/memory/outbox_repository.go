package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

type outboxRepository struct {
	store *Store
}

// NewOutboxRepository возвращает in-memory реализацию transactional outbox.
func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return &outboxRepository{store: store}
}

func (r *outboxRepository) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	r.store.st.outbox[msg.ID] = outboxRecord{
		msg:       msg,
		status:    "pending",
		createdAt: time.Now().UTC(),
	}
	return msg, nil
}

func (r *outboxRepository) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}

	records := make([]outboxRecord, 0)
	for _, record := range r.store.st.outbox {
		if record.status == "pending" {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].createdAt.Equal(records[j].createdAt) {
			return records[i].createdAt.Before(records[j].createdAt)
		}
		return records[i].msg.ID < records[j].msg.ID
	})
	if len(records) > limit {
		records = records[:limit]
	}

	result := make([]domain.OutboxMessage, 0, len(records))
	for _, record := range records {
		result = append(result, record.msg)
	}
	return result, nil
}

func (r *outboxRepository) MarkSent(_ context.Context, id string) error {
	return r.markStatus(id, "sent", false)
}

// MarkFailed оставляет сообщение pending: его заберёт следующий цикл воркера.
func (r *outboxRepository) MarkFailed(_ context.Context, id string) error {
	return r.markStatus(id, "pending", true)
}

func (r *outboxRepository) Stats(_ context.Context) (domain.OutboxStats, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var stats domain.OutboxStats
	for _, record := range r.store.st.outbox {
		if record.status != "pending" {
			continue
		}
		stats.PendingCount++
		if stats.OldestPendingAt.IsZero() || record.createdAt.Before(stats.OldestPendingAt) {
			stats.OldestPendingAt = record.createdAt
		}
	}
	return stats, nil
}

func (r *outboxRepository) markStatus(id, status string, bumpAttempt bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	record, ok := r.store.st.outbox[id]
	if !ok {
		return domain.ErrOutboxMessageNotFound
	}
	record.status = status
	if bumpAttempt {
		record.attempts++
	}
	r.store.st.outbox[id] = record
	return nil
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)
