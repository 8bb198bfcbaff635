package repository

import (
	"context"
	"fmt"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/domain"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
)

// MessageRepository works on any message collection, either
// conversations/{id}/messages or users/{id}/messages.
type MessageRepository interface {
	Create(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	Get(ctx context.Context, collection, id string) (*domain.Message, error)
	// List returns messages ordered by timestamp ascending.
	List(ctx context.Context, collection string, limit int) ([]domain.Message, error)
	UpdateStatus(ctx context.Context, collection, id string, status domain.Status) error
	Subscribe(ctx context.Context, collection string, cb func([]domain.Message)) (docstore.Unsubscribe, error)
}

type messageRepository struct {
	store docstore.Store
}

func NewMessageRepository(store docstore.Store) MessageRepository {
	return &messageRepository{store: store}
}

func (r *messageRepository) Create(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id, err := r.store.Create(ctx, collection, data)
	if err != nil {
		return "", fmt.Errorf("failed to create message in %s: %w", collection, err)
	}
	return id, nil
}

func (r *messageRepository) Get(ctx context.Context, collection, id string) (*domain.Message, error) {
	doc, err := r.store.Get(ctx, collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s/%s: %w", collection, id, err)
	}
	if doc == nil {
		return nil, nil
	}
	msg := domain.MessageFromDoc(*doc)
	return &msg, nil
}

func timeline(limit int) docstore.Query {
	return docstore.Query{OrderBy: domain.FieldTimestamp, Dir: docstore.Asc, Limit: limit}
}

func (r *messageRepository) List(ctx context.Context, collection string, limit int) ([]domain.Message, error) {
	docs, err := r.store.Query(ctx, collection, timeline(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list messages in %s: %w", collection, err)
	}
	return toMessages(docs), nil
}

func (r *messageRepository) UpdateStatus(ctx context.Context, collection, id string, status domain.Status) error {
	err := r.store.Update(ctx, collection, id, map[string]interface{}{domain.FieldStatus: string(status)}, true)
	if err != nil {
		return fmt.Errorf("failed to update status of %s/%s: %w", collection, id, err)
	}
	return nil
}

func (r *messageRepository) Subscribe(ctx context.Context, collection string, cb func([]domain.Message)) (docstore.Unsubscribe, error) {
	return r.store.SubscribeQuery(ctx, collection, timeline(0), func(docs []docstore.Doc) {
		cb(toMessages(docs))
	})
}

func toMessages(docs []docstore.Doc) []domain.Message {
	out := make([]domain.Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.MessageFromDoc(d))
	}
	return out
}
