package repository

import (
	"context"
	"fmt"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/domain"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
)

// ConversationRepository reads and writes conversations/{id} documents.
type ConversationRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Conversation, error)
	// FindFirst returns the first conversation whose field equals value, or nil.
	FindFirst(ctx context.Context, field, value string) (*domain.Conversation, error)
	Create(ctx context.Context, data map[string]interface{}) (string, error)
	// Patch merge-updates the given fields.
	Patch(ctx context.Context, id string, fields map[string]interface{}) error
	List(ctx context.Context, limit int) ([]domain.Conversation, error)
	Subscribe(ctx context.Context, limit int, cb func([]domain.Conversation)) (docstore.Unsubscribe, error)
}

type conversationRepository struct {
	store docstore.Store
}

func NewConversationRepository(store docstore.Store) ConversationRepository {
	return &conversationRepository{store: store}
}

func (r *conversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	doc, err := r.store.Get(ctx, domain.ConversationsCollection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation %s: %w", id, err)
	}
	if doc == nil {
		return nil, nil
	}
	conv := domain.ConversationFromDoc(*doc)
	return &conv, nil
}

func (r *conversationRepository) FindFirst(ctx context.Context, field, value string) (*domain.Conversation, error) {
	q := docstore.Where(field, value)
	q.Limit = 1
	docs, err := r.store.Query(ctx, domain.ConversationsCollection, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations by %s: %w", field, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	conv := domain.ConversationFromDoc(docs[0])
	return &conv, nil
}

func (r *conversationRepository) Create(ctx context.Context, data map[string]interface{}) (string, error) {
	id, err := r.store.Create(ctx, domain.ConversationsCollection, data)
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}
	return id, nil
}

func (r *conversationRepository) Patch(ctx context.Context, id string, fields map[string]interface{}) error {
	if err := r.store.Update(ctx, domain.ConversationsCollection, id, fields, true); err != nil {
		return fmt.Errorf("failed to update conversation %s: %w", id, err)
	}
	return nil
}

func listQuery(limit int) docstore.Query {
	return docstore.Query{OrderBy: domain.FieldLastMessageTime, Dir: docstore.Desc, Limit: limit}
}

func (r *conversationRepository) List(ctx context.Context, limit int) ([]domain.Conversation, error) {
	docs, err := r.store.Query(ctx, domain.ConversationsCollection, listQuery(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	out := make([]domain.Conversation, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.ConversationFromDoc(d))
	}
	return out, nil
}

func (r *conversationRepository) Subscribe(ctx context.Context, limit int, cb func([]domain.Conversation)) (docstore.Unsubscribe, error) {
	return r.store.SubscribeQuery(ctx, domain.ConversationsCollection, listQuery(limit), func(docs []docstore.Doc) {
		out := make([]domain.Conversation, 0, len(docs))
		for _, d := range docs {
			out = append(out, domain.ConversationFromDoc(d))
		}
		cb(out)
	})
}
