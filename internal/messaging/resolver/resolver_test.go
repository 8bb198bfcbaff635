package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/domain"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/repository"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/clock"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore/memstore"
)

func setup(t *testing.T) (*Resolver, *memstore.Store) {
	t.Helper()
	store := memstore.New(clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
	return New(repository.NewConversationRepository(store)), store
}

func seed(t *testing.T, store *memstore.Store, data map[string]interface{}) string {
	t.Helper()
	id, err := store.Create(context.Background(), domain.ConversationsCollection, data)
	require.NoError(t, err)
	return id
}

func TestResolve_ExplicitConversationWins(t *testing.T) {
	r, store := setup(t)
	seed(t, store, map[string]interface{}{domain.FieldCustomerID: "U1"})

	res, err := r.Resolve(context.Background(), "U1", map[string]interface{}{
		domain.FieldConversationID: "C1",
	})
	require.NoError(t, err)
	assert.Equal(t, "C1", res.ConversationID)
	assert.Equal(t, MatchExplicit, res.Match)
	assert.Equal(t, 1, store.Len(domain.ConversationsCollection))
}

func TestResolve_CustomerIDBeforeEmail(t *testing.T) {
	r, store := setup(t)
	byEmail := seed(t, store, map[string]interface{}{domain.FieldCustomerEmail: "u1@x.com"})
	byID := seed(t, store, map[string]interface{}{domain.FieldCustomerID: "U1"})

	res, err := r.Resolve(context.Background(), "U1", map[string]interface{}{
		domain.FieldSenderEmail: "u1@x.com",
	})
	require.NoError(t, err)
	assert.Equal(t, byID, res.ConversationID)
	assert.NotEqual(t, byEmail, res.ConversationID)
	assert.False(t, res.Created())
	assert.Equal(t, 2, store.Len(domain.ConversationsCollection))
}

func TestResolve_FallsBackToEmail(t *testing.T) {
	r, store := setup(t)
	byEmail := seed(t, store, map[string]interface{}{
		domain.FieldCustomerID:    "legacy-id",
		domain.FieldCustomerEmail: "u1@x.com",
	})

	res, err := r.Resolve(context.Background(), "U1", map[string]interface{}{
		domain.FieldSenderEmail: "u1@x.com",
	})
	require.NoError(t, err)
	assert.Equal(t, byEmail, res.ConversationID)
	assert.Equal(t, MatchEmail, res.Match)
}

func TestResolve_FirstMatchOnDuplicates(t *testing.T) {
	r, store := setup(t)
	first := seed(t, store, map[string]interface{}{domain.FieldCustomerID: "U1"})
	seed(t, store, map[string]interface{}{domain.FieldCustomerID: "U1"})

	res, err := r.Resolve(context.Background(), "U1", map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, first, res.ConversationID)
}

func TestResolve_CreatesExactlyOne(t *testing.T) {
	r, store := setup(t)

	res, err := r.Resolve(context.Background(), "U1", map[string]interface{}{
		domain.FieldMessage:     "hi",
		domain.FieldSenderEmail: "u1@x.com",
		domain.FieldSenderName:  "Uma",
	})
	require.NoError(t, err)
	assert.True(t, res.Created())
	require.Equal(t, 1, store.Len(domain.ConversationsCollection))

	doc, err := store.Get(context.Background(), domain.ConversationsCollection, res.ConversationID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	conv := domain.ConversationFromDoc(*doc)
	assert.Equal(t, "U1", conv.CustomerID)
	assert.Equal(t, "Uma", conv.CustomerName)
	assert.Equal(t, "u1@x.com", conv.CustomerEmail)
	assert.Equal(t, "hi", conv.LastMessage)
	assert.Equal(t, "user", conv.LastMessageSender)
	assert.Equal(t, int64(1), conv.UnreadCount)
	assert.False(t, conv.IsOnline)
	assert.False(t, conv.LastMessageTime.IsZero())
}

func TestResolve_CustomerNameFallbacks(t *testing.T) {
	tests := []struct {
		name string
		msg  map[string]interface{}
		want string
	}{
		{"sender name", map[string]interface{}{domain.FieldSenderName: "Ann", domain.FieldSenderEmail: "a@x.com"}, "Ann"},
		{"email", map[string]interface{}{domain.FieldSenderEmail: "a@x.com"}, "a@x.com"},
		{"unknown", map[string]interface{}{}, "Unknown User"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := setup(t)
			res, err := r.Resolve(context.Background(), "U9", tt.msg)
			require.NoError(t, err)
			doc, err := store.Get(context.Background(), domain.ConversationsCollection, res.ConversationID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, docstore.String(doc.Data, domain.FieldCustomerName))
		})
	}
}

func TestResolve_QueryError(t *testing.T) {
	r, store := setup(t)
	store.SetFault(func(op memstore.Op, _ string) error {
		if op == memstore.OpQuery {
			return assert.AnError
		}
		return nil
	})

	_, err := r.Resolve(context.Background(), "U1", map[string]interface{}{})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, store.Len(domain.ConversationsCollection))
}

func TestStartConversation(t *testing.T) {
	r, store := setup(t)
	ctx := context.Background()

	_, err := r.StartConversation(ctx, Customer{})
	require.ErrorIs(t, err, ErrMissingCustomer)

	created, err := r.StartConversation(ctx, Customer{ID: "U2", Email: "u2@x.com"})
	require.NoError(t, err)
	assert.True(t, created.Created())

	again, err := r.StartConversation(ctx, Customer{ID: "U2"})
	require.NoError(t, err)
	assert.Equal(t, created.ConversationID, again.ConversationID)
	assert.Equal(t, MatchCustomer, again.Match)

	doc, err := store.Get(ctx, domain.ConversationsCollection, created.ConversationID)
	require.NoError(t, err)
	conv := domain.ConversationFromDoc(*doc)
	assert.Equal(t, "u2@x.com", conv.CustomerName)
	assert.Equal(t, int64(0), conv.UnreadCount)
	assert.Empty(t, conv.LastMessage)
}
