package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/domain"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/mirror"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/repository"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/resolver"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/clock"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore/memstore"
)

type notice struct {
	userID, title, body string
	data                map[string]string
}

type fakeNotifier struct {
	sent []notice
	full bool
}

func (f *fakeNotifier) NotifyAsync(userID, title, body string, data map[string]string) bool {
	if f.full {
		return false
	}
	f.sent = append(f.sent, notice{userID, title, body, data})
	return true
}

func setup(t *testing.T) (MessagingUsecase, *memstore.Store, *fakeNotifier) {
	t.Helper()
	store := memstore.New(clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
	conversations := repository.NewConversationRepository(store)
	messages := repository.NewMessageRepository(store)
	r := resolver.New(conversations)
	mirror.NewEngine(messages, conversations, r).Register(store)

	uc := NewMessagingUsecase(conversations, messages, r)
	n := &fakeNotifier{}
	uc.SetNotifier(n)
	return uc, store, n
}

func TestSendUserMessage_ReachesConversation(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()

	msg, err := uc.SendUserMessage(ctx, "U1", SendInput{Message: " hi ", SenderEmail: "u1@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Message)
	assert.Equal(t, domain.StatusSent, msg.Status)

	convs, err := uc.ListConversations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "hi", convs[0].LastMessage)

	msgs, err := uc.ConversationMessages(ctx, convs[0].ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "U1", msgs[0].MirroredFromUser)
}

func TestSendAdminMessage(t *testing.T) {
	uc, _, n := setup(t)
	ctx := context.Background()

	start, err := uc.StartConversation(ctx, resolver.Customer{ID: "U1", Name: "Uma"})
	require.NoError(t, err)

	long := strings.Repeat("x", 150)
	msg, err := uc.SendAdminMessage(ctx, start.ConversationID, SendInput{SenderID: "admin-1", Message: long, Notify: true})
	require.NoError(t, err)
	assert.Equal(t, domain.SenderAdmin, msg.SenderType)
	assert.Equal(t, "U1", msg.RecipientID)

	inbox, err := uc.UserMessages(ctx, "U1", 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, start.ConversationID, inbox[0].MirroredFromConversation)

	convs, err := uc.ListConversations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "admin", convs[0].LastMessageSender)

	require.Len(t, n.sent, 1)
	assert.Equal(t, "U1", n.sent[0].userID)
	assert.Len(t, n.sent[0].body, maxPreviewLength)
	assert.Equal(t, start.ConversationID, n.sent[0].data["conversationId"])
}

func TestSendAdminMessage_Errors(t *testing.T) {
	uc, _, n := setup(t)
	ctx := context.Background()

	_, err := uc.SendAdminMessage(ctx, "missing", SendInput{Message: "x"})
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = uc.SendAdminMessage(ctx, "missing", SendInput{Message: "  "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, n.sent)
}

func TestAdvanceStatus(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()

	msg, err := uc.SendUserMessage(ctx, "U1", SendInput{Message: "hi"})
	require.NoError(t, err)
	path := domain.UserMessages("U1") + "/" + msg.ID

	updated, err := uc.AdvanceStatus(ctx, path, domain.StatusRead)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRead, updated.Status)

	_, err = uc.AdvanceStatus(ctx, path, domain.StatusDelivered)
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	_, err = uc.AdvanceStatus(ctx, "users/U1/messages/nope", domain.StatusRead)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	_, err = uc.AdvanceStatus(ctx, "conversations/C1", domain.StatusRead)
	assert.ErrorIs(t, err, ErrNotMessagePath)
}

func TestWatchConversation(t *testing.T) {
	uc, store, _ := setup(t)
	ctx := context.Background()
	start, err := uc.StartConversation(ctx, resolver.Customer{ID: "U1"})
	require.NoError(t, err)

	var seen [][]domain.Message
	stop, err := uc.WatchConversation(ctx, start.ConversationID, func(m []domain.Message) { seen = append(seen, m) })
	require.NoError(t, err)

	_, err = uc.SendAdminMessage(ctx, start.ConversationID, SendInput{Message: "hello"})
	require.NoError(t, err)
	stop()
	stop()

	require.Len(t, seen, 2)
	assert.Empty(t, seen[0])
	assert.Len(t, seen[1], 1)
	assert.Equal(t, 0, store.Subscribers())
}

func TestSearchConversations(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()

	for _, c := range []resolver.Customer{
		{ID: "U1", Name: "Maria Lopez", Email: "maria@x.com"},
		{ID: "U2", Name: "Marla Stone", Email: "ms@x.com"},
		{ID: "U3", Name: "Bob Brown", Email: "bob@x.com"},
	} {
		_, err := uc.StartConversation(ctx, c)
		require.NoError(t, err)
	}

	got, err := uc.SearchConversations(ctx, "maria", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "U1", got[0].CustomerID)
	assert.Equal(t, "U2", got[1].CustomerID)

	got, err = uc.SearchConversations(ctx, "maria", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	all, err := uc.SearchConversations(ctx, "  ", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
