package usecase

import (
	"context"
	"errors"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/domain"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/resolver"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrEmptyMessage         = errors.New("message text is required")
	ErrNotMessagePath       = errors.New("path does not name a message")
)

// SendInput is a message written by either side.
type SendInput struct {
	SenderID       string
	SenderName     string
	SenderEmail    string
	SenderAvatar   string
	Message        string
	ConversationID string
	// Notify asks for a push notification to the recipient.
	Notify bool
}

// Notifier queues a push notification without waiting for it.
type Notifier interface {
	NotifyAsync(userID, title, body string, data map[string]string) bool
}

type MessagingUsecase interface {
	ListConversations(ctx context.Context, limit int) ([]domain.Conversation, error)
	// SearchConversations ranks recent conversations by a typo-tolerant
	// match on customer name, email and last message.
	SearchConversations(ctx context.Context, query string, limit int) ([]domain.Conversation, error)
	StartConversation(ctx context.Context, c resolver.Customer) (resolver.Resolution, error)
	ConversationMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	// SendAdminMessage writes an admin reply into the conversation and
	// refreshes its summary. The mirror copies it into the customer's inbox.
	SendAdminMessage(ctx context.Context, conversationID string, in SendInput) (*domain.Message, error)
	// SendUserMessage writes into the user's inbox. The mirror copies it
	// into the conversation and maintains the summary.
	SendUserMessage(ctx context.Context, userID string, in SendInput) (*domain.Message, error)
	UserMessages(ctx context.Context, userID string, limit int) ([]domain.Message, error)
	// AdvanceStatus moves a message's status forward.
	AdvanceStatus(ctx context.Context, path string, status domain.Status) (*domain.Message, error)
	WatchConversation(ctx context.Context, conversationID string, cb func([]domain.Message)) (docstore.Unsubscribe, error)
	SetNotifier(n Notifier)
}
