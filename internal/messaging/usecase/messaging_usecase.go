package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/domain"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/repository"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/resolver"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/fuzzy"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/logger"
)

const (
	maxPreviewLength = 100
	searchWindow     = 500
)

type messagingUsecase struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	resolver      *resolver.Resolver
	notifier      Notifier
	log           zerolog.Logger
}

func NewMessagingUsecase(conversations repository.ConversationRepository, messages repository.MessageRepository, r *resolver.Resolver) MessagingUsecase {
	return &messagingUsecase{
		conversations: conversations,
		messages:      messages,
		resolver:      r,
		log:           logger.Component("messaging"),
	}
}

// SetNotifier enables push notifications for admin replies.
func (u *messagingUsecase) SetNotifier(n Notifier) {
	u.notifier = n
}

func (u *messagingUsecase) ListConversations(ctx context.Context, limit int) ([]domain.Conversation, error) {
	return u.conversations.List(ctx, limit)
}

func (u *messagingUsecase) SearchConversations(ctx context.Context, query string, limit int) ([]domain.Conversation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return u.conversations.List(ctx, limit)
	}
	recent, err := u.conversations.List(ctx, searchWindow)
	if err != nil {
		return nil, err
	}

	type hit struct {
		conv  domain.Conversation
		score float64
	}
	var hits []hit
	for _, c := range recent {
		score := fuzzy.Score(query,
			fuzzy.Field{Value: c.CustomerName, Weight: 100},
			fuzzy.Field{Value: c.CustomerEmail, Weight: 60},
			fuzzy.Field{Value: c.LastMessage, Weight: 20},
		)
		if score > 0 {
			hits = append(hits, hit{conv: c, score: score})
		}
	}
	// Stable keeps recency order among equal scores.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]domain.Conversation, 0, len(hits))
	for _, h := range hits {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, h.conv)
	}
	return out, nil
}

func (u *messagingUsecase) StartConversation(ctx context.Context, c resolver.Customer) (resolver.Resolution, error) {
	return u.resolver.StartConversation(ctx, c)
}

func (u *messagingUsecase) ConversationMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	return u.messages.List(ctx, domain.ConversationMessages(conversationID), limit)
}

func (u *messagingUsecase) UserMessages(ctx context.Context, userID string, limit int) ([]domain.Message, error) {
	return u.messages.List(ctx, domain.UserMessages(userID), limit)
}

func (u *messagingUsecase) SendAdminMessage(ctx context.Context, conversationID string, in SendInput) (*domain.Message, error) {
	text := strings.TrimSpace(in.Message)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	conv, err := u.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}

	data := map[string]interface{}{
		domain.FieldConversationID: conversationID,
		domain.FieldSenderType:     string(domain.SenderAdmin),
		domain.FieldRecipientID:    conv.CustomerID,
		domain.FieldMessage:        text,
		domain.FieldTimestamp:      docstore.ServerTimestamp,
		domain.FieldStatus:         string(domain.StatusSent),
	}
	putIfSet(data, domain.FieldSenderID, in.SenderID)
	putIfSet(data, domain.FieldSenderName, in.SenderName)
	putIfSet(data, domain.FieldSenderEmail, in.SenderEmail)
	putIfSet(data, domain.FieldSenderAvatar, in.SenderAvatar)

	collection := domain.ConversationMessages(conversationID)
	id, err := u.messages.Create(ctx, collection, data)
	if err != nil {
		return nil, err
	}

	// The message is already written; a stale summary is tolerated.
	if err := u.conversations.Patch(ctx, conversationID, domain.SummaryPatch(data)); err != nil {
		u.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("Failed to update conversation summary")
	}

	if in.Notify {
		u.notifyCustomer(conv, id, in.SenderName, text)
	}
	return u.readBack(ctx, collection, id)
}

func (u *messagingUsecase) notifyCustomer(conv *domain.Conversation, messageID, senderName, text string) {
	if u.notifier == nil || conv.CustomerID == "" {
		return
	}
	title := "New message from support"
	if senderName != "" {
		title = fmt.Sprintf("New message from %s", senderName)
	}
	body := text
	if r := []rune(body); len(r) > maxPreviewLength {
		body = string(r[:maxPreviewLength-3]) + "..."
	}
	queued := u.notifier.NotifyAsync(conv.CustomerID, title, body, map[string]string{
		"type":           "chat_message",
		"conversationId": conv.ID,
		"messageId":      messageID,
		"click_action":   "/messages/" + conv.ID,
	})
	if !queued {
		u.log.Warn().Str("user_id", conv.CustomerID).Msg("Notification queue full, dropping push")
	}
}

func (u *messagingUsecase) SendUserMessage(ctx context.Context, userID string, in SendInput) (*domain.Message, error) {
	text := strings.TrimSpace(in.Message)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	data := map[string]interface{}{
		domain.FieldSenderType:  string(domain.SenderUser),
		domain.FieldSenderID:    userID,
		domain.FieldRecipientID: domain.AdminRecipient,
		domain.FieldMessage:     text,
		domain.FieldTimestamp:   docstore.ServerTimestamp,
		domain.FieldStatus:      string(domain.StatusSent),
	}
	putIfSet(data, domain.FieldConversationID, in.ConversationID)
	putIfSet(data, domain.FieldSenderName, in.SenderName)
	putIfSet(data, domain.FieldSenderEmail, in.SenderEmail)
	putIfSet(data, domain.FieldSenderAvatar, in.SenderAvatar)

	collection := domain.UserMessages(userID)
	id, err := u.messages.Create(ctx, collection, data)
	if err != nil {
		return nil, err
	}
	return u.readBack(ctx, collection, id)
}

func (u *messagingUsecase) AdvanceStatus(ctx context.Context, path string, status domain.Status) (*domain.Message, error) {
	collection, id, err := messagePath(path)
	if err != nil {
		return nil, err
	}
	msg, err := u.messages.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if !domain.CanAdvance(msg.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatusTransition, msg.Status, status)
	}
	if err := u.messages.UpdateStatus(ctx, collection, id, status); err != nil {
		return nil, err
	}
	msg.Status = status
	return msg, nil
}

func (u *messagingUsecase) WatchConversation(ctx context.Context, conversationID string, cb func([]domain.Message)) (docstore.Unsubscribe, error) {
	return u.messages.Subscribe(ctx, domain.ConversationMessages(conversationID), cb)
}

func (u *messagingUsecase) readBack(ctx context.Context, collection, id string) (*domain.Message, error) {
	msg, err := u.messages.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return &domain.Message{ID: id}, nil
	}
	return msg, nil
}

// messagePath accepts "conversations/{id}/messages/{mid}" or
// "users/{id}/messages/{mid}".
func messagePath(path string) (string, string, error) {
	collection, id, err := docstore.SplitDocPath(path)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrNotMessagePath, err)
	}
	segs := strings.Split(collection, "/")
	if len(segs) != 3 || segs[2] != domain.MessagesSubcollection ||
		(segs[0] != domain.ConversationsCollection && segs[0] != domain.UsersCollection) {
		return "", "", fmt.Errorf("%w: %q", ErrNotMessagePath, path)
	}
	return collection, id, nil
}

func putIfSet(m map[string]interface{}, field, value string) {
	if value != "" {
		m[field] = value
	}
}
