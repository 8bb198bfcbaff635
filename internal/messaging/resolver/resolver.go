// Package resolver maps a user's message to the conversation it belongs to,
// creating one on first contact.
package resolver

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/domain"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/repository"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/logger"
)

var ErrMissingCustomer = errors.New("customer id is required")

// Match says which rule picked the conversation.
type Match string

const (
	MatchExplicit Match = "explicit"
	MatchCustomer Match = "customerId"
	MatchEmail    Match = "customerEmail"
	MatchCreated  Match = "created"
)

// Resolution is the outcome of Resolve.
type Resolution struct {
	ConversationID string
	Match          Match
}

func (r Resolution) Created() bool { return r.Match == MatchCreated }

// Customer describes the user an admin starts a conversation with.
type Customer struct {
	ID     string `json:"customerId" binding:"required"`
	Name   string `json:"customerName"`
	Email  string `json:"customerEmail"`
	Avatar string `json:"avatar"`
}

type Resolver struct {
	conversations repository.ConversationRepository
	log           zerolog.Logger
}

func New(conversations repository.ConversationRepository) *Resolver {
	return &Resolver{conversations: conversations, log: logger.Component("resolver")}
}

// Resolve picks the conversation for a message written to users/{userID}/messages.
// First match wins: the message's own conversationId, then a conversation
// whose customerId is userID, then one whose customerEmail is the sender's
// email. Without a match a conversation is created.
//
// Find-or-create is not atomic. Two first-contact messages racing here can
// each create a conversation for the same customer.
func (r *Resolver) Resolve(ctx context.Context, userID string, msg map[string]interface{}) (Resolution, error) {
	if id := docstore.String(msg, domain.FieldConversationID); id != "" {
		return Resolution{ConversationID: id, Match: MatchExplicit}, nil
	}

	conv, err := r.conversations.FindFirst(ctx, domain.FieldCustomerID, userID)
	if err != nil {
		return Resolution{}, err
	}
	if conv != nil {
		return Resolution{ConversationID: conv.ID, Match: MatchCustomer}, nil
	}

	email := docstore.String(msg, domain.FieldSenderEmail)
	if email != "" {
		conv, err = r.conversations.FindFirst(ctx, domain.FieldCustomerEmail, email)
		if err != nil {
			return Resolution{}, err
		}
		if conv != nil {
			return Resolution{ConversationID: conv.ID, Match: MatchEmail}, nil
		}
	}

	id, err := r.conversations.Create(ctx, newConversation(userID, msg))
	if err != nil {
		return Resolution{}, err
	}
	r.log.Info().Str("user_id", userID).Str("conversation_id", id).Msg("Created conversation on first contact")
	return Resolution{ConversationID: id, Match: MatchCreated}, nil
}

func newConversation(userID string, msg map[string]interface{}) map[string]interface{} {
	name := docstore.String(msg, domain.FieldSenderName)
	email := docstore.String(msg, domain.FieldSenderEmail)
	if name == "" {
		name = email
	}
	if name == "" {
		name = domain.UnknownCustomerName
	}

	data := map[string]interface{}{
		domain.FieldCustomerID:    userID,
		domain.FieldCustomerName:  name,
		domain.FieldCustomerEmail: email,
		domain.FieldAvatar:        docstore.String(msg, domain.FieldSenderAvatar),
		domain.FieldUnreadCount:   int64(1),
		domain.FieldIsOnline:      false,
		domain.FieldCreatedAt:     docstore.ServerTimestamp,
	}
	for k, v := range domain.SummaryPatch(msg) {
		data[k] = v
	}
	return data
}

// StartConversation returns the customer's conversation, creating an empty
// one when none exists. It backs the admin's "start chat" action.
func (r *Resolver) StartConversation(ctx context.Context, c Customer) (Resolution, error) {
	if c.ID == "" {
		return Resolution{}, ErrMissingCustomer
	}
	conv, err := r.conversations.FindFirst(ctx, domain.FieldCustomerID, c.ID)
	if err != nil {
		return Resolution{}, err
	}
	if conv != nil {
		return Resolution{ConversationID: conv.ID, Match: MatchCustomer}, nil
	}

	name := c.Name
	if name == "" {
		name = c.Email
	}
	if name == "" {
		name = domain.UnknownCustomerName
	}
	id, err := r.conversations.Create(ctx, map[string]interface{}{
		domain.FieldCustomerID:      c.ID,
		domain.FieldCustomerName:    name,
		domain.FieldCustomerEmail:   c.Email,
		domain.FieldAvatar:          c.Avatar,
		domain.FieldUnreadCount:     int64(0),
		domain.FieldIsOnline:        false,
		domain.FieldLastMessageTime: docstore.ServerTimestamp,
		domain.FieldCreatedAt:       docstore.ServerTimestamp,
	})
	if err != nil {
		return Resolution{}, err
	}
	r.log.Info().Str("customer_id", c.ID).Str("conversation_id", id).Msg("Started conversation")
	return Resolution{ConversationID: id, Match: MatchCreated}, nil
}
