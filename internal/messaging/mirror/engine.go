// Package mirror keeps the conversation message lists and the per-user
// inboxes in sync. A message created on either side is copied to the other
// with a provenance field, and copies carrying provenance are never copied
// back.
package mirror

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/domain"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/repository"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/resolver"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/logger"
)

type Outcome string

const (
	Mirrored Outcome = "mirrored"
	Skipped  Outcome = "skipped"
	Failed   Outcome = "failed"
)

// Result reports what a handler did with one created message. Callers on the
// trigger path discard it; tests and observers read it.
type Result struct {
	Outcome Outcome
	// Source is the path of the message that triggered the handler.
	Source string
	// Target is the collection the mirror was (or would have been) written to.
	Target         string
	MirrorID       string
	ConversationID string
	Reason         string
	Err            error
}

// ConversationResolver picks the conversation for a user-side message.
type ConversationResolver interface {
	Resolve(ctx context.Context, userID string, msg map[string]interface{}) (resolver.Resolution, error)
}

type Engine struct {
	messages      repository.MessageRepository
	conversations repository.ConversationRepository
	resolver      ConversationResolver
	observe       func(Result)
	log           zerolog.Logger
}

type Option func(*Engine)

// WithObserver registers a callback invoked with every handler result.
func WithObserver(f func(Result)) Option {
	return func(e *Engine) { e.observe = f }
}

func NewEngine(messages repository.MessageRepository, conversations repository.ConversationRepository, r ConversationResolver, opts ...Option) *Engine {
	e := &Engine{
		messages:      messages,
		conversations: conversations,
		resolver:      r,
		log:           logger.Component("mirror"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register wires both handlers to created-message triggers.
func (e *Engine) Register(t docstore.Triggers) {
	t.OnCreate(domain.ConversationMessagePattern, func(ctx context.Context, ev docstore.Event) {
		e.HandleConversationMessage(ctx, ev.Params["conversationId"], ev.ID, ev.Data)
	})
	t.OnCreate(domain.UserMessagePattern, func(ctx context.Context, ev docstore.Event) {
		e.HandleUserMessage(ctx, ev.Params["userId"], ev.ID, ev.Data)
	})
}

// HandleConversationMessage copies a message created in
// conversations/{conversationID}/messages into the inbox of the customer it
// concerns: the sender when a user wrote it, otherwise the recipient.
// Conversation metadata is left alone; the sender maintains it.
func (e *Engine) HandleConversationMessage(ctx context.Context, conversationID, messageID string, msg map[string]interface{}) Result {
	res := Result{
		Source:         docstore.Join(domain.ConversationMessages(conversationID), messageID),
		ConversationID: conversationID,
	}

	if docstore.Has(msg, domain.FieldMirroredFromUser) {
		return e.finish(res.skip("already mirrored from user inbox"))
	}

	target := routeToUser(msg)
	if target == "" {
		return e.finish(res.skip("no user to route to"))
	}
	res.Target = domain.UserMessages(target)

	mirror := carry(msg)
	mirror[domain.FieldConversationID] = conversationID
	mirror[domain.FieldMirroredFromConversation] = conversationID
	mirror[domain.FieldMirroredAt] = docstore.ServerTimestamp

	id, err := e.messages.Create(ctx, res.Target, mirror)
	if err != nil {
		return e.finish(res.fail("write mirror", err))
	}
	res.Outcome = Mirrored
	res.MirrorID = id
	return e.finish(res)
}

// HandleUserMessage copies a message created in users/{userID}/messages into
// its conversation, resolving or creating the conversation first, and then
// refreshes the conversation summary.
func (e *Engine) HandleUserMessage(ctx context.Context, userID, messageID string, msg map[string]interface{}) Result {
	res := Result{Source: docstore.Join(domain.UserMessages(userID), messageID)}

	if docstore.Has(msg, domain.FieldMirroredFromConversation) {
		return e.finish(res.skip("already mirrored from conversation"))
	}

	resolution, err := e.resolver.Resolve(ctx, userID, msg)
	if err != nil {
		return e.finish(res.fail("resolve conversation", err))
	}
	res.ConversationID = resolution.ConversationID
	res.Target = domain.ConversationMessages(resolution.ConversationID)

	mirror := carry(msg)
	mirror[domain.FieldConversationID] = resolution.ConversationID
	setDefault(mirror, domain.FieldSenderType, string(domain.SenderUser))
	setDefault(mirror, domain.FieldSenderID, userID)
	setDefault(mirror, domain.FieldRecipientID, domain.AdminRecipient)
	mirror[domain.FieldMirroredFromUser] = userID
	mirror[domain.FieldMirroredAt] = docstore.ServerTimestamp

	id, err := e.messages.Create(ctx, res.Target, mirror)
	if err != nil {
		return e.finish(res.fail("write mirror", err))
	}
	res.MirrorID = id

	if err := e.conversations.Patch(ctx, resolution.ConversationID, domain.SummaryPatch(mirror)); err != nil {
		return e.finish(res.fail("update conversation summary", err))
	}
	res.Outcome = Mirrored
	return e.finish(res)
}

// routeToUser returns the inbox owner for a conversation message, or "" when
// the message names neither a user sender nor a recipient.
func routeToUser(msg map[string]interface{}) string {
	senderID := docstore.String(msg, domain.FieldSenderID)
	if domain.SenderType(docstore.String(msg, domain.FieldSenderType)) == domain.SenderUser && senderID != "" {
		return senderID
	}
	return docstore.String(msg, domain.FieldRecipientID)
}

// carry copies the original fields. A message without a timestamp gets one so
// the mirror still sorts into the target timeline.
func carry(msg map[string]interface{}) map[string]interface{} {
	out := docstore.Clone(msg)
	if _, ok := out[domain.FieldTimestamp]; !ok {
		out[domain.FieldTimestamp] = docstore.ServerTimestamp
	}
	return out
}

func setDefault(m map[string]interface{}, field, value string) {
	if !docstore.Has(m, field) {
		m[field] = value
	}
}

func (r Result) skip(reason string) Result {
	r.Outcome = Skipped
	r.Reason = reason
	return r
}

func (r Result) fail(step string, err error) Result {
	r.Outcome = Failed
	r.Reason = step
	r.Err = fmt.Errorf("%s: %w", step, err)
	return r
}

func (e *Engine) finish(r Result) Result {
	switch r.Outcome {
	case Mirrored:
		e.log.Debug().Str("source", r.Source).Str("target", r.Target).Str("mirror_id", r.MirrorID).Msg("Mirrored message")
	case Skipped:
		e.log.Debug().Str("source", r.Source).Str("reason", r.Reason).Msg("Skipped mirror")
	case Failed:
		e.log.Error().Err(r.Err).Str("source", r.Source).Str("target", r.Target).Msg("Mirror failed")
	}
	if e.observe != nil {
		e.observe(r)
	}
	return r
}
