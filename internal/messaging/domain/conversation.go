package domain

import (
	"time"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
)

// Conversation document fields.
const (
	FieldCustomerID        = "customerId"
	FieldCustomerName      = "customerName"
	FieldCustomerEmail     = "customerEmail"
	FieldAvatar            = "avatar"
	FieldIsOnline          = "isOnline"
	FieldLastMessage       = "lastMessage"
	FieldLastMessageTime   = "lastMessageTime"
	FieldLastMessageSender = "lastMessageSender"
	FieldUnreadCount       = "unreadCount"
	FieldCreatedAt         = "createdAt"
)

const UnknownCustomerName = "Unknown User"

// Collection paths shared with the dashboard UI.
const (
	ConversationsCollection = "conversations"
	UsersCollection         = "users"
	UserTokensCollection    = "user_tokens"
	MessagesSubcollection   = "messages"
)

// ConversationMessages returns "conversations/{id}/messages".
func ConversationMessages(conversationID string) string {
	return docstore.Join(ConversationsCollection, conversationID, MessagesSubcollection)
}

// UserMessages returns "users/{id}/messages".
func UserMessages(userID string) string {
	return docstore.Join(UsersCollection, userID, MessagesSubcollection)
}

// Trigger patterns for created messages.
var (
	ConversationMessagePattern = docstore.Join(ConversationsCollection, "{conversationId}", MessagesSubcollection, "{messageId}")
	UserMessagePattern         = docstore.Join(UsersCollection, "{userId}", MessagesSubcollection, "{messageId}")
)

// Conversation is a typed view of a conversation document. isOnline is a
// denormalised snapshot and may be stale.
type Conversation struct {
	ID                string    `json:"id"`
	CustomerID        string    `json:"customerId"`
	CustomerName      string    `json:"customerName"`
	CustomerEmail     string    `json:"customerEmail,omitempty"`
	Avatar            string    `json:"avatar,omitempty"`
	IsOnline          bool      `json:"isOnline"`
	LastMessage       string    `json:"lastMessage,omitempty"`
	LastMessageTime   time.Time `json:"lastMessageTime"`
	LastMessageSender string    `json:"lastMessageSender,omitempty"`
	UnreadCount       int64     `json:"unreadCount"`
}

func ConversationFromDoc(doc docstore.Doc) Conversation {
	d := doc.Data
	return Conversation{
		ID:                doc.ID,
		CustomerID:        docstore.String(d, FieldCustomerID),
		CustomerName:      docstore.String(d, FieldCustomerName),
		CustomerEmail:     docstore.String(d, FieldCustomerEmail),
		Avatar:            docstore.String(d, FieldAvatar),
		IsOnline:          docstore.Bool(d, FieldIsOnline),
		LastMessage:       docstore.String(d, FieldLastMessage),
		LastMessageTime:   docstore.Time(d, FieldLastMessageTime),
		LastMessageSender: docstore.String(d, FieldLastMessageSender),
		UnreadCount:       docstore.Int(d, FieldUnreadCount),
	}
}

// SummaryPatch projects a new message onto the conversation's denormalised
// summary fields. The message sub-collection stays the source of truth.
func SummaryPatch(message map[string]interface{}) map[string]interface{} {
	sender := docstore.String(message, FieldSenderType)
	if sender == "" {
		sender = string(SenderUser)
	}
	return map[string]interface{}{
		FieldLastMessage:       docstore.String(message, FieldMessage),
		FieldLastMessageTime:   docstore.ServerTimestamp,
		FieldLastMessageSender: sender,
	}
}
