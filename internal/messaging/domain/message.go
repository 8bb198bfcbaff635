package domain

import (
	"errors"
	"time"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
)

// Message document fields. The names are shared with the dashboard UI and
// must not change.
const (
	FieldConversationID           = "conversationId"
	FieldSenderID                 = "senderId"
	FieldSenderType               = "senderType"
	FieldSenderName               = "senderName"
	FieldSenderEmail              = "senderEmail"
	FieldSenderAvatar             = "senderAvatar"
	FieldRecipientID              = "recipientId"
	FieldMessage                  = "message"
	FieldTimestamp                = "timestamp"
	FieldStatus                   = "status"
	FieldMirroredFromConversation = "mirroredFromConversation"
	FieldMirroredFromUser         = "mirroredFromUser"
	FieldMirroredAt               = "mirroredAt"
)

// AdminRecipient is the recipient id used for messages addressed to the
// support side.
const AdminRecipient = "admin"

type SenderType string

const (
	SenderUser  SenderType = "user"
	SenderAdmin SenderType = "admin"
)

func (t SenderType) Valid() bool {
	return t == SenderUser || t == SenderAdmin
}

type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

var ErrInvalidStatusTransition = errors.New("invalid message status transition")

var statusRank = map[Status]int{StatusSent: 0, StatusDelivered: 1, StatusRead: 2}

// CanAdvance reports whether a message may move from one status to another.
// Status only moves forward: sent -> delivered -> read.
func CanAdvance(from, to Status) bool {
	f, ok := statusRank[from]
	if !ok {
		f = -1
	}
	t, ok := statusRank[to]
	if !ok {
		return false
	}
	return t > f
}

// Message is a typed view of a message document.
type Message struct {
	ID                       string     `json:"id"`
	ConversationID           string     `json:"conversationId,omitempty"`
	SenderID                 string     `json:"senderId,omitempty"`
	SenderType               SenderType `json:"senderType,omitempty"`
	SenderName               string     `json:"senderName,omitempty"`
	SenderEmail              string     `json:"senderEmail,omitempty"`
	RecipientID              string     `json:"recipientId,omitempty"`
	Message                  string     `json:"message"`
	Timestamp                time.Time  `json:"timestamp"`
	Status                   Status     `json:"status,omitempty"`
	MirroredFromConversation string     `json:"mirroredFromConversation,omitempty"`
	MirroredFromUser         string     `json:"mirroredFromUser,omitempty"`
	MirroredAt               *time.Time `json:"mirroredAt,omitempty"`
}

// IsMirror reports whether the document is a mirror copy of another message.
func IsMirror(data map[string]interface{}) bool {
	return docstore.Has(data, FieldMirroredFromConversation) || docstore.Has(data, FieldMirroredFromUser)
}

func MessageFromDoc(doc docstore.Doc) Message {
	d := doc.Data
	m := Message{
		ID:                       doc.ID,
		ConversationID:           docstore.String(d, FieldConversationID),
		SenderID:                 docstore.String(d, FieldSenderID),
		SenderType:               SenderType(docstore.String(d, FieldSenderType)),
		SenderName:               docstore.String(d, FieldSenderName),
		SenderEmail:              docstore.String(d, FieldSenderEmail),
		RecipientID:              docstore.String(d, FieldRecipientID),
		Message:                  docstore.String(d, FieldMessage),
		Timestamp:                docstore.Time(d, FieldTimestamp),
		Status:                   Status(docstore.String(d, FieldStatus)),
		MirroredFromConversation: docstore.String(d, FieldMirroredFromConversation),
		MirroredFromUser:         docstore.String(d, FieldMirroredFromUser),
	}
	if t := docstore.Time(d, FieldMirroredAt); !t.IsZero() {
		m.MirroredAt = &t
	}
	return m
}
