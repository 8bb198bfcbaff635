// Package presence keeps a coarse online/offline flag per user on the
// users/{userId} document and lets callers follow it live.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/domain"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
)

const (
	FieldIsOnline = "isOnline"
	FieldLastSeen = "lastSeen"
)

// Record is the presence state stored on a user document.
type Record struct {
	UserID   string    `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

func recordFrom(userID string, doc *docstore.Doc) Record {
	r := Record{UserID: userID}
	if doc == nil {
		return r
	}
	r.IsOnline = docstore.Bool(doc.Data, FieldIsOnline)
	r.LastSeen = docstore.Time(doc.Data, FieldLastSeen)
	return r
}

// Writer persists presence flags.
type Writer interface {
	Write(ctx context.Context, userID string, online bool) error
}

type storeWriter struct {
	store docstore.Store
}

// NewStoreWriter merges isOnline and a server-time lastSeen into users/{id}.
func NewStoreWriter(store docstore.Store) Writer {
	return &storeWriter{store: store}
}

func (w *storeWriter) Write(ctx context.Context, userID string, online bool) error {
	err := w.store.Update(ctx, domain.UsersCollection, userID, map[string]interface{}{
		FieldIsOnline: online,
		FieldLastSeen: docstore.ServerTimestamp,
	}, true)
	if err != nil {
		return fmt.Errorf("failed to write presence for %s: %w", userID, err)
	}
	return nil
}
