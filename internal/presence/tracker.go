package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/domain"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/clock"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/logger"
)

const (
	DefaultGracePeriod       = 30 * time.Second
	DefaultHeartbeatInterval = 5 * time.Minute
)

var (
	ErrSessionNotFound = errors.New("presence session not found")
	ErrUnknownEvent    = errors.New("unknown presence event")
)

type Options struct {
	GracePeriod       time.Duration
	HeartbeatInterval time.Duration
	// Writer defaults to the store writer.
	Writer Writer
}

// Tracker owns the open sessions and reads presence back from the store.
// Sessions of the same user are not coordinated: the last write wins.
type Tracker struct {
	store             docstore.Store
	writer            Writer
	clock             clock.Clock
	grace             time.Duration
	heartbeatInterval time.Duration
	log               zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewTracker(store docstore.Store, clk clock.Clock, opts Options) *Tracker {
	if clk == nil {
		clk = clock.Real()
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.Writer == nil {
		opts.Writer = NewStoreWriter(store)
	}
	return &Tracker{
		store:             store,
		writer:            opts.Writer,
		clock:             clk,
		grace:             opts.GracePeriod,
		heartbeatInterval: opts.HeartbeatInterval,
		log:               logger.Component("presence"),
		sessions:          map[string]*Session{},
	}
}

// Start opens a visible session, marks the user online and starts its
// heartbeat.
func (t *Tracker) Start(userID string) *Session {
	s := &Session{
		ID:       uuid.New().String(),
		UserID:   userID,
		tracker:  t,
		state:    Active,
		lastSeen: t.clock.Now(),
	}
	t.mu.Lock()
	t.sessions[s.ID] = s
	t.mu.Unlock()

	s.mu.Lock()
	s.scheduleHeartbeat()
	s.mu.Unlock()

	t.write(s, true)
	t.log.Info().Str("user_id", userID).Str("session_id", s.ID).Msg("Presence session started")
	return s
}

func (t *Tracker) Session(id string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	return s, ok
}

// Handle applies a named client event to a session.
func (t *Tracker) Handle(sessionID, event string) (State, error) {
	s, ok := t.Session(sessionID)
	if !ok {
		return "", ErrSessionNotFound
	}
	switch event {
	case "hide", "hidden":
		s.Hide()
	case "blur":
		s.Blur()
	case "show", "visible":
		s.Show()
	case "focus":
		s.Focus()
	case "heartbeat", "ping":
		s.Ping()
	case "unload":
		s.Unload()
		return Offline, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	return s.State(), nil
}

// Sessions reports how many sessions are open.
func (t *Tracker) Sessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

func (t *Tracker) forget(id string) {
	t.mu.Lock()
	delete(t.sessions, id)
	t.mu.Unlock()
}

// Close stops every session's timers without writing anything.
func (t *Tracker) Close() {
	t.mu.Lock()
	sessions := t.sessions
	t.sessions = map[string]*Session{}
	t.mu.Unlock()

	for _, s := range sessions {
		s.mu.Lock()
		s.end()
		s.mu.Unlock()
	}
}

// Get reads a user's current presence.
func (t *Tracker) Get(ctx context.Context, userID string) (Record, error) {
	doc, err := t.store.Get(ctx, domain.UsersCollection, userID)
	if err != nil {
		return Record{}, fmt.Errorf("failed to read presence for %s: %w", userID, err)
	}
	return recordFrom(userID, doc), nil
}

// Subscribe calls cb with the user's presence now and on every change.
func (t *Tracker) Subscribe(ctx context.Context, userID string, cb func(Record)) (docstore.Unsubscribe, error) {
	return t.store.SubscribeDoc(ctx, domain.UsersCollection, userID, func(doc *docstore.Doc) {
		cb(recordFrom(userID, doc))
	})
}
