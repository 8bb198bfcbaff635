package presence

import (
	"context"
	"sync"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
)

// MultiSubscription follows several users at once and reports the whole
// map whenever any member changes.
type MultiSubscription struct {
	tracker *Tracker
	ctx     context.Context
	cb      func(map[string]Record)

	// setMu serialises SetUsers and Close. mu guards the maps and is never
	// held while calling into the store, whose callbacks take it.
	setMu  sync.Mutex
	mu     sync.Mutex
	wanted map[string]bool
	stops  map[string]docstore.Unsubscribe
	state  map[string]Record
	closed bool
}

// SubscribeMany starts following userIDs.
func (t *Tracker) SubscribeMany(ctx context.Context, userIDs []string, cb func(map[string]Record)) (*MultiSubscription, error) {
	m := &MultiSubscription{
		tracker: t,
		ctx:     ctx,
		cb:      cb,
		wanted:  map[string]bool{},
		stops:   map[string]docstore.Unsubscribe{},
		state:   map[string]Record{},
	}
	if err := m.SetUsers(userIDs); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// SetUsers re-targets the subscription. Listeners for users no longer in
// the set are stopped and their entries leave the map.
func (m *MultiSubscription) SetUsers(userIDs []string) error {
	m.setMu.Lock()
	defer m.setMu.Unlock()

	next := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if id != "" {
			next[id] = true
		}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	var drop []docstore.Unsubscribe
	removed := false
	for id := range m.wanted {
		if next[id] {
			continue
		}
		delete(m.wanted, id)
		if _, ok := m.state[id]; ok {
			delete(m.state, id)
			removed = true
		}
		if stop, ok := m.stops[id]; ok {
			drop = append(drop, stop)
			delete(m.stops, id)
		}
	}
	var add []string
	for id := range next {
		if !m.wanted[id] {
			m.wanted[id] = true
			add = append(add, id)
		}
	}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	for _, stop := range drop {
		stop()
	}
	if removed {
		m.cb(snapshot)
	}

	for i, id := range add {
		userID := id
		stop, err := m.tracker.Subscribe(m.ctx, userID, func(r Record) { m.update(userID, r) })
		if err != nil {
			// Users without a listener leave the set so a later SetUsers
			// subscribes them again.
			m.mu.Lock()
			for _, missed := range add[i:] {
				delete(m.wanted, missed)
				delete(m.state, missed)
			}
			m.mu.Unlock()
			return err
		}
		m.mu.Lock()
		m.stops[userID] = stop
		m.mu.Unlock()
	}
	return nil
}

func (m *MultiSubscription) update(userID string, r Record) {
	m.mu.Lock()
	if m.closed || !m.wanted[userID] {
		m.mu.Unlock()
		return
	}
	m.state[userID] = r
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.cb(snapshot)
}

func (m *MultiSubscription) snapshotLocked() map[string]Record {
	out := make(map[string]Record, len(m.state))
	for k, v := range m.state {
		out[k] = v
	}
	return out
}

// Listeners reports how many per-user listeners are live.
func (m *MultiSubscription) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stops)
}

// Close stops every listener. It is safe to call more than once.
func (m *MultiSubscription) Close() {
	m.setMu.Lock()
	defer m.setMu.Unlock()

	m.mu.Lock()
	m.closed = true
	stops := m.stops
	m.stops = map[string]docstore.Unsubscribe{}
	m.wanted = map[string]bool{}
	m.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}
