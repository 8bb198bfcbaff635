package presence

import (
	"context"
	"sync"
	"time"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/clock"
)

type State string

const (
	Active  State = "active"
	Grace   State = "grace"
	Offline State = "offline"
)

// missedBeats is how many heartbeat intervals may pass without any client
// event before the session is closed and the user written offline.
const missedBeats = 2

// Session is one open client (a browser tab) reporting visibility changes.
//
// Hiding arms a grace timer unconditionally. When a timer fires it acts
// only if it is the most recent one and the session is still hidden, so a
// user who comes back in time never needs the timer cancelled.
//
// The client pings while it is open. The server heartbeat re-asserts online
// only when a ping arrived within the last interval, and a session that stays
// silent for missedBeats intervals is ended.
type Session struct {
	ID     string
	UserID string

	tracker *Tracker

	mu         sync.Mutex
	state      State
	hidden     bool
	generation uint64
	heartbeat  clock.Timer
	lastSeen   time.Time
	ended      bool
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Hide handles the tab becoming hidden.
func (s *Session) Hide() { s.away() }

// Blur handles the window losing focus.
func (s *Session) Blur() { s.away() }

// Show handles the tab becoming visible again.
func (s *Session) Show() { s.back() }

// Focus handles the window regaining focus.
func (s *Session) Focus() { s.back() }

// Ping records that the client is still there.
func (s *Session) Ping() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.touch()
	}
}

// touch records client activity. Callers hold s.mu.
func (s *Session) touch() {
	s.lastSeen = s.tracker.clock.Now()
}

func (s *Session) away() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.touch()
	s.hidden = true
	if s.state == Active {
		s.state = Grace
	}
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	s.tracker.clock.AfterFunc(s.tracker.grace, func() { s.expire(gen) })
}

func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	if s.ended || gen != s.generation || !s.hidden || s.state != Grace {
		s.mu.Unlock()
		return
	}
	s.state = Offline
	s.mu.Unlock()

	s.tracker.write(s, false)
}

func (s *Session) back() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.touch()
	s.hidden = false
	prev := s.state
	s.state = Active
	s.mu.Unlock()

	if prev == Offline {
		s.tracker.write(s, true)
	}
}

// Unload marks the user offline and ends the session.
func (s *Session) Unload() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.end()
	s.mu.Unlock()

	s.tracker.write(s, false)
	s.tracker.forget(s.ID)
}

// end stops the heartbeat. Callers hold s.mu.
func (s *Session) end() {
	s.ended = true
	s.state = Offline
	if s.heartbeat != nil {
		s.heartbeat.Stop()
	}
}

func (s *Session) scheduleHeartbeat() {
	s.heartbeat = s.tracker.clock.AfterFunc(s.tracker.heartbeatInterval, s.beat)
}

// beat re-asserts online while the session is active, visible and recently
// heard from, then reschedules itself. A session silent for missedBeats
// intervals is ended and written offline.
func (s *Session) beat() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	interval := s.tracker.heartbeatInterval
	idle := s.tracker.clock.Now().Sub(s.lastSeen)
	if idle >= missedBeats*interval {
		wasOnline := s.state != Offline
		s.end()
		s.mu.Unlock()

		s.tracker.log.Info().Str("user_id", s.UserID).Str("session_id", s.ID).Dur("idle", idle).Msg("Presence session expired")
		if wasOnline {
			s.tracker.write(s, false)
		}
		s.tracker.forget(s.ID)
		return
	}
	s.scheduleHeartbeat()
	alive := s.state == Active && !s.hidden && idle <= interval
	s.mu.Unlock()

	if alive {
		s.tracker.write(s, true)
	}
}

func (t *Tracker) write(s *Session, online bool) {
	if err := t.writer.Write(context.Background(), s.UserID, online); err != nil {
		t.log.Warn().Err(err).Str("user_id", s.UserID).Str("session_id", s.ID).Bool("online", online).Msg("Presence write failed")
		return
	}
	t.log.Debug().Str("user_id", s.UserID).Str("session_id", s.ID).Bool("online", online).Msg("Presence written")
}
