package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/clock"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore/memstore"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type write struct {
	userID string
	online bool
}

type recordingWriter struct {
	mu     sync.Mutex
	writes []write
}

func (w *recordingWriter) Write(_ context.Context, userID string, online bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, write{userID, online})
	return nil
}

func (w *recordingWriter) all() []write {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]write(nil), w.writes...)
}

func newTracker(t *testing.T) (*Tracker, *clock.Fake, *recordingWriter) {
	t.Helper()
	clk := clock.NewFake(t0)
	w := &recordingWriter{}
	tr := NewTracker(memstore.New(clk), clk, Options{Writer: w})
	t.Cleanup(tr.Close)
	return tr, clk, w
}

func TestStartWritesOnline(t *testing.T) {
	tr, _, w := newTracker(t)
	s := tr.Start("U1")
	assert.Equal(t, Active, s.State())
	assert.Equal(t, []write{{"U1", true}}, w.all())
}

func TestGracePeriod(t *testing.T) {
	t.Run("back before threshold", func(t *testing.T) {
		tr, clk, w := newTracker(t)
		s := tr.Start("U1")

		s.Hide()
		assert.Equal(t, Grace, s.State())
		clk.Advance(29 * time.Second)
		s.Show()
		clk.Advance(10 * time.Second)

		assert.Equal(t, Active, s.State())
		assert.Equal(t, []write{{"U1", true}}, w.all())
	})

	t.Run("still hidden after threshold", func(t *testing.T) {
		tr, clk, w := newTracker(t)
		s := tr.Start("U1")

		s.Hide()
		clk.Advance(31 * time.Second)

		assert.Equal(t, Offline, s.State())
		assert.Equal(t, []write{{"U1", true}, {"U1", false}}, w.all())
	})

	t.Run("latest hide wins", func(t *testing.T) {
		tr, clk, w := newTracker(t)
		s := tr.Start("U1")

		s.Hide()
		clk.Advance(20 * time.Second)
		s.Show()
		s.Blur()
		clk.Advance(15 * time.Second) // first timer fires here and is stale
		assert.Equal(t, Grace, s.State())
		assert.Len(t, w.all(), 1)

		clk.Advance(15 * time.Second)
		assert.Equal(t, Offline, s.State())
		assert.Equal(t, []write{{"U1", true}, {"U1", false}}, w.all())
	})
}

func TestReturnFromOffline(t *testing.T) {
	tr, clk, w := newTracker(t)
	s := tr.Start("U1")

	s.Hide()
	clk.Advance(time.Minute)
	s.Focus()

	assert.Equal(t, Active, s.State())
	assert.Equal(t, []write{{"U1", true}, {"U1", false}, {"U1", true}}, w.all())
}

func TestHeartbeat(t *testing.T) {
	tr, clk, w := newTracker(t)
	s := tr.Start("U1")

	clk.Advance(5 * time.Minute)
	s.Ping()
	clk.Advance(5 * time.Minute)
	assert.Len(t, w.all(), 3)

	s.Hide()
	clk.Advance(5 * time.Minute)
	// grace expiry writes offline; the heartbeat stays quiet while hidden
	assert.Equal(t, write{"U1", false}, w.all()[3])
	assert.Len(t, w.all(), 4)
}

func TestHeartbeatNeedsRecentPing(t *testing.T) {
	tr, clk, w := newTracker(t)
	s := tr.Start("U1")

	for i := 0; i < 12; i++ {
		clk.Advance(5 * time.Minute)
		s.Ping()
	}
	assert.Len(t, w.all(), 13)
	assert.Equal(t, 1, tr.Sessions())
	assert.Equal(t, Active, s.State())

	clk.Advance(time.Minute)
	s.Ping()
	clk.Advance(4 * time.Minute)
	assert.Len(t, w.all(), 14)

	// Last ping is nine minutes old: still open, but not refreshed.
	clk.Advance(5 * time.Minute)
	assert.Len(t, w.all(), 14)
	assert.Equal(t, 1, tr.Sessions())

	clk.Advance(5 * time.Minute)
	assert.Equal(t, write{"U1", false}, w.all()[14])
	assert.Equal(t, 0, tr.Sessions())
}

func TestSilentSessionExpires(t *testing.T) {
	tr, clk, w := newTracker(t)
	s := tr.Start("U1")

	clk.Advance(24 * time.Hour)

	assert.Equal(t, []write{{"U1", true}, {"U1", true}, {"U1", false}}, w.all())
	assert.Equal(t, Offline, s.State())
	assert.Equal(t, 0, tr.Sessions())
	assert.Equal(t, 0, clk.Pending())

	_, err := tr.Handle(s.ID, "heartbeat")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSilentHiddenSessionExpiresWithoutExtraWrite(t *testing.T) {
	tr, clk, w := newTracker(t)
	s := tr.Start("U1")

	s.Hide()
	clk.Advance(time.Hour)

	assert.Equal(t, []write{{"U1", true}, {"U1", false}}, w.all())
	assert.Equal(t, 0, tr.Sessions())
}

func TestUnload(t *testing.T) {
	tr, clk, w := newTracker(t)
	s := tr.Start("U1")

	s.Unload()
	s.Unload()
	assert.Equal(t, Offline, s.State())
	assert.Equal(t, 0, tr.Sessions())
	assert.Equal(t, 0, clk.Pending())

	s.Show()
	clk.Advance(time.Hour)
	assert.Equal(t, []write{{"U1", true}, {"U1", false}}, w.all())
}

func TestHandleEvents(t *testing.T) {
	tr, _, _ := newTracker(t)
	s := tr.Start("U1")

	st, err := tr.Handle(s.ID, "hidden")
	require.NoError(t, err)
	assert.Equal(t, Grace, st)

	st, err = tr.Handle(s.ID, "focus")
	require.NoError(t, err)
	assert.Equal(t, Active, st)

	st, err = tr.Handle(s.ID, "heartbeat")
	require.NoError(t, err)
	assert.Equal(t, Active, st)

	_, err = tr.Handle(s.ID, "wiggle")
	assert.ErrorIs(t, err, ErrUnknownEvent)

	st, err = tr.Handle(s.ID, "unload")
	require.NoError(t, err)
	assert.Equal(t, Offline, st)

	_, err = tr.Handle(s.ID, "show")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStoreWriter(t *testing.T) {
	clk := clock.NewFake(t0)
	store := memstore.New(clk)
	tr := NewTracker(store, clk, Options{})
	defer tr.Close()
	ctx := context.Background()

	s := tr.Start("U1")
	rec, err := tr.Get(ctx, "U1")
	require.NoError(t, err)
	assert.True(t, rec.IsOnline)
	assert.Equal(t, t0, rec.LastSeen)

	s.Hide()
	clk.Advance(31 * time.Second)
	rec, err = tr.Get(ctx, "U1")
	require.NoError(t, err)
	assert.False(t, rec.IsOnline)
	assert.Equal(t, t0.Add(30*time.Second), rec.LastSeen)
}
