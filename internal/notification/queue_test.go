package notification

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingNotifier struct {
	mu    sync.Mutex
	users []string
}

func (n *countingNotifier) NotifyUser(_ context.Context, userID string, _ Payload) (Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userID)
	if userID == "nobody" {
		return Result{}, ErrNoDeviceToken
	}
	return Result{Outcome: Delivered}, nil
}

func TestQueueProcessesJobs(t *testing.T) {
	n := &countingNotifier{}
	q := NewQueue(n, 2, 10)
	q.Start()
	q.Start()

	assert.True(t, q.NotifyAsync("U1", "t", "b", nil))
	assert.True(t, q.NotifyAsync("nobody", "t", "b", nil))
	assert.True(t, q.Enqueue(Job{UserID: "U2"}))
	q.Stop()
	q.Stop()

	assert.ElementsMatch(t, []string{"U1", "nobody", "U2"}, n.users)
	assert.False(t, q.NotifyAsync("U3", "t", "b", nil), "stopped queue rejects jobs")
}

func TestQueueDropsWhenFull(t *testing.T) {
	n := &countingNotifier{}
	q := NewQueue(n, 1, 2)

	assert.True(t, q.Enqueue(Job{UserID: "a"}))
	assert.True(t, q.Enqueue(Job{UserID: "b"}))
	assert.False(t, q.Enqueue(Job{UserID: "c"}))
	assert.Equal(t, 2, q.Pending())

	q.Start()
	q.Stop()
	assert.ElementsMatch(t, []string{"a", "b"}, n.users)
}
