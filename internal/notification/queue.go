package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/logger"
)

const jobTimeout = 15 * time.Second

// Job is a push to one user.
type Job struct {
	UserID  string
	Payload Payload
}

// UserNotifier delivers a Job. *Service satisfies it.
type UserNotifier interface {
	NotifyUser(ctx context.Context, userID string, p Payload) (Result, error)
}

// Queue runs notification jobs on a fixed pool of workers so callers never
// wait on the push gateway.
type Queue struct {
	notifier    UserNotifier
	jobQueue    chan Job
	workerWg    sync.WaitGroup
	workerCount int
	started     bool
	stopped     bool
	mu          sync.Mutex
	log         zerolog.Logger
}

func NewQueue(notifier UserNotifier, workerCount, size int) *Queue {
	if workerCount <= 0 {
		workerCount = 3
	}
	if size <= 0 {
		size = 500
	}
	return &Queue{
		notifier:    notifier,
		jobQueue:    make(chan Job, size),
		workerCount: workerCount,
		log:         logger.Component("notify-queue"),
	}
}

func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started || q.stopped {
		return
	}
	for i := 0; i < q.workerCount; i++ {
		q.workerWg.Add(1)
		go q.worker(i)
	}
	q.started = true
	q.log.Info().Int("workers", q.workerCount).Msg("Started notification workers")
}

// Stop drains queued jobs and waits for the workers to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.jobQueue)
	q.mu.Unlock()

	q.workerWg.Wait()
	q.log.Info().Msg("All notification workers stopped")
}

func (q *Queue) worker(id int) {
	defer q.workerWg.Done()

	for job := range q.jobQueue {
		q.process(job)
	}
	q.log.Debug().Int("worker", id).Msg("Worker stopped")
}

func (q *Queue) process(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	res, err := q.notifier.NotifyUser(ctx, job.UserID, job.Payload)
	if err != nil {
		if errors.Is(err, ErrNoDeviceToken) {
			q.log.Debug().Str("user_id", job.UserID).Msg("No device token, skipping push")
			return
		}
		q.log.Warn().Err(err).Str("user_id", job.UserID).Msg("Push job failed")
		return
	}
	q.log.Debug().Str("user_id", job.UserID).Str("outcome", string(res.Outcome)).Msg("Push job done")
}

// Enqueue adds a job without blocking. It reports false when the queue is
// full or stopped; the job is then dropped.
func (q *Queue) Enqueue(job Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return false
	}
	select {
	case q.jobQueue <- job:
		return true
	default:
		return false
	}
}

// NotifyAsync queues a push to a user.
func (q *Queue) NotifyAsync(userID, title, body string, data map[string]string) bool {
	return q.Enqueue(Job{UserID: userID, Payload: Payload{Title: title, Body: body, Data: data}})
}

// Pending reports how many jobs wait for a worker.
func (q *Queue) Pending() int {
	return len(q.jobQueue)
}
