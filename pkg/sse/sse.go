// Package sse streams live subscription updates to HTTP clients as
// server-sent events.
package sse

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

const keepAlive = 25 * time.Second

// Feed buffers updates from a store callback for a single stream. Updates
// arriving while the buffer is full are dropped. Every update carries the
// full state, so the next one catches the client up.
type Feed[T any] struct {
	ch chan T
}

func NewFeed[T any](size int) *Feed[T] {
	if size <= 0 {
		size = 16
	}
	return &Feed[T]{ch: make(chan T, size)}
}

// Push is safe to pass as a subscription callback.
func (f *Feed[T]) Push(v T) {
	select {
	case f.ch <- v:
	default:
	}
}

// Serve writes every pushed value as an event until the client goes away.
func (f *Feed[T]) Serve(c *gin.Context, event string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	done := c.Request.Context().Done()

	c.Stream(func(w io.Writer) bool {
		select {
		case v := <-f.ch:
			c.SSEvent(event, v)
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": ping\n\n")
			return err == nil
		case <-done:
			return false
		}
	})
}
