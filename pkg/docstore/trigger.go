package docstore

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Event describes a newly created document matched against a trigger pattern.
type Event struct {
	Collection string
	ID         string
	Pattern    string
	// Params holds the wildcard values, e.g. {"conversationId": "c1", "messageId": "m1"}.
	Params map[string]string
	Data   map[string]interface{}
}

// Path returns the created document's full path.
func (e Event) Path() string { return e.Collection + "/" + e.ID }

// Handler reacts to a created document.
type Handler func(ctx context.Context, ev Event)

// Triggers registers created-document handlers.
type Triggers interface {
	OnCreate(pattern string, h Handler)
}

type route struct {
	pattern  string
	segments []string
	handler  Handler
}

// Router matches created-document paths against patterns such as
// "users/{userId}/messages/{messageId}" and invokes the matching handlers.
// Every backend feeds its created-document events through a Router.
type Router struct {
	mu     sync.RWMutex
	routes []route
}

func NewRouter() *Router {
	return &Router{}
}

func (r *Router) OnCreate(pattern string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route{
		pattern:  pattern,
		segments: strings.Split(strings.Trim(pattern, "/"), "/"),
		handler:  h,
	})
	log.Debug().Str("component", "docstore").Str("pattern", pattern).Msg("Registered create trigger")
}

// Leaves returns the distinct last collection names the registered patterns
// watch, e.g. "messages". Backends with collection-group listeners use it.
func (r *Router) Leaves() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, rt := range r.routes {
		if len(rt.segments) < 2 {
			continue
		}
		leaf := rt.segments[len(rt.segments)-2]
		if !seen[leaf] {
			seen[leaf] = true
			out = append(out, leaf)
		}
	}
	return out
}

// Dispatch runs every handler whose pattern matches the document path.
// Handlers run synchronously on the caller's goroutine, in registration order.
// It returns the number of handlers invoked.
func (r *Router) Dispatch(ctx context.Context, collection, id string, data map[string]interface{}) int {
	segs := strings.Split(collection+"/"+id, "/")

	r.mu.RLock()
	routes := make([]route, len(r.routes))
	copy(routes, r.routes)
	r.mu.RUnlock()

	n := 0
	for _, rt := range routes {
		params, ok := match(rt.segments, segs)
		if !ok {
			continue
		}
		rt.handler(ctx, Event{
			Collection: collection,
			ID:         id,
			Pattern:    rt.pattern,
			Params:     params,
			Data:       Clone(data),
		})
		n++
	}
	return n
}

func match(pattern, path []string) (map[string]string, bool) {
	if len(pattern) != len(path) {
		return nil, false
	}
	params := map[string]string{}
	for i, p := range pattern {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			params[p[1:len(p)-1]] = path[i]
			continue
		}
		if p != path[i] {
			return nil, false
		}
	}
	return params, true
}
