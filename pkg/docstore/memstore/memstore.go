// Package memstore is an in-memory docstore.Store. Created-document triggers
// run synchronously inside Create, which makes reactive flows deterministic
// in tests and in single-process development runs.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/clock"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"

	"github.com/google/uuid"
)

type Op string

const (
	OpCreate    Op = "create"
	OpGet       Op = "get"
	OpUpdate    Op = "update"
	OpDelete    Op = "delete"
	OpQuery     Op = "query"
	OpSubscribe Op = "subscribe"
)

// FaultFunc lets tests fail selected operations. A non-nil return aborts the
// operation with that error.
type FaultFunc func(op Op, collection string) error

type record struct {
	seq  int64
	data map[string]interface{}
}

type docSub struct {
	path string
	cb   func(*docstore.Doc)
}

type querySub struct {
	collection string
	q          docstore.Query
	cb         func([]docstore.Doc)
}

type Store struct {
	*docstore.Router

	mu          sync.Mutex
	clock       clock.Clock
	collections map[string]map[string]*record
	seq         int64
	nextSub     int64
	docSubs     map[int64]docSub
	querySubs   map[int64]querySub
	fault       FaultFunc
}

func New(c clock.Clock) *Store {
	if c == nil {
		c = clock.Real()
	}
	return &Store{
		Router:      docstore.NewRouter(),
		clock:       c,
		collections: map[string]map[string]*record{},
		docSubs:     map[int64]docSub{},
		querySubs:   map[int64]querySub{},
	}
}

// SetFault installs (or clears, with nil) a fault injector.
func (s *Store) SetFault(f FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

func (s *Store) checkFault(op Op, collection string) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(op, collection)
}

func (s *Store) resolve(data map[string]interface{}) map[string]interface{} {
	now := s.clock.Now().UTC()
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if docstore.IsServerTimestamp(v) {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}

func (s *Store) Create(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	if !docstore.ValidCollection(collection) {
		return "", fmt.Errorf("%w: %q", docstore.ErrInvalidPath, collection)
	}

	s.mu.Lock()
	if err := s.checkFault(OpCreate, collection); err != nil {
		s.mu.Unlock()
		return "", err
	}
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:20]
	s.seq++
	resolved := s.resolve(data)
	s.coll(collection)[id] = &record{seq: s.seq, data: resolved}
	notify := s.pendingNotifications(collection, id)
	s.mu.Unlock()

	s.fire(notify)
	s.Router.Dispatch(ctx, collection, id, docstore.Clone(resolved))
	return id, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkFault(OpGet, collection); err != nil {
		return nil, err
	}
	return s.getLocked(collection, id), nil
}

func (s *Store) Update(ctx context.Context, collection, id string, data map[string]interface{}, merge bool) error {
	if !docstore.ValidCollection(collection) || id == "" {
		return fmt.Errorf("%w: %s/%s", docstore.ErrInvalidPath, collection, id)
	}

	s.mu.Lock()
	if err := s.checkFault(OpUpdate, collection); err != nil {
		s.mu.Unlock()
		return err
	}
	resolved := s.resolve(data)
	c := s.coll(collection)
	rec, ok := c[id]
	if !ok {
		s.seq++
		rec = &record{seq: s.seq, data: map[string]interface{}{}}
		c[id] = rec
	}
	if merge {
		for k, v := range resolved {
			rec.data[k] = v
		}
	} else {
		rec.data = resolved
	}
	notify := s.pendingNotifications(collection, id)
	s.mu.Unlock()

	s.fire(notify)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	if err := s.checkFault(OpDelete, collection); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.coll(collection), id)
	notify := s.pendingNotifications(collection, id)
	s.mu.Unlock()

	s.fire(notify)
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkFault(OpQuery, collection); err != nil {
		return nil, err
	}
	return s.queryLocked(collection, q), nil
}

func (s *Store) SubscribeDoc(ctx context.Context, collection, id string, cb func(*docstore.Doc)) (docstore.Unsubscribe, error) {
	s.mu.Lock()
	if err := s.checkFault(OpSubscribe, collection); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.nextSub++
	key := s.nextSub
	s.docSubs[key] = docSub{path: collection + "/" + id, cb: cb}
	current := s.getLocked(collection, id)
	s.mu.Unlock()

	cb(current)
	return s.unsubscriber(func() { delete(s.docSubs, key) }), nil
}

func (s *Store) SubscribeQuery(ctx context.Context, collection string, q docstore.Query, cb func([]docstore.Doc)) (docstore.Unsubscribe, error) {
	s.mu.Lock()
	if err := s.checkFault(OpSubscribe, collection); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.nextSub++
	key := s.nextSub
	s.querySubs[key] = querySub{collection: collection, q: q, cb: cb}
	current := s.queryLocked(collection, q)
	s.mu.Unlock()

	cb(current)
	return s.unsubscriber(func() { delete(s.querySubs, key) }), nil
}

// Subscribers reports the number of live subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docSubs) + len(s.querySubs)
}

// Len reports how many documents a collection holds.
func (s *Store) Len(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

func (s *Store) unsubscriber(remove func()) docstore.Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			remove()
			s.mu.Unlock()
		})
	}
}

func (s *Store) coll(name string) map[string]*record {
	c, ok := s.collections[name]
	if !ok {
		c = map[string]*record{}
		s.collections[name] = c
	}
	return c
}

func (s *Store) getLocked(collection, id string) *docstore.Doc {
	rec, ok := s.collections[collection][id]
	if !ok {
		return nil
	}
	return &docstore.Doc{ID: id, Collection: collection, Data: docstore.Clone(rec.data)}
}

func (s *Store) queryLocked(collection string, q docstore.Query) []docstore.Doc {
	type row struct {
		id  string
		rec *record
	}
	var rows []row
	for id, rec := range s.collections[collection] {
		if matches(rec.data, q.Filters) {
			rows = append(rows, row{id: id, rec: rec})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if q.OrderBy != "" {
			if c := compare(rows[i].rec.data[q.OrderBy], rows[j].rec.data[q.OrderBy]); c != 0 {
				if q.Dir == docstore.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return rows[i].rec.seq < rows[j].rec.seq
	})

	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	out := make([]docstore.Doc, 0, len(rows))
	for _, r := range rows {
		out = append(out, docstore.Doc{ID: r.id, Collection: collection, Data: docstore.Clone(r.rec.data)})
	}
	return out
}

type notification struct {
	docCB   func(*docstore.Doc)
	doc     *docstore.Doc
	queryCB func([]docstore.Doc)
	docs    []docstore.Doc
}

func (s *Store) pendingNotifications(collection, id string) []notification {
	var out []notification
	path := collection + "/" + id
	for _, sub := range s.docSubs {
		if sub.path == path {
			out = append(out, notification{docCB: sub.cb, doc: s.getLocked(collection, id)})
		}
	}
	for _, sub := range s.querySubs {
		if sub.collection == collection {
			out = append(out, notification{queryCB: sub.cb, docs: s.queryLocked(collection, sub.q)})
		}
	}
	return out
}

func (s *Store) fire(ns []notification) {
	for _, n := range ns {
		if n.docCB != nil {
			n.docCB(n.doc)
		} else {
			n.queryCB(n.docs)
		}
	}
}

func matches(data map[string]interface{}, filters []docstore.Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok || !reflect.DeepEqual(v, f.Value) {
			return false
		}
	}
	return true
}

func compare(a, b interface{}) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case int:
		if bv, ok := b.(int); ok {
			return av - bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	}
	return 0
}
