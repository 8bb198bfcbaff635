// Package firestorestore implements docstore.Store on Cloud Firestore and
// turns collection-group snapshot listeners into created-document triggers.
package firestorestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	fb "firebase.google.com/go/v4"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
)

type Store struct {
	client *firestore.Client
}

// New opens a Firestore client from the shared Firebase app.
func New(ctx context.Context, app *fb.App) (*Store, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) collection(path string) (*firestore.CollectionRef, error) {
	if !docstore.ValidCollection(path) {
		return nil, fmt.Errorf("%w: %q", docstore.ErrInvalidPath, path)
	}
	ref := s.client.Collection(path)
	if ref == nil {
		return nil, fmt.Errorf("%w: %q", docstore.ErrInvalidPath, path)
	}
	return ref, nil
}

func (s *Store) Create(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	ref, err := s.collection(collection)
	if err != nil {
		return "", err
	}
	doc, _, err := ref.Add(ctx, toFirestore(data))
	if err != nil {
		return "", fmt.Errorf("firestore add %s: %w", collection, err)
	}
	return doc.ID, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Doc, error) {
	ref, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore get %s/%s: %w", collection, id, err)
	}
	return toDoc(collection, snap), nil
}

func (s *Store) Update(ctx context.Context, collection, id string, data map[string]interface{}, merge bool) error {
	ref, err := s.collection(collection)
	if err != nil {
		return err
	}
	if merge {
		_, err = ref.Doc(id).Set(ctx, toFirestore(data), firestore.MergeAll)
	} else {
		_, err = ref.Doc(id).Set(ctx, toFirestore(data))
	}
	if err != nil {
		return fmt.Errorf("firestore set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	ref, err := s.collection(collection)
	if err != nil {
		return err
	}
	if _, err := ref.Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("firestore delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Doc, error) {
	ref, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	snaps, err := buildQuery(ref, q).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore query %s: %w", collection, err)
	}
	out := make([]docstore.Doc, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, *toDoc(collection, snap))
	}
	return out, nil
}

func (s *Store) SubscribeDoc(ctx context.Context, collection, id string, cb func(*docstore.Doc)) (docstore.Unsubscribe, error) {
	ref, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	it := ref.Doc(id).Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if !isStopped(ctx, err) {
					log.Error().Err(err).Str("component", "firestore").Str("path", collection+"/"+id).Msg("Document listener failed")
				}
				return
			}
			if !snap.Exists() {
				cb(nil)
				continue
			}
			cb(toDoc(collection, snap))
		}
	}()
	return stopper(cancel), nil
}

func (s *Store) SubscribeQuery(ctx context.Context, collection string, q docstore.Query, cb func([]docstore.Doc)) (docstore.Unsubscribe, error) {
	ref, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	it := buildQuery(ref, q).Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if !isStopped(ctx, err) {
					log.Error().Err(err).Str("component", "firestore").Str("collection", collection).Msg("Query listener failed")
				}
				return
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				log.Error().Err(err).Str("component", "firestore").Str("collection", collection).Msg("Failed to read query snapshot")
				continue
			}
			docs := make([]docstore.Doc, 0, len(snaps))
			for _, snap := range snaps {
				docs = append(docs, *toDoc(collection, snap))
			}
			cb(docs)
		}
	}()
	return stopper(cancel), nil
}

// Watch listens to every collection group the router has patterns for and
// dispatches documents added after the initial snapshot. It blocks until ctx
// is cancelled. Firestore listeners may redeliver after reconnects, so
// handlers see at-least-once delivery.
func (s *Store) Watch(ctx context.Context, router *docstore.Router) error {
	leaves := router.Leaves()
	if len(leaves) == 0 {
		return errors.New("no trigger patterns registered")
	}

	errCh := make(chan error, len(leaves))
	for _, leaf := range leaves {
		go func(group string) {
			errCh <- s.watchGroup(ctx, router, group)
		}(leaf)
	}

	var firstErr error
	for range leaves {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) watchGroup(ctx context.Context, router *docstore.Router, group string) error {
	it := s.client.CollectionGroup(group).Snapshots(ctx)
	defer it.Stop()

	log.Info().Str("component", "firestore").Str("group", group).Msg("Watching collection group for created documents")
	initial := true
	for {
		qs, err := it.Next()
		if err != nil {
			if isStopped(ctx, err) {
				return nil
			}
			return fmt.Errorf("collection group %s listener: %w", group, err)
		}
		if initial {
			// The first snapshot reports every existing document as added.
			initial = false
			continue
		}
		for _, change := range qs.Changes {
			if change.Kind != firestore.DocumentAdded {
				continue
			}
			collection, id, err := relativePath(change.Doc.Ref)
			if err != nil {
				log.Warn().Err(err).Str("component", "firestore").Msg("Skipping document with unexpected path")
				continue
			}
			router.Dispatch(ctx, collection, id, fromFirestore(change.Doc.Data()))
		}
	}
}

func buildQuery(ref *firestore.CollectionRef, q docstore.Query) firestore.Query {
	query := ref.Query
	for _, f := range q.Filters {
		query = query.Where(f.Field, "==", f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Dir == docstore.Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return query
}

// relativePath strips the "projects/p/databases/d/documents/" prefix.
func relativePath(ref *firestore.DocumentRef) (string, string, error) {
	path := ref.Path
	if i := strings.Index(path, "/documents/"); i >= 0 {
		path = path[i+len("/documents/"):]
	}
	return docstore.SplitDocPath(path)
}

func toDoc(collection string, snap *firestore.DocumentSnapshot) *docstore.Doc {
	return &docstore.Doc{ID: snap.Ref.ID, Collection: collection, Data: fromFirestore(snap.Data())}
}

func toFirestore(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if docstore.IsServerTimestamp(v) {
			out[k] = firestore.ServerTimestamp
			continue
		}
		out[k] = v
	}
	return out
}

// Firestore already returns int64 and time.Time values; only a missing
// document body needs replacing.
func fromFirestore(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return data
}

func isStopped(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, iterator.Done) {
		return true
	}
	return status.Code(err) == codes.Canceled
}

func stopper(cancel context.CancelFunc) docstore.Unsubscribe {
	return func() { cancel() }
}
