// Package mongostore implements docstore.Store on MongoDB. Documents of a
// sub-collection such as "users/u1/messages" live in the Mongo collection
// named after the leaf ("messages") and carry their parent path in _parent.
// Triggers and subscriptions are driven by change streams, which require a
// replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
)

const (
	fieldID      = "_id"
	fieldParent  = "_parent"
	fieldCreated = "_createdAt"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	s := &Store{client: client, db: client.Database(database)}
	s.ensureIndexes(ctx)
	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) {
	for _, name := range []string{"messages", "conversations"} {
		_, err := s.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: fieldParent, Value: 1}, {Key: fieldCreated, Value: 1}},
			Options: options.Index().SetBackground(true),
		})
		if err != nil {
			log.Warn().Err(err).Str("component", "mongo").Str("collection", name).Msg("Failed to create index")
		}
	}
}

// locate maps a collection path to the Mongo collection and parent path.
func (s *Store) locate(path string) (*mongo.Collection, string, error) {
	if !docstore.ValidCollection(path) {
		return nil, "", fmt.Errorf("%w: %q", docstore.ErrInvalidPath, path)
	}
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return s.db.Collection(path), "", nil
	}
	return s.db.Collection(path[i+1:]), path[:i], nil
}

func (s *Store) Create(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	coll, parent, err := s.locate(collection)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	doc := toMongo(data)
	doc[fieldID] = id
	doc[fieldParent] = parent
	doc[fieldCreated] = time.Now().UTC()

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("mongo insert %s: %w", collection, err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Doc, error) {
	coll, parent, err := s.locate(collection)
	if err != nil {
		return nil, err
	}
	var raw bson.M
	err = coll.FindOne(ctx, bson.M{fieldID: id, fieldParent: parent}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongo find %s/%s: %w", collection, id, err)
	}
	return toDoc(collection, raw), nil
}

func (s *Store) Update(ctx context.Context, collection, id string, data map[string]interface{}, merge bool) error {
	coll, parent, err := s.locate(collection)
	if err != nil {
		return err
	}
	filter := bson.M{fieldID: id, fieldParent: parent}
	fields := toMongo(data)

	if merge {
		_, err = coll.UpdateOne(ctx, filter, bson.M{
			"$set":         fields,
			"$setOnInsert": bson.M{fieldParent: parent, fieldCreated: time.Now().UTC()},
		}, options.Update().SetUpsert(true))
	} else {
		fields[fieldParent] = parent
		fields[fieldCreated] = time.Now().UTC()
		_, err = coll.ReplaceOne(ctx, filter, fields, options.Replace().SetUpsert(true))
	}
	if err != nil {
		return fmt.Errorf("mongo update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	coll, parent, err := s.locate(collection)
	if err != nil {
		return err
	}
	if _, err := coll.DeleteOne(ctx, bson.M{fieldID: id, fieldParent: parent}); err != nil {
		return fmt.Errorf("mongo delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Doc, error) {
	coll, parent, err := s.locate(collection)
	if err != nil {
		return nil, err
	}
	filter := bson.M{fieldParent: parent}
	for _, f := range q.Filters {
		filter[f.Field] = f.Value
	}

	sort := bson.D{}
	if q.OrderBy != "" {
		dir := 1
		if q.Dir == docstore.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: q.OrderBy, Value: dir})
	}
	sort = append(sort, bson.E{Key: fieldCreated, Value: 1})

	opts := options.Find().SetSort(sort)
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo query %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var out []docstore.Doc
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, *toDoc(collection, raw))
	}
	return out, cur.Err()
}

func (s *Store) SubscribeDoc(ctx context.Context, collection, id string, cb func(*docstore.Doc)) (docstore.Unsubscribe, error) {
	coll, parent, err := s.locate(collection)
	if err != nil {
		return nil, err
	}
	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.M{"documentKey._id": id}}}}
	return s.follow(ctx, coll, pipeline, parent, func(ctx context.Context) error {
		doc, err := s.Get(ctx, collection, id)
		if err != nil {
			return err
		}
		cb(doc)
		return nil
	})
}

func (s *Store) SubscribeQuery(ctx context.Context, collection string, q docstore.Query, cb func([]docstore.Doc)) (docstore.Unsubscribe, error) {
	coll, parent, err := s.locate(collection)
	if err != nil {
		return nil, err
	}
	return s.follow(ctx, coll, mongo.Pipeline{}, parent, func(ctx context.Context) error {
		docs, err := s.Query(ctx, collection, q)
		if err != nil {
			return err
		}
		cb(docs)
		return nil
	})
}

// follow emits once immediately, then re-reads after every change stream
// event that touches the parent path.
func (s *Store) follow(ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline, parent string, emit func(context.Context) error) (docstore.Unsubscribe, error) {
	ctx, cancel := context.WithCancel(ctx)
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	cs, err := coll.Watch(ctx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("mongo watch %s: %w", coll.Name(), err)
	}
	if err := emit(ctx); err != nil {
		cancel()
		_ = cs.Close(context.Background())
		return nil, err
	}

	go func() {
		defer cs.Close(context.Background())
		for cs.Next(ctx) {
			var ev changeEvent
			if err := cs.Decode(&ev); err != nil {
				log.Warn().Err(err).Str("component", "mongo").Msg("Failed to decode change event")
				continue
			}
			if ev.OperationType != "delete" && ev.FullDocument[fieldParent] != parent {
				continue
			}
			if err := emit(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Str("component", "mongo").Str("collection", coll.Name()).Msg("Subscription refresh failed")
			}
		}
		if err := cs.Err(); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("component", "mongo").Str("collection", coll.Name()).Msg("Change stream closed")
		}
	}()
	return func() { cancel() }, nil
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	FullDocument  bson.M `bson:"fullDocument"`
	NS            struct {
		Coll string `bson:"coll"`
	} `bson:"ns"`
}

// Watch dispatches every inserted document in the database through the
// router. It blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context, router *docstore.Router) error {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.M{"operationType": "insert"}}}}
	cs, err := s.db.Watch(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("mongo database watch: %w", err)
	}
	defer cs.Close(context.Background())

	log.Info().Str("component", "mongo").Str("database", s.db.Name()).Msg("Watching for created documents")
	for cs.Next(ctx) {
		var ev changeEvent
		if err := cs.Decode(&ev); err != nil {
			log.Warn().Err(err).Str("component", "mongo").Msg("Failed to decode insert event")
			continue
		}
		parent, _ := ev.FullDocument[fieldParent].(string)
		id, _ := ev.FullDocument[fieldID].(string)
		if id == "" {
			continue
		}
		collection := ev.NS.Coll
		if parent != "" {
			collection = parent + "/" + ev.NS.Coll
		}
		router.Dispatch(ctx, collection, id, fromMongo(ev.FullDocument))
	}
	if err := cs.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mongo change stream: %w", err)
	}
	return nil
}

func toMongo(data map[string]interface{}) bson.M {
	now := time.Now().UTC()
	out := bson.M{}
	for k, v := range data {
		if docstore.IsServerTimestamp(v) {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}

func toDoc(collection string, raw bson.M) *docstore.Doc {
	id, _ := raw[fieldID].(string)
	return &docstore.Doc{ID: id, Collection: collection, Data: fromMongo(raw)}
}

// fromMongo strips bookkeeping fields and converts BSON-specific types back
// to plain Go values.
func fromMongo(raw bson.M) map[string]interface{} {
	out := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if k == fieldID || k == fieldParent || k == fieldCreated {
			continue
		}
		out[k] = plain(v)
	}
	return out
}

func plain(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case int32:
		return int64(t)
	case bson.M:
		m := make(map[string]interface{}, len(t))
		for k, inner := range t {
			m[k] = plain(inner)
		}
		return m
	case bson.D:
		m := make(map[string]interface{}, len(t))
		for _, e := range t {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.A:
		arr := make([]interface{}, len(t))
		for i, inner := range t {
			arr[i] = plain(inner)
		}
		return arr
	}
	return v
}
