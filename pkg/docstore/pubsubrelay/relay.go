// Package pubsubrelay carries created-document events over Cloud Pub/Sub so
// trigger handlers can run in a different process from the writers.
// Publishing is a docstore.Store decorator; receiving re-reads each announced
// document and dispatches it through a docstore.Router. Pub/Sub delivers at
// least once, and so do the handlers downstream.
package pubsubrelay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
)

// CreatedEvent is the wire format published for each created document.
type CreatedEvent struct {
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
}

func NewClient(ctx context.Context, projectID, credentialsFile string) (*pubsub.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	return client, nil
}

// PublishingStore announces every successful Create on a topic.
type PublishingStore struct {
	docstore.Store
	topic *pubsub.Topic
}

func NewPublishingStore(inner docstore.Store, client *pubsub.Client, topicName string) *PublishingStore {
	return &PublishingStore{Store: inner, topic: client.Topic(topicName)}
}

func (p *PublishingStore) Create(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id, err := p.Store.Create(ctx, collection, data)
	if err != nil {
		return "", err
	}

	payload, _ := json.Marshal(CreatedEvent{Collection: collection, ID: id, CreatedAt: time.Now().UTC()})
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"collection": collection},
	})
	go func() {
		// The write already succeeded; a lost announcement only loses the trigger.
		if _, err := result.Get(context.Background()); err != nil {
			log.Error().Err(err).Str("component", "pubsub").Str("path", collection+"/"+id).Msg("Failed to publish created event")
		}
	}()
	return id, nil
}

func (p *PublishingStore) Stop() {
	p.topic.Stop()
}

// Receiver consumes created events and dispatches them.
type Receiver struct {
	client    *pubsub.Client
	store     docstore.Store
	router    *docstore.Router
	topicName string
	subName   string
}

func NewReceiver(client *pubsub.Client, store docstore.Store, router *docstore.Router, topicName string) *Receiver {
	return &Receiver{
		client:    client,
		store:     store,
		router:    router,
		topicName: topicName,
		subName:   topicName + "-sub", // Convention: topic-sub
	}
}

// Start ensures the subscription exists and blocks receiving until ctx ends.
func (r *Receiver) Start(ctx context.Context) error {
	log.Info().Str("component", "pubsub").Str("topic", r.topicName).Str("subscription", r.subName).Msg("Starting trigger receiver")

	sub := r.client.Subscription(r.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("checking subscription %s: %w", r.subName, err)
	}

	if !exists {
		topic := r.client.Topic(r.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			return fmt.Errorf("checking topic %s: %w", r.topicName, err)
		}
		if !topicExists {
			if topic, err = r.client.CreateTopic(ctx, r.topicName); err != nil {
				return fmt.Errorf("creating topic %s: %w", r.topicName, err)
			}
			log.Info().Str("component", "pubsub").Str("topic", r.topicName).Msg("Created topic")
		}

		sub, err = r.client.CreateSubscription(ctx, r.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 20 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("creating subscription %s: %w", r.subName, err)
		}
		log.Info().Str("component", "pubsub").Str("subscription", r.subName).Msg("Created subscription")
	}

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if r.Handle(ctx, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("receiving from %s: %w", r.subName, err)
	}
	return nil
}

// Handle processes one event payload and reports whether it should be acked.
// Malformed payloads and vanished documents are acked and dropped; a failed
// read is nacked so Pub/Sub redelivers it.
func (r *Receiver) Handle(ctx context.Context, payload []byte) bool {
	var ev CreatedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Warn().Err(err).Str("component", "pubsub").Msg("Dropping malformed created event")
		return true
	}

	doc, err := r.store.Get(ctx, ev.Collection, ev.ID)
	if err != nil {
		log.Error().Err(err).Str("component", "pubsub").Str("path", ev.Collection+"/"+ev.ID).Msg("Failed to load created document")
		return false
	}
	if doc == nil {
		log.Warn().Str("component", "pubsub").Str("path", ev.Collection+"/"+ev.ID).Msg("Created document no longer exists")
		return true
	}

	n := r.router.Dispatch(ctx, ev.Collection, ev.ID, doc.Data)
	log.Debug().Str("component", "pubsub").Str("path", ev.Collection+"/"+ev.ID).Int("handlers", n).Msg("Dispatched created event")
	return true
}
