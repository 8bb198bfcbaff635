package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	api "github.com/DASHRATH2003/adminpanalaplication-sub000/cmd/api"
	authUsecase "github.com/DASHRATH2003/adminpanalaplication-sub000/internal/auth/usecase"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/mirror"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/repository"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/resolver"
	messagingUsecase "github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/usecase"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/notification"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/presence"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/token"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/clock"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/config"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/database"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore/firestorestore"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore/memstore"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore/mongostore"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore/pubsubrelay"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/fcm"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/firebase"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/logger"
)

// watcher is implemented by backends with their own change feed.
type watcher interface {
	Watch(ctx context.Context, router *docstore.Router) error
}

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Firebase is optional: without it there is no Firestore and no push.
	if cfg.GoogleProjectID != "" || cfg.FirebaseCredentials != "" {
		if _, err := firebase.Init(ctx, cfg.GoogleProjectID, cfg.FirebaseCredentials); err != nil {
			log.Warn().Err(err).Msg("Firebase unavailable, push notifications disabled")
		}
	}

	// Document store and trigger router
	clk := clock.Real()
	var (
		store  docstore.Store
		router *docstore.Router
	)
	switch cfg.StoreBackend {
	case "firestore":
		app, err := firebase.App()
		if err != nil {
			log.Fatal().Err(err).Msg("Firestore backend requires Firebase")
		}
		fs, err := firestorestore.New(ctx, app)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open Firestore")
		}
		defer fs.Close()
		store, router = fs, docstore.NewRouter()
	case "mongo":
		ms, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer ms.Close(context.Background())
		store, router = ms, docstore.NewRouter()
	default:
		mem := memstore.New(clk)
		store, router = mem, mem.Router
	}

	// Creates are announced on Pub/Sub when triggers travel that way.
	writes := store
	var receiver *pubsubrelay.Receiver
	if cfg.TriggerSource == "pubsub" && cfg.StoreBackend != "memory" {
		client, err := pubsubrelay.NewClient(ctx, cfg.GoogleProjectID, cfg.FirebaseCredentials)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Pub/Sub client")
		}
		defer client.Close()
		publishing := pubsubrelay.NewPublishingStore(store, client, cfg.PubSubTopic)
		defer publishing.Stop()
		writes = publishing
		receiver = pubsubrelay.NewReceiver(client, store, router, cfg.PubSubTopic)
	}

	// Initialize repositories (dependency injection)
	conversationRepo := repository.NewConversationRepository(writes)
	messageRepo := repository.NewMessageRepository(writes)
	conversationResolver := resolver.New(conversationRepo)

	engine := mirror.NewEngine(messageRepo, conversationRepo, conversationResolver)
	engine.Register(router)

	if cfg.StoreBackend != "memory" {
		go func() {
			var err error
			if receiver != nil {
				err = receiver.Start(ctx)
			} else if w, ok := store.(watcher); ok {
				err = w.Watch(ctx, router)
			}
			if err != nil {
				log.Error().Err(err).Msg("Trigger source stopped")
			}
		}()
	}

	// Push gateway
	var gateway notification.Gateway
	if app, err := firebase.App(); err == nil {
		fcmClient, err := fcm.NewClient(ctx, app)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize FCM client (push notifications disabled)")
		} else {
			gateway = fcmClient
		}
	}

	// Delivery log
	var deliveries notification.DeliveryLog
	if db, err := database.NewConnection(cfg); err != nil {
		log.Warn().Err(err).Msg("Delivery log database unavailable, deliveries are not recorded")
	} else if deliveries, err = notification.NewGormDeliveryLog(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate delivery log")
	}

	registry := token.NewRegistry(writes, clk)
	notifService := notification.NewService(notification.NewDispatcher(gateway), registry, deliveries, cfg.TokenCacheTTL)
	registry.OnChange(notifService.Forget)

	queue := notification.NewQueue(notifService, cfg.NotifyWorkers, 256)
	queue.Start()
	defer queue.Stop()

	messagingUc := messagingUsecase.NewMessagingUsecase(conversationRepo, messageRepo, conversationResolver)
	messagingUc.SetNotifier(queue)

	tracker := presence.NewTracker(writes, clk, presence.Options{
		GracePeriod:       cfg.PresenceGracePeriod,
		HeartbeatInterval: cfg.PresenceHeartbeatInterval,
	})
	defer tracker.Close()

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecase.NewAuthUsecase(cfg), messagingUc, tracker, notifService, registry, cfg)

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreBackend).Msg("Server starting")
		if err := handler.Start(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
}
