// Package firebase holds the process-wide Firebase app. It is initialised
// once from main and the resulting *firebase.App is injected into every
// component that needs Firestore or Cloud Messaging.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	fb "firebase.google.com/go/v4"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

var ErrNotInitialized = errors.New("firebase app not initialized")

var (
	mu  sync.Mutex
	app *fb.App
)

// Init creates the Firebase app on first call and returns the same instance
// on every later call, whatever arguments are passed.
func Init(ctx context.Context, projectID, credentialsFile string) (*fb.App, error) {
	mu.Lock()
	defer mu.Unlock()

	if app != nil {
		return app, nil
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var cfg *fb.Config
	if projectID != "" {
		cfg = &fb.Config{ProjectID: projectID}
	}

	a, err := fb.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	app = a
	log.Info().Str("component", "firebase").Str("projectID", projectID).Msg("Firebase app initialized")
	return app, nil
}

func IsInitialized() bool {
	mu.Lock()
	defer mu.Unlock()
	return app != nil
}

// App returns the initialised app or ErrNotInitialized.
func App() (*fb.App, error) {
	mu.Lock()
	defer mu.Unlock()
	if app == nil {
		return nil, ErrNotInitialized
	}
	return app, nil
}
