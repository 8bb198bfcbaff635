package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/logger"
)

var ErrNoDeviceToken = errors.New("user has no active device token")

// TokenSource is the part of the token registry the service needs.
type TokenSource interface {
	// CurrentToken returns "" when the user has no token.
	CurrentToken(ctx context.Context, userID string) (string, error)
	Invalidate(ctx context.Context, userID, token string) error
	MarkUsed(ctx context.Context, userID, token string) error
}

// Service sends to users by id, records every outcome and retires tokens
// the gateway rejects.
type Service struct {
	dispatcher *Dispatcher
	tokens     TokenSource
	deliveries DeliveryLog
	cache      *cache.Cache
	log        zerolog.Logger
}

func NewService(dispatcher *Dispatcher, tokens TokenSource, deliveries DeliveryLog, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 10 * time.Minute
	}
	return &Service{
		dispatcher: dispatcher,
		tokens:     tokens,
		deliveries: deliveries,
		cache:      cache.New(tokenTTL, 2*tokenTTL),
		log:        logger.Component("notification"),
	}
}

// NotifyUser pushes to the user's current token. An InvalidToken outcome
// deactivates the token and evicts it from the cache. Nothing is retried.
func (s *Service) NotifyUser(ctx context.Context, userID string, p Payload) (Result, error) {
	token, err := s.lookup(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if token == "" {
		return Result{}, ErrNoDeviceToken
	}

	res := s.dispatcher.Send(ctx, token, p)
	s.record(ctx, userID, p, res)

	switch res.Outcome {
	case Delivered:
		if err := s.tokens.MarkUsed(ctx, userID, token); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to mark token used")
		}
	case InvalidToken:
		s.cache.Delete(userID)
		if err := s.tokens.Invalidate(ctx, userID, token); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to invalidate token")
		} else {
			s.log.Info().Str("user_id", userID).Msg("Retired rejected device token")
		}
	}
	return res, nil
}

func (s *Service) lookup(ctx context.Context, userID string) (string, error) {
	if v, ok := s.cache.Get(userID); ok {
		return v.(string), nil
	}
	token, err := s.tokens.CurrentToken(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to look up token for %s: %w", userID, err)
	}
	if token != "" {
		s.cache.Set(userID, token, cache.DefaultExpiration)
	}
	return token, nil
}

// Forget drops a cached token, e.g. after the user registers a new one.
func (s *Service) Forget(userID string) {
	s.cache.Delete(userID)
}

// Send dispatches to a raw token and records the outcome.
func (s *Service) Send(ctx context.Context, token string, p Payload) Result {
	res := s.dispatcher.Send(ctx, token, p)
	s.record(ctx, "", p, res)
	return res
}

// SendMulticast dispatches to raw tokens and records every outcome.
func (s *Service) SendMulticast(ctx context.Context, tokens []string, p Payload) MulticastResult {
	out := s.dispatcher.SendMulticast(ctx, tokens, p)
	for _, r := range out.Results {
		s.record(ctx, "", p, r)
	}
	return out
}

func (s *Service) Deliveries(ctx context.Context, f DeliveryFilter) ([]*DeliveryRecord, int64, error) {
	if s.deliveries == nil {
		return nil, 0, nil
	}
	return s.deliveries.List(ctx, f)
}

func (s *Service) record(ctx context.Context, userID string, p Payload, r Result) {
	if s.deliveries == nil {
		return
	}
	err := s.deliveries.Record(ctx, &DeliveryRecord{
		UserID:    userID,
		Token:     r.Token,
		Title:     p.Title,
		Outcome:   r.Outcome,
		MessageID: r.MessageID,
		Error:     r.Error,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to record delivery")
	}
}
