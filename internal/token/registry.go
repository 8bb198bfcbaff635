// Package token keeps one push token per user: a history in
// user_tokens/{userId}.tokens and the current one on users/{userId}.fcmToken.
package token

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/internal/messaging/domain"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/clock"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/logger"
)

const (
	FieldTokens            = "tokens"
	FieldFCMToken          = "fcmToken"
	FieldFCMTokenUpdatedAt = "fcmTokenUpdatedAt"
	FieldUpdatedAt         = "updatedAt"
	FieldEmail             = "email"

	fieldToken      = "token"
	fieldPlatform   = "platform"
	fieldCreatedAt  = "createdAt"
	fieldLastUsedAt = "lastUsedAt"
	fieldActive     = "active"
)

// DeviceToken is one entry of a user's token history.
type DeviceToken struct {
	Token      string    `json:"token"`
	Platform   string    `json:"platform"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsedAt"`
	Active     bool      `json:"active"`
}

// Registry reads and writes user tokens. Updates are read-modify-write on
// the history document and are not transactional.
type Registry struct {
	store    docstore.Store
	clock    clock.Clock
	onChange func(userID string)
	log      zerolog.Logger
}

func NewRegistry(store docstore.Store, clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.Real()
	}
	return &Registry{store: store, clock: clk, log: logger.Component("token")}
}

// OnChange registers a callback run after a user's current token changes.
func (r *Registry) OnChange(f func(userID string)) {
	r.onChange = f
}

// GenerateForUser returns the user's current token, or registers and stores
// a new one when there is none. The profile's fcmToken is the current token
// unless the history marks it inactive; an existing valid token is never
// replaced. The bool reports whether a new token was issued.
func (r *Registry) GenerateForUser(ctx context.Context, userID, email string, registrar Registrar) (DeviceToken, bool, error) {
	if userID == "" {
		return DeviceToken{}, false, fmt.Errorf("user id is required")
	}
	profile, err := r.store.Get(ctx, domain.UsersCollection, userID)
	if err != nil {
		return DeviceToken{}, false, fmt.Errorf("failed to read profile %s: %w", userID, err)
	}
	history, err := r.Tokens(ctx, userID)
	if err != nil {
		return DeviceToken{}, false, err
	}

	if profile != nil {
		if current := docstore.String(profile.Data, FieldFCMToken); current != "" {
			t, known := find(history, current)
			if !known {
				updated := docstore.Time(profile.Data, FieldFCMTokenUpdatedAt)
				t = DeviceToken{Token: current, CreatedAt: updated, LastUsedAt: updated, Active: true}
			}
			if t.Active {
				return t, false, nil
			}
		}
	}

	// The history holds an active token the profile lost; point the profile
	// back at it instead of issuing another.
	if t, ok := latestActive(history); ok {
		if err := r.setProfileToken(ctx, userID, email, t.Token); err != nil {
			return DeviceToken{}, false, err
		}
		r.log.Info().Str("user_id", userID).Msg("Restored profile token from history")
		r.changed(userID)
		return t, false, nil
	}

	reg, err := registrar.Register(ctx, userID, email)
	if err != nil {
		r.log.Info().Err(err).Str("user_id", userID).Msg("Token registration refused")
		return DeviceToken{}, false, err
	}
	if reg.Token == "" {
		return DeviceToken{}, false, ErrNoToken
	}

	// Array elements cannot hold server timestamps, so history entries use
	// the process clock.
	now := r.clock.Now().UTC()
	t := DeviceToken{Token: reg.Token, Platform: reg.Platform, CreatedAt: now, LastUsedAt: now, Active: true}
	if err := r.saveHistory(ctx, userID, append(history, t)); err != nil {
		return DeviceToken{}, false, err
	}

	if err := r.setProfileToken(ctx, userID, email, t.Token); err != nil {
		return DeviceToken{}, false, err
	}

	r.log.Info().Str("user_id", userID).Str("platform", t.Platform).Msg("Issued device token")
	r.changed(userID)
	return t, true, nil
}

// CurrentToken returns the token on the user's profile, or "".
func (r *Registry) CurrentToken(ctx context.Context, userID string) (string, error) {
	doc, err := r.store.Get(ctx, domain.UsersCollection, userID)
	if err != nil {
		return "", fmt.Errorf("failed to read profile %s: %w", userID, err)
	}
	if doc == nil {
		return "", nil
	}
	return docstore.String(doc.Data, FieldFCMToken), nil
}

// Tokens returns the user's token history, oldest first.
func (r *Registry) Tokens(ctx context.Context, userID string) ([]DeviceToken, error) {
	doc, err := r.store.Get(ctx, domain.UserTokensCollection, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokens for %s: %w", userID, err)
	}
	if doc == nil {
		return nil, nil
	}
	return tokensFrom(doc.Data[FieldTokens]), nil
}

// Invalidate deactivates a token and clears it from the profile when it is
// the current one. An empty token means the current one.
func (r *Registry) Invalidate(ctx context.Context, userID, token string) error {
	if token == "" {
		current, err := r.CurrentToken(ctx, userID)
		if err != nil {
			return err
		}
		if current == "" {
			return nil
		}
		token = current
	}

	history, err := r.Tokens(ctx, userID)
	if err != nil {
		return err
	}
	changed := false
	for i := range history {
		if history[i].Token == token && history[i].Active {
			history[i].Active = false
			changed = true
		}
	}
	if changed {
		if err := r.saveHistory(ctx, userID, history); err != nil {
			return err
		}
	}

	current, err := r.CurrentToken(ctx, userID)
	if err != nil {
		return err
	}
	if current == token {
		err := r.store.Update(ctx, domain.UsersCollection, userID, map[string]interface{}{
			FieldFCMToken:          "",
			FieldFCMTokenUpdatedAt: docstore.ServerTimestamp,
		}, true)
		if err != nil {
			return fmt.Errorf("failed to clear profile token for %s: %w", userID, err)
		}
	}
	r.log.Info().Str("user_id", userID).Msg("Invalidated device token")
	r.changed(userID)
	return nil
}

// MarkUsed refreshes lastUsedAt on a token.
func (r *Registry) MarkUsed(ctx context.Context, userID, token string) error {
	history, err := r.Tokens(ctx, userID)
	if err != nil {
		return err
	}
	now := r.clock.Now().UTC()
	found := false
	for i := range history {
		if history[i].Token == token {
			history[i].LastUsedAt = now
			found = true
		}
	}
	if !found {
		return nil
	}
	return r.saveHistory(ctx, userID, history)
}

func (r *Registry) saveHistory(ctx context.Context, userID string, history []DeviceToken) error {
	entries := make([]interface{}, 0, len(history))
	for _, t := range history {
		entries = append(entries, map[string]interface{}{
			fieldToken:      t.Token,
			fieldPlatform:   t.Platform,
			fieldCreatedAt:  t.CreatedAt,
			fieldLastUsedAt: t.LastUsedAt,
			fieldActive:     t.Active,
		})
	}
	err := r.store.Update(ctx, domain.UserTokensCollection, userID, map[string]interface{}{
		FieldTokens:    entries,
		FieldUpdatedAt: docstore.ServerTimestamp,
	}, true)
	if err != nil {
		return fmt.Errorf("failed to save tokens for %s: %w", userID, err)
	}
	return nil
}

func (r *Registry) setProfileToken(ctx context.Context, userID, email, token string) error {
	profile := map[string]interface{}{
		FieldFCMToken:          token,
		FieldFCMTokenUpdatedAt: docstore.ServerTimestamp,
	}
	if email != "" {
		profile[FieldEmail] = email
	}
	if err := r.store.Update(ctx, domain.UsersCollection, userID, profile, true); err != nil {
		return fmt.Errorf("failed to update profile token for %s: %w", userID, err)
	}
	return nil
}

func (r *Registry) changed(userID string) {
	if r.onChange != nil {
		r.onChange(userID)
	}
}

func latestActive(history []DeviceToken) (DeviceToken, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Active && history[i].Token != "" {
			return history[i], true
		}
	}
	return DeviceToken{}, false
}

// find returns the latest history entry for token.
func find(history []DeviceToken, token string) (DeviceToken, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Token == token {
			return history[i], true
		}
	}
	return DeviceToken{}, false
}

func tokensFrom(v interface{}) []DeviceToken {
	var raw []map[string]interface{}
	switch list := v.(type) {
	case []interface{}:
		for _, item := range list {
			if m, ok := item.(map[string]interface{}); ok {
				raw = append(raw, m)
			}
		}
	case []map[string]interface{}:
		raw = list
	}

	out := make([]DeviceToken, 0, len(raw))
	for _, m := range raw {
		out = append(out, DeviceToken{
			Token:      docstore.String(m, fieldToken),
			Platform:   docstore.String(m, fieldPlatform),
			CreatedAt:  docstore.Time(m, fieldCreatedAt),
			LastUsedAt: docstore.Time(m, fieldLastUsedAt),
			Active:     docstore.Bool(m, fieldActive),
		})
	}
	return out
}
