package notification

import (
	"context"
	"errors"
	"strings"

	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/fcm"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/logger"
)

// Outcome classifies one delivery attempt.
type Outcome string

const (
	Delivered    Outcome = "delivered"
	InvalidToken Outcome = "invalid_token"
	RateLimited  Outcome = "rate_limited"
	UnknownError Outcome = "unknown_error"
)

var ErrGatewayUnavailable = errors.New("push gateway not configured")

// Gateway is the push transport. *fcm.Client satisfies it.
type Gateway interface {
	Send(ctx context.Context, token string, n fcm.NotificationData) (string, error)
	SendMulticast(ctx context.Context, tokens []string, n fcm.NotificationData) ([]fcm.SendResult, error)
}

type Payload struct {
	Title string            `json:"title" binding:"required"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

func (p Payload) notification() fcm.NotificationData {
	return fcm.NotificationData{
		Title:       p.Title,
		Body:        p.Body,
		Data:        p.Data,
		ClickAction: p.Data["click_action"],
	}
}

// Result is the classified answer for one token.
type Result struct {
	Token     string  `json:"token,omitempty"`
	Outcome   Outcome `json:"outcome"`
	MessageID string  `json:"messageId,omitempty"`
	Error     string  `json:"error,omitempty"`
}

func (r Result) Delivered() bool { return r.Outcome == Delivered }

type MulticastResult struct {
	SuccessCount int      `json:"successCount"`
	FailureCount int      `json:"failureCount"`
	Results      []Result `json:"results"`
}

// Dispatcher sends notifications and classifies what the gateway says.
// It never retries; callers decide what to do with each outcome.
type Dispatcher struct {
	gateway Gateway
	log     zerolog.Logger
}

func NewDispatcher(gateway Gateway) *Dispatcher {
	return &Dispatcher{gateway: gateway, log: logger.Component("fcm")}
}

func (d *Dispatcher) Send(ctx context.Context, token string, p Payload) Result {
	if token == "" {
		return Result{Outcome: InvalidToken, Error: "empty token"}
	}
	if d.gateway == nil {
		return failure(token, ErrGatewayUnavailable)
	}
	id, err := d.gateway.Send(ctx, token, p.notification())
	if err != nil {
		r := failure(token, err)
		d.log.Warn().Err(err).Str("outcome", string(r.Outcome)).Msg("Push send failed")
		return r
	}
	return Result{Token: token, Outcome: Delivered, MessageID: id}
}

// SendMulticast delivers to every token in batches of fcm.MaxMulticastTokens.
// A failure on one token or one batch never affects the others. Results keep
// the order of tokens.
func (d *Dispatcher) SendMulticast(ctx context.Context, tokens []string, p Payload) MulticastResult {
	out := MulticastResult{Results: make([]Result, len(tokens))}

	// Empty tokens would make the gateway reject a whole batch.
	var idx []int
	var batch []string
	flush := func() {
		if len(batch) == 0 {
			return
		}
		d.sendBatch(ctx, batch, idx, p, out.Results)
		idx, batch = nil, nil
	}
	for i, t := range tokens {
		if t == "" {
			out.Results[i] = Result{Outcome: InvalidToken, Error: "empty token"}
			continue
		}
		idx = append(idx, i)
		batch = append(batch, t)
		if len(batch) == fcm.MaxMulticastTokens {
			flush()
		}
	}
	flush()

	for _, r := range out.Results {
		if r.Delivered() {
			out.SuccessCount++
		} else {
			out.FailureCount++
		}
	}
	d.log.Info().Int("tokens", len(tokens)).Int("success", out.SuccessCount).Int("failure", out.FailureCount).Msg("Multicast dispatched")
	return out
}

func (d *Dispatcher) sendBatch(ctx context.Context, batch []string, idx []int, p Payload, into []Result) {
	if d.gateway == nil {
		for k, i := range idx {
			into[i] = failure(batch[k], ErrGatewayUnavailable)
		}
		return
	}
	results, err := d.gateway.SendMulticast(ctx, batch, p.notification())
	if err != nil {
		d.log.Warn().Err(err).Int("tokens", len(batch)).Msg("Multicast batch failed")
		for k, i := range idx {
			into[i] = failure(batch[k], err)
		}
		return
	}
	for k, i := range idx {
		if k >= len(results) {
			into[i] = Result{Token: batch[k], Outcome: UnknownError, Error: "no response from gateway"}
			continue
		}
		if results[k].Err != nil {
			into[i] = failure(batch[k], results[k].Err)
			continue
		}
		into[i] = Result{Token: batch[k], Outcome: Delivered, MessageID: results[k].MessageID}
	}
}

func failure(token string, err error) Result {
	return Result{Token: token, Outcome: Classify(err), Error: err.Error()}
}

var (
	invalidTokenMarkers = []string{
		"registration-token-not-registered", "unregistered", "invalid-registration-token",
		"registration token is not a valid",
	}
	rateLimitMarkers = []string{
		"quota_exceeded", "quota-exceeded", "message-rate-exceeded",
		"status: 429", "status 429", "http 429", "code: 429", "code 429", "429 too many requests",
	}
	// INVALID_ARGUMENT also covers payload errors; it condemns the token only
	// when the message names it.
	tokenArgumentMarkers = []string{"registration token", "registration-token"}
)

// Classify maps a gateway error to an outcome. Firebase error codes are
// checked on every error in the chain, then the message text is matched.
func Classify(err error) Outcome {
	if err == nil {
		return Delivered
	}
	if inChain(err, messaging.IsUnregistered) || inChain(err, messaging.IsSenderIDMismatch) {
		return InvalidToken
	}
	if inChain(err, messaging.IsQuotaExceeded) {
		return RateLimited
	}

	text := strings.ToLower(err.Error())
	if inChain(err, messaging.IsInvalidArgument) {
		if containsAny(text, tokenArgumentMarkers) {
			return InvalidToken
		}
		return UnknownError
	}
	if containsAny(text, invalidTokenMarkers) {
		return InvalidToken
	}
	if containsAny(text, rateLimitMarkers) {
		return RateLimited
	}
	return UnknownError
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// inChain applies a Firebase predicate, which only inspects the concrete
// error type, to each wrapped error.
func inChain(err error, pred func(error) bool) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if pred(e) {
			return true
		}
	}
	return false
}
