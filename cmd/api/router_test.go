package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

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
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore/memstore"
)

type testServer struct {
	engine  *gin.Engine
	store   *memstore.Store
	tracker *presence.Tracker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := &config.Config{
		JWTSecret:           "test-secret",
		JWTAccessExpiry:     time.Hour,
		AdminEmail:          "admin@shop.test",
		AdminPasswordHash:   string(hash),
		NotifyRatePerMinute: 1,
		LocalTokensEnabled:  true,
	}

	clk := clock.NewFake(time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC))
	store := memstore.New(clk)
	conversations := repository.NewConversationRepository(store)
	messages := repository.NewMessageRepository(store)
	r := resolver.New(conversations)
	mirror.NewEngine(messages, conversations, r).Register(store)

	registry := token.NewRegistry(store, clk)
	notifService := notification.NewService(notification.NewDispatcher(nil), registry, nil, time.Minute)
	tracker := presence.NewTracker(store, clk, presence.Options{})
	t.Cleanup(tracker.Close)

	h := NewHandler(authUsecase.NewAuthUsecase(cfg), messagingUsecase.NewMessagingUsecase(conversations, messages, r), tracker, notifService, registry, cfg)
	return &testServer{engine: h.Engine(), store: store, tracker: tracker}
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "admin@shop.test", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken
}

func TestHealthAndAuth(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/health", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/conversations", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/conversations", "bogus", nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "admin@shop.test", "password": "wrong-pass"}).Code)

	tok := s.login(t)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/auth/me", tok, nil).Code)
}

func TestUserMessageShowsUpInConversationList(t *testing.T) {
	s := newTestServer(t)
	tok := s.login(t)

	w := s.do(t, http.MethodPost, "/api/users/U1/messages", tok, gin.H{
		"message":     "Where is my order?",
		"senderName":  "Ann",
		"senderEmail": "ann@x.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/conversations", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Conversations []struct {
			ID          string `json:"id"`
			CustomerID  string `json:"customerId"`
			LastMessage string `json:"lastMessage"`
		} `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, "U1", list.Conversations[0].CustomerID)
	assert.Equal(t, "Where is my order?", list.Conversations[0].LastMessage)

	w = s.do(t, http.MethodPost, "/api/conversations/"+list.Conversations[0].ID+"/messages", tok, gin.H{"message": "On its way"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/users/U1/messages", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "On its way")
}

func TestTokenRoutes(t *testing.T) {
	s := newTestServer(t)
	tok := s.login(t)

	w := s.do(t, http.MethodPost, "/api/tokens/generate", tok, gin.H{"userId": "U1", "permission": "denied"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/tokens/generate", tok, gin.H{"userId": "U1", "permission": "granted", "token": "T1"})
	assert.Equal(t, http.StatusCreated, w.Code)
	w = s.do(t, http.MethodPost, "/api/tokens/generate", tok, gin.H{"userId": "U1", "permission": "granted", "token": "T2"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"T1"`)

	w = s.do(t, http.MethodDelete, "/api/tokens/U1", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/api/tokens/generate", tok, gin.H{"userId": "U1", "local": true})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "local-")
}

func TestPresenceRoutes(t *testing.T) {
	s := newTestServer(t)
	tok := s.login(t)

	w := s.do(t, http.MethodPost, "/api/presence/sessions", tok, gin.H{"userId": "U1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var started struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))

	w = s.do(t, http.MethodGet, "/api/presence/U1", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isOnline":true`)

	w = s.do(t, http.MethodPost, "/api/presence/sessions/"+started.SessionID+"/events", tok, gin.H{"event": "heartbeat"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"state":"active"`)
}

func TestNotificationRoutesAreRateLimited(t *testing.T) {
	s := newTestServer(t)
	tok := s.login(t)

	codes := make([]int, 0, 7)
	for i := 0; i < 7; i++ {
		w := s.do(t, http.MethodGet, "/api/notifications/deliveries", tok, nil)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusTooManyRequests, codes[len(codes)-1])
}
