package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/retroloop/retroloop/internal/domain/collab"
	"github.com/retroloop/retroloop/internal/domain/review"
	"github.com/retroloop/retroloop/internal/identity"
	"github.com/retroloop/retroloop/internal/repository"
	"github.com/retroloop/retroloop/internal/store/memory"
)

type memIdentityRepo struct {
	mu         sync.Mutex
	principals map[string]identity.Principal
}

func newMemIdentityRepo() *memIdentityRepo {
	return &memIdentityRepo{principals: map[string]identity.Principal{}}
}

func (r *memIdentityRepo) Create(_ context.Context, p identity.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.principals[p.ID] = p
	return nil
}

func (r *memIdentityRepo) Get(_ context.Context, id string) (*identity.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.principals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

type memReviewRepo struct {
	mu    sync.Mutex
	items map[string][]review.Item
}

func newMemReviewRepo() *memReviewRepo {
	return &memReviewRepo{items: map[string][]review.Item{}}
}

func reviewKey(principalID string, year int) string {
	return fmt.Sprintf("%s/%d", principalID, year)
}

func (r *memReviewRepo) AddItem(_ context.Context, principalID string, year int, item review.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := reviewKey(principalID, year)
	r.items[key] = append(r.items[key], item)
	return nil
}

func (r *memReviewRepo) DeleteItem(_ context.Context, principalID string, year int, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := reviewKey(principalID, year)
	kept := r.items[key][:0]
	for _, item := range r.items[key] {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	r.items[key] = kept
	return nil
}

func (r *memReviewRepo) ListYear(_ context.Context, principalID string, year int) ([]review.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]review.Item(nil), r.items[reviewKey(principalID, year)]...), nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	ident := identity.NewService(newMemIdentityRepo(), logger)
	reviews := review.NewService(newMemReviewRepo(), logger)
	st := memory.New()
	sessions := collab.NewService(st, logger)

	server := httptest.NewServer(NewServer(ident, reviews, sessions, st, "https://retroloop.test", logger))
	t.Cleanup(server.Close)
	return server
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

func signIn(t *testing.T, server *httptest.Server) string {
	t.Helper()

	resp, err := http.Post(server.URL+"/auth/anonymous", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		PrincipalID string `json:"principalId"`
		Name        string `json:"name"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.PrincipalID)
	require.NotEmpty(t, body.Name)
	return body.PrincipalID
}

func doJSON(t *testing.T, method, url, token string, payload any) *http.Response {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer([]byte("{}"))
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionsRequireAuth(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/sessions", "application/json", bytes.NewBufferString(`{"year":2026}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t)
	annToken := signIn(t, server)
	benToken := signIn(t, server)

	resp := doJSON(t, http.MethodPost, server.URL+"/sessions", annToken, map[string]any{
		"year":     2026,
		"nickname": "Ann",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON[map[string]string](t, resp)
	code := created["inviteCode"]
	require.Len(t, code, 6)
	require.Contains(t, created["inviteUrl"], "invite="+code)

	resp = doJSON(t, http.MethodPost, server.URL+"/sessions/"+strings.ToLower(code)+"/join", benToken, map[string]any{
		"nickname": "Ben",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	joined := decodeJSON[map[string]string](t, resp)
	require.Equal(t, code, joined["inviteCode"])

	resp = doJSON(t, http.MethodPost, server.URL+"/sessions/"+code+"/items", annToken, map[string]any{
		"category":  "start",
		"content":   "pair more often",
		"createdBy": "Ann",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decodeJSON[review.Item](t, resp)
	require.NotEmpty(t, item.ID)

	resp = doJSON(t, http.MethodGet, server.URL+"/sessions/"+code, annToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess := decodeJSON[collab.Session](t, resp)
	require.Equal(t, code, sess.ID)
	require.Len(t, sess.Items, 1)
	require.Len(t, sess.Collaborators, 2)

	resp = doJSON(t, http.MethodPatch, server.URL+"/sessions/"+code+"/collaborators/me", benToken, map[string]any{
		"name": "Benjamin",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, server.URL+"/sessions/"+code+"/items/"+item.ID, annToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, server.URL+"/sessions/"+code+"/leave", benToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, server.URL+"/sessions/"+code, annToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/sessions/"+code, annToken, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestJoinUnknownCodeReturnsNotFound(t *testing.T) {
	server := newTestServer(t)
	token := signIn(t, server)

	resp := doJSON(t, http.MethodPost, server.URL+"/sessions/ZZZZZZ/join", token, map[string]any{
		"nickname": "Ann",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddItemRejectsBadCategory(t *testing.T) {
	server := newTestServer(t)
	token := signIn(t, server)

	resp := doJSON(t, http.MethodPost, server.URL+"/sessions", token, map[string]any{
		"year":     2026,
		"nickname": "Ann",
	})
	created := decodeJSON[map[string]string](t, resp)

	resp = doJSON(t, http.MethodPost, server.URL+"/sessions/"+created["inviteCode"]+"/items", token, map[string]any{
		"category": "maybe",
		"content":  "hm",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPrivateReviewRoundTrip(t *testing.T) {
	server := newTestServer(t)
	token := signIn(t, server)

	resp := doJSON(t, http.MethodPost, server.URL+"/reviews/2026/items", token, map[string]any{
		"category":  "continue",
		"content":   "weekly demos",
		"createdBy": "me",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decodeJSON[review.Item](t, resp)

	resp = doJSON(t, http.MethodGet, server.URL+"/reviews/2026", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rev := decodeJSON[review.YearReview](t, resp)
	require.Equal(t, 2026, rev.Year)
	require.Len(t, rev.Items, 1)
	require.Equal(t, item.ID, rev.Items[0].ID)

	resp = doJSON(t, http.MethodDelete, server.URL+"/reviews/2026/items/"+item.ID, token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/reviews/2026", token, nil)
	rev = decodeJSON[review.YearReview](t, resp)
	require.Empty(t, rev.Items)
}

func TestPrivateReviewsAreScopedToPrincipal(t *testing.T) {
	server := newTestServer(t)
	annToken := signIn(t, server)
	benToken := signIn(t, server)

	resp := doJSON(t, http.MethodPost, server.URL+"/reviews/2026/items", annToken, map[string]any{
		"category": "stop",
		"content":  "late standups",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/reviews/2026", benToken, nil)
	rev := decodeJSON[review.YearReview](t, resp)
	require.Empty(t, rev.Items)
}

func TestSessionSocketPushesState(t *testing.T) {
	server := newTestServer(t)
	annToken := signIn(t, server)

	resp := doJSON(t, http.MethodPost, server.URL+"/sessions", annToken, map[string]any{
		"year":     2026,
		"nickname": "Ann",
	})
	created := decodeJSON[map[string]string](t, resp)
	code := created["inviteCode"]

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/sessions/" + code + "/ws?access_token=" + annToken
	conn, wsResp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if wsResp != nil {
		wsResp.Body.Close()
	}
	defer conn.Close()

	readFrame := func() sessionFrame {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var frame sessionFrame
		require.NoError(t, conn.ReadJSON(&frame))
		return frame
	}

	// The watch pushes the current state on attach.
	frame := readFrame()
	require.NotNil(t, frame.Session)
	require.Equal(t, code, frame.Session.ID)
	require.Len(t, frame.Collaborators, 1)

	resp = doJSON(t, http.MethodPost, server.URL+"/sessions/"+code+"/items", annToken, map[string]any{
		"category": "start",
		"content":  "socket checks",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	frame = readFrame()
	require.NotNil(t, frame.Session)
	require.Len(t, frame.Session.Items, 1)
	require.Equal(t, "socket checks", frame.Session.Items[0].Content)

	resp = doJSON(t, http.MethodDelete, server.URL+"/sessions/"+code, annToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	frame = readFrame()
	require.Nil(t, frame.Session)
	require.Empty(t, frame.Collaborators)
}
