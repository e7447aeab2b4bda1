package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/retroloop/retroloop/internal/domain/collab"
	"github.com/retroloop/retroloop/internal/domain/review"
	"github.com/retroloop/retroloop/internal/testserver"
)

func postJSON(t *testing.T, url, token string, payload any, out any) *http.Response {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func do(t *testing.T, method, url, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func dialSocket(t *testing.T, ts *testserver.TestServer, code, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.Server.URL, "http") + "/sessions/" + code + "/ws?access_token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame struct {
	Session       *collab.Session       `json:"session"`
	Collaborators []collab.Collaborator `json:"collaborators"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// readUntil drains frames until cond holds, so tests stay robust against
// intermediate pushes from other collaborators' writes.
func readUntil(t *testing.T, conn *websocket.Conn, cond func(frame) bool) frame {
	t.Helper()

	for i := 0; i < 20; i++ {
		f := readFrame(t, conn)
		if cond(f) {
			return f
		}
	}
	t.Fatal("no frame matched condition")
	return frame{}
}

func TestTwoClientsConverge(t *testing.T) {
	ts := testserver.New(t)
	annToken := ts.SignIn(t)
	benToken := ts.SignIn(t)

	var created map[string]string
	resp := postJSON(t, ts.Server.URL+"/sessions", annToken, map[string]any{
		"year":     2026,
		"nickname": "Ann",
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	code := created["inviteCode"]

	annConn := dialSocket(t, ts, code, annToken)
	f := readFrame(t, annConn)
	require.NotNil(t, f.Session)
	require.Len(t, f.Collaborators, 1)

	resp = postJSON(t, ts.Server.URL+"/sessions/"+code+"/join", benToken, map[string]any{
		"nickname": "Ben",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	f = readUntil(t, annConn, func(f frame) bool {
		return f.Session != nil && len(f.Collaborators) == 2
	})
	names := []string{f.Collaborators[0].Name, f.Collaborators[1].Name}
	require.ElementsMatch(t, []string{"Ann", "Ben"}, names)

	benConn := dialSocket(t, ts, code, benToken)
	readFrame(t, benConn)

	var item review.Item
	resp = postJSON(t, ts.Server.URL+"/sessions/"+code+"/items", benToken, map[string]any{
		"category":  "continue",
		"content":   "demo fridays",
		"createdBy": "Ben",
	}, &item)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	for _, conn := range []*websocket.Conn{annConn, benConn} {
		f = readUntil(t, conn, func(f frame) bool {
			return f.Session != nil && len(f.Session.Items) == 1
		})
		require.Equal(t, item.ID, f.Session.Items[0].ID)
		require.Equal(t, "demo fridays", f.Session.Items[0].Content)
	}
}

func TestRemoteDeletionReachesWatchers(t *testing.T) {
	ts := testserver.New(t)
	annToken := ts.SignIn(t)
	benToken := ts.SignIn(t)

	var created map[string]string
	postJSON(t, ts.Server.URL+"/sessions", annToken, map[string]any{
		"year":     2026,
		"nickname": "Ann",
	}, &created)
	code := created["inviteCode"]

	postJSON(t, ts.Server.URL+"/sessions/"+code+"/join", benToken, map[string]any{
		"nickname": "Ben",
	}, nil)

	benConn := dialSocket(t, ts, code, benToken)
	f := readFrame(t, benConn)
	require.NotNil(t, f.Session)

	resp := do(t, http.MethodDelete, ts.Server.URL+"/sessions/"+code, annToken)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	f = readUntil(t, benConn, func(f frame) bool { return f.Session == nil })
	require.Empty(t, f.Collaborators)

	resp = do(t, http.MethodGet, ts.Server.URL+"/sessions/"+code, benToken)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRejoinPreservesJoinTimeWhenConfigured(t *testing.T) {
	ts := testserver.New(t, collab.WithJoinedAtPreservation())
	annToken := ts.SignIn(t)
	benToken := ts.SignIn(t)

	var created map[string]string
	postJSON(t, ts.Server.URL+"/sessions", annToken, map[string]any{
		"year":     2026,
		"nickname": "Ann",
	}, &created)
	code := created["inviteCode"]

	postJSON(t, ts.Server.URL+"/sessions/"+code+"/join", benToken, map[string]any{
		"nickname": "Ben",
	}, nil)

	var sess collab.Session
	resp := do(t, http.MethodGet, ts.Server.URL+"/sessions/"+code, benToken)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	first := findCollaborator(t, sess, "Ben").JoinedAt

	time.Sleep(10 * time.Millisecond)
	postJSON(t, ts.Server.URL+"/sessions/"+code+"/join", benToken, map[string]any{
		"nickname": "Ben",
	}, nil)

	resp = do(t, http.MethodGet, ts.Server.URL+"/sessions/"+code, benToken)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	require.Equal(t, first, findCollaborator(t, sess, "Ben").JoinedAt)
}

func findCollaborator(t *testing.T, sess collab.Session, name string) collab.Collaborator {
	t.Helper()
	for _, c := range sess.Collaborators {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("collaborator %s not found", name)
	return collab.Collaborator{}
}

func TestPrincipalsSurviveAcrossRequests(t *testing.T) {
	ts := testserver.New(t)
	token := ts.SignIn(t)

	// The principal row is in sqlite; any later request must resolve it.
	resp := do(t, http.MethodGet, ts.Server.URL+"/reviews/2026", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.Server.URL+"/reviews/2026", "not-a-principal")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
