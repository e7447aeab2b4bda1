// Package testserver builds a fully wired in-process server for integration
// tests: sqlite in shared-cache memory mode, the in-memory realtime store,
// and the real HTTP surface.
package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retroloop/retroloop/internal/domain/collab"
	"github.com/retroloop/retroloop/internal/domain/review"
	"github.com/retroloop/retroloop/internal/identity"
	"github.com/retroloop/retroloop/internal/sqlite"
	"github.com/retroloop/retroloop/internal/store/memory"
	"github.com/retroloop/retroloop/internal/transport"
)

type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Store  *memory.Store
}

func New(t *testing.T, collabOpts ...collab.Option) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	ident := identity.NewService(sqlite.NewPrincipalRepository(db), nil)
	reviews := review.NewService(sqlite.NewReviewRepository(db), nil)
	st := memory.New()
	sessions := collab.NewService(st, nil, collabOpts...)

	server := httptest.NewServer(transport.NewServer(ident, reviews, sessions, st, "https://retroloop.test", nil))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return &TestServer{Server: server, DB: db, Store: st}
}

// SignIn issues a fresh anonymous principal and returns its id, which doubles
// as the bearer token.
func (ts *TestServer) SignIn(t *testing.T) string {
	t.Helper()

	resp, err := http.Post(ts.Server.URL+"/auth/anonymous", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		PrincipalID string `json:"principalId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.PrincipalID
}
