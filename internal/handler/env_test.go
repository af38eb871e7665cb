package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/Gur1a/CheckList/internal/auth"
	"github.com/Gur1a/CheckList/internal/handler"
	"github.com/Gur1a/CheckList/internal/middleware"
	"github.com/Gur1a/CheckList/internal/model"
	"github.com/Gur1a/CheckList/internal/obfuscate"
	"github.com/Gur1a/CheckList/internal/repository/sqlite"
	"github.com/Gur1a/CheckList/internal/service"
)

// testEnv wires every handler to real services over an in-memory
// database, so these tests cover the JSON shapes and status codes the
// SPA actually sees.
type testEnv struct {
	db     *sqlite.DB
	codec  *obfuscate.Codec
	tokens *auth.TokenService

	authSvc  *service.AuthService
	auth     *handler.AuthHandler
	projects *handler.ProjectHandler
	boards   *handler.BoardHandler
	tasks    *handler.TaskHandler
	tags     *handler.TagHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec := obfuscate.New()

	authSvc := service.NewAuthService(db, tokens, auth.NewPasswordServiceWithCost(4), logger)
	return &testEnv{
		db:       db,
		codec:    codec,
		tokens:   tokens,
		authSvc:  authSvc,
		auth:     handler.NewAuthHandler(authSvc, tokens, nil, logger),
		projects: handler.NewProjectHandler(service.NewProjectService(db, logger), codec, logger),
		boards:   handler.NewBoardHandler(service.NewBoardService(db, db, logger), logger),
		tasks:    handler.NewTaskHandler(service.NewTaskService(db, db, db, logger), logger),
		tags:     handler.NewTagHandler(service.NewTagService(db, db, db, logger), logger),
	}
}

// user registers an account and returns it.
func (e *testEnv) user(t *testing.T, username string) *model.User {
	t.Helper()
	res, err := e.authSvc.Register(context.Background(), service.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	return res.User
}

// call describes one request to a handler method.
type call struct {
	method    string
	target    string
	body      any // string is sent raw, anything else as JSON
	userID    int64
	projectID int64
	params    map[string]string // chi URL params
}

// serve runs h the way the router would: URL params, the authenticated
// user and the decoded project id are put on the context first.
func serve(t *testing.T, h http.HandlerFunc, c call) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	switch b := c.body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(c.method, c.target, body)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if c.userID > 0 {
		ctx = auth.WithUserID(ctx, c.userID)
	}
	if c.projectID > 0 {
		ctx = middleware.WithProjectID(ctx, c.projectID)
	}
	if len(c.params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range c.params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}

	rr := httptest.NewRecorder()
	h(rr, req.WithContext(ctx))
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
