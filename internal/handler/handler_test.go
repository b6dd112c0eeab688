package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/jmrh-portal/internal/auth"
	"github.com/prn-tf/jmrh-portal/internal/domain"
	"github.com/prn-tf/jmrh-portal/internal/lifecycle"
	"github.com/prn-tf/jmrh-portal/internal/lock"
	"github.com/prn-tf/jmrh-portal/internal/metrics"
	"github.com/prn-tf/jmrh-portal/internal/repository/memory"
	"github.com/prn-tf/jmrh-portal/internal/service"
	"github.com/prn-tf/jmrh-portal/internal/storage"
	"github.com/prn-tf/jmrh-portal/internal/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// MockFileResolver is a mock implementation of service.FileResolver.
type MockFileResolver struct{}

func (m *MockFileResolver) ResolveURL(ctx context.Context, bucket, path string) string {
	if storage.IsURL(path) {
		return path
	}
	return "https://s3.example.org/get/" + path
}

func (m *MockFileResolver) UploadURL(ctx context.Context, userID, filename string) (*storage.Upload, error) {
	if _, err := storage.ContentType(filename); err != nil {
		return nil, err
	}
	return &storage.Upload{
		Key:         "manuscripts/" + userID + "/2026/10/upload.pdf",
		URL:         "https://s3.example.org/put",
		ContentType: "application/pdf",
		ExpiresAt:   time.Date(2026, 10, 18, 13, 0, 0, 0, time.UTC),
	}, nil
}

type testServer struct {
	store    *store.Store
	accounts *service.AccountService
	subs     *service.SubmissionService
	reviews  *service.ReviewService
	tokens   *auth.TokenManager
	metrics  *metrics.Metrics
	handler  http.Handler
}

type serverOptions struct {
	skipLoad bool
	files    service.FileResolver
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	st := store.New(memory.NewSnapshotRepository(), lock.NewMemoryLocker(), zerolog.Nop(), store.Config{Mode: lifecycle.Permissive}, m)
	if !opts.skipLoad {
		require.NoError(t, st.Load(context.Background()))
	}

	tokens, err := auth.NewTokenManager([]byte(testSecret), time.Hour)
	require.NoError(t, err)

	ts := &testServer{
		store:    st,
		accounts: service.NewAccountService(st, zerolog.Nop(), 4),
		subs:     service.NewSubmissionService(st, opts.files, zerolog.Nop()),
		reviews:  service.NewReviewService(st, zerolog.Nop()),
		tokens:   tokens,
		metrics:  m,
	}

	h, err := New(Config{
		Accounts:    ts.accounts,
		Submissions: ts.subs,
		Reviews:     ts.reviews,
		Export:      service.NewExportService(st, zerolog.Nop()),
		Tokens:      tokens,
		State:       st,
		Metrics:     m,
		Gatherer:    reg,
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	ts.handler = h.Routes()
	return ts
}

func (ts *testServer) admin(t *testing.T) *domain.User {
	t.Helper()
	u, _, err := ts.accounts.EnsureAdmin(context.Background(), "Editor in Chief", "chief@jmrh.org", "chief-password")
	require.NoError(t, err)
	return u
}

func (ts *testServer) author(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := ts.accounts.Register(context.Background(), service.RegisterInput{Name: "Ada Lovelace", Email: email, Password: "password123"})
	require.NoError(t, err)
	return u
}

func (ts *testServer) professor(t *testing.T, admin *domain.User, email string) *domain.User {
	t.Helper()
	u, err := ts.accounts.CreateProfessor(context.Background(), admin, service.CreateProfessorInput{Name: "Prof. Noether", Email: email, Password: "password123"})
	require.NoError(t, err)
	return u
}

type request struct {
	method string
	path   string
	form   url.Values
	json   string
	actor  *domain.User
	cookie *http.Cookie
}

func (ts *testServer) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()

	if req.method == "" {
		req.method = http.MethodGet
	}

	var r *http.Request
	switch {
	case req.form != nil:
		r = httptest.NewRequest(req.method, req.path, strings.NewReader(req.form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	case req.json != "":
		r = httptest.NewRequest(req.method, req.path, strings.NewReader(req.json))
		r.Header.Set("Content-Type", "application/json")
	default:
		r = httptest.NewRequest(req.method, req.path, nil)
	}

	if req.actor != nil {
		token, _, err := ts.tokens.Issue(req.actor.ID, string(req.actor.Role))
		require.NoError(t, err)
		r.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	}
	if req.cookie != nil {
		r.AddCookie(req.cookie)
	}

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	return w
}

func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
