package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/jmrh-portal/internal/domain"
	"github.com/prn-tf/jmrh-portal/internal/lifecycle"
	"github.com/prn-tf/jmrh-portal/internal/lock"
	"github.com/prn-tf/jmrh-portal/internal/repository/memory"
	"github.com/prn-tf/jmrh-portal/internal/storage"
	"github.com/prn-tf/jmrh-portal/internal/store"
)

const testCost = 4

// MockFileResolver is a mock implementation of FileResolver.
type MockFileResolver struct {
	urls      map[string]string
	uploadErr error
	resolved  []string
}

func NewMockFileResolver() *MockFileResolver {
	return &MockFileResolver{urls: make(map[string]string)}
}

func (m *MockFileResolver) ResolveURL(ctx context.Context, bucket, path string) string {
	m.resolved = append(m.resolved, path)
	if storage.IsURL(path) {
		return path
	}
	return m.urls[path]
}

func (m *MockFileResolver) UploadURL(ctx context.Context, userID, filename string) (*storage.Upload, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	return &storage.Upload{
		Key:         "manuscripts/" + userID + "/2026/05/upload.pdf",
		URL:         "https://s3.example.org/put",
		ContentType: "application/pdf",
	}, nil
}

type testEnv struct {
	store    *store.Store
	repo     *memory.SnapshotRepository
	accounts *AccountService
	subs     *SubmissionService
	reviews  *ReviewService
	files    *MockFileResolver
}

func newTestEnv(t *testing.T, mode lifecycle.Mode) *testEnv {
	t.Helper()

	repo := memory.NewSnapshotRepository()
	st := store.New(repo, lock.NewMemoryLocker(), zerolog.Nop(), store.Config{Mode: mode}, nil)
	require.NoError(t, st.Load(context.Background()))

	files := NewMockFileResolver()
	return &testEnv{
		store:    st,
		repo:     repo,
		accounts: NewAccountService(st, zerolog.Nop(), testCost),
		subs:     NewSubmissionService(st, files, zerolog.Nop()),
		reviews:  NewReviewService(st, zerolog.Nop()),
		files:    files,
	}
}

func (e *testEnv) register(t *testing.T, name, email string) *domain.User {
	t.Helper()
	u, err := e.accounts.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: "password123"})
	require.NoError(t, err)
	return u
}

func (e *testEnv) admin(t *testing.T) *domain.User {
	t.Helper()
	u, _, err := e.accounts.EnsureAdmin(context.Background(), "Editor in Chief", "chief@jmrh.org", "chief-password")
	require.NoError(t, err)
	return u
}

func (e *testEnv) professor(t *testing.T, admin *domain.User, name, email string) *domain.User {
	t.Helper()
	u, err := e.accounts.CreateProfessor(context.Background(), admin, CreateProfessorInput{Name: name, Email: email, Password: "password123"})
	require.NoError(t, err)
	return u
}

func (e *testEnv) submit(t *testing.T, author *domain.User, title string) *domain.Paper {
	t.Helper()
	p, err := e.subs.Submit(context.Background(), author, SubmitInput{Title: title, Abstract: "Abstract", Discipline: "Physics"})
	require.NoError(t, err)
	return p
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	return verr.Fields
}
