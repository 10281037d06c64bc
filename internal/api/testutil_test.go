package api_test

import (
	"context"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"

	"github.com/promptvault/promptvault/internal/api"
	"github.com/promptvault/promptvault/internal/domain"
	"github.com/promptvault/promptvault/internal/server/middleware"
	"github.com/promptvault/promptvault/internal/store/memory"
)

// userCtx builds a request context carrying a signed-in user, the way the
// session middleware would.
func userCtx(user *domain.User) context.Context {
	return context.WithValue(context.Background(), middleware.ContextKeyUser, user)
}

// mockLogRepo lets each test override exactly the calls it cares about.
type mockLogRepo struct {
	get        func(ctx context.Context, id, ownerID string) (*domain.PromptLog, error)
	listAll    func(ctx context.Context, ownerID string) ([]*domain.PromptLog, error)
	listRecent func(ctx context.Context, limit int, ownerID string) ([]*domain.PromptLog, error)
	search     func(ctx context.Context, query, ownerID string) ([]*domain.PromptLog, error)
	create     func(ctx context.Context, in *domain.LogInput) (*domain.PromptLog, error)
	update     func(ctx context.Context, id string, patch *domain.LogPatch, ownerID string) (*domain.PromptLog, error)
	delete     func(ctx context.Context, id, ownerID string) (bool, error)
}

func (m *mockLogRepo) Get(ctx context.Context, id, ownerID string) (*domain.PromptLog, error) {
	return m.get(ctx, id, ownerID)
}

func (m *mockLogRepo) ListAll(ctx context.Context, ownerID string) ([]*domain.PromptLog, error) {
	return m.listAll(ctx, ownerID)
}

func (m *mockLogRepo) ListRecent(ctx context.Context, limit int, ownerID string) ([]*domain.PromptLog, error) {
	return m.listRecent(ctx, limit, ownerID)
}

func (m *mockLogRepo) Search(ctx context.Context, query, ownerID string) ([]*domain.PromptLog, error) {
	return m.search(ctx, query, ownerID)
}

func (m *mockLogRepo) Create(ctx context.Context, in *domain.LogInput) (*domain.PromptLog, error) {
	return m.create(ctx, in)
}

func (m *mockLogRepo) Update(ctx context.Context, id string, patch *domain.LogPatch, ownerID string) (*domain.PromptLog, error) {
	return m.update(ctx, id, patch, ownerID)
}

func (m *mockLogRepo) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	return m.delete(ctx, id, ownerID)
}

type mockDataStore struct {
	logs *mockLogRepo
}

func (m *mockDataStore) Logs() domain.LogRepository { return m.logs }

// newTestAPI mounts the full log surface on a fresh in-memory store.
func newTestAPI(t *testing.T) (humatest.TestAPI, *memory.Store) {
	t.Helper()
	_, testAPI := humatest.New(t)
	store := memory.New()
	api.RegisterLogReadRoutes(testAPI, store)
	api.RegisterLogWriteRoutes(testAPI, store)
	return testAPI, store
}

// newMockAPI mounts the log surface on a mock repository.
func newMockAPI(t *testing.T, repo *mockLogRepo) humatest.TestAPI {
	t.Helper()
	_, testAPI := humatest.New(t)
	store := &mockDataStore{logs: repo}
	api.RegisterLogReadRoutes(testAPI, store)
	api.RegisterLogWriteRoutes(testAPI, store)
	return testAPI
}
