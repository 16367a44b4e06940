// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase.
package testutil

import (
	"context"
	"sync"

	"graphable/internal/domain"
)

// === Audit Repository Mock ===

// MockAuditRepo implements domain.AuditRepository and collects entries. It
// is safe for concurrent use.
type MockAuditRepo struct {
	InsertFn func(ctx context.Context, e *domain.AuditEntry) error

	mu      sync.Mutex
	entries []*domain.AuditEntry
}

// Insert implements the interface method for testing.
func (m *MockAuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(ctx, e); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// List implements the interface method for testing.
func (m *MockAuditRepo) List(_ context.Context, _ domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditEntry, len(m.entries))
	for i, e := range m.entries {
		out[i] = *e
	}
	return out, int64(len(out)), nil
}

// Entries returns the collected entries.
func (m *MockAuditRepo) Entries() []*domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.AuditEntry(nil), m.entries...)
}

// HasAction returns true if any collected entry has the given action.
func (m *MockAuditRepo) HasAction(action string) bool {
	for _, e := range m.Entries() {
		if e.Action == action {
			return true
		}
	}
	return false
}

// === Graph Repository Mock ===

// MockGraphRepo implements domain.GraphRepository.
type MockGraphRepo struct {
	SaveFn   func(ctx context.Context, g *domain.Graph) (*domain.Graph, error)
	GetFn    func(ctx context.Context, workspaceID, id string) (*domain.Graph, error)
	ListFn   func(ctx context.Context, workspaceID string, page domain.PageRequest) ([]domain.Graph, int64, error)
	DeleteFn func(ctx context.Context, workspaceID, id string) error
}

// Save implements the interface method for testing.
func (m *MockGraphRepo) Save(ctx context.Context, g *domain.Graph) (*domain.Graph, error) {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, g)
	}
	panic("unexpected call to MockGraphRepo.Save")
}

// Get implements the interface method for testing.
func (m *MockGraphRepo) Get(ctx context.Context, workspaceID, id string) (*domain.Graph, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, workspaceID, id)
	}
	panic("unexpected call to MockGraphRepo.Get")
}

// List implements the interface method for testing.
func (m *MockGraphRepo) List(ctx context.Context, workspaceID string, page domain.PageRequest) ([]domain.Graph, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, workspaceID, page)
	}
	panic("unexpected call to MockGraphRepo.List")
}

// Delete implements the interface method for testing.
func (m *MockGraphRepo) Delete(ctx context.Context, workspaceID, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, workspaceID, id)
	}
	panic("unexpected call to MockGraphRepo.Delete")
}

// GraphsByID returns a GetFn serving graphs from a map, NotFound otherwise.
func GraphsByID(graphs map[string]*domain.Graph) func(context.Context, string, string) (*domain.Graph, error) {
	return func(_ context.Context, _ string, id string) (*domain.Graph, error) {
		g, ok := graphs[id]
		if !ok {
			return nil, domain.ErrNotFound("graph %q not found", id)
		}
		cp := *g
		return &cp, nil
	}
}

// === Dashboard Repository Mock ===

// MockDashboardRepo implements domain.DashboardRepository.
type MockDashboardRepo struct {
	SaveFn   func(ctx context.Context, d *domain.Dashboard) (*domain.Dashboard, error)
	GetFn    func(ctx context.Context, workspaceID, id string) (*domain.Dashboard, error)
	ListFn   func(ctx context.Context, workspaceID string, page domain.PageRequest) ([]domain.Dashboard, int64, error)
	DeleteFn func(ctx context.Context, workspaceID, id string) error
}

// Save implements the interface method for testing.
func (m *MockDashboardRepo) Save(ctx context.Context, d *domain.Dashboard) (*domain.Dashboard, error) {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, d)
	}
	panic("unexpected call to MockDashboardRepo.Save")
}

// Get implements the interface method for testing.
func (m *MockDashboardRepo) Get(ctx context.Context, workspaceID, id string) (*domain.Dashboard, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, workspaceID, id)
	}
	panic("unexpected call to MockDashboardRepo.Get")
}

// List implements the interface method for testing.
func (m *MockDashboardRepo) List(ctx context.Context, workspaceID string, page domain.PageRequest) ([]domain.Dashboard, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, workspaceID, page)
	}
	panic("unexpected call to MockDashboardRepo.List")
}

// Delete implements the interface method for testing.
func (m *MockDashboardRepo) Delete(ctx context.Context, workspaceID, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, workspaceID, id)
	}
	panic("unexpected call to MockDashboardRepo.Delete")
}

// === Data Source Repository Mock ===

// MockDataSourceRepo implements domain.DataSourceRepository.
type MockDataSourceRepo struct {
	SaveFn   func(ctx context.Context, ds *domain.DataSource) (*domain.DataSource, error)
	GetFn    func(ctx context.Context, workspaceID, id string) (*domain.DataSource, error)
	ListFn   func(ctx context.Context, workspaceID string, page domain.PageRequest) ([]domain.DataSource, int64, error)
	DeleteFn func(ctx context.Context, workspaceID, id string) error
}

// Save implements the interface method for testing.
func (m *MockDataSourceRepo) Save(ctx context.Context, ds *domain.DataSource) (*domain.DataSource, error) {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, ds)
	}
	panic("unexpected call to MockDataSourceRepo.Save")
}

// Get implements the interface method for testing.
func (m *MockDataSourceRepo) Get(ctx context.Context, workspaceID, id string) (*domain.DataSource, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, workspaceID, id)
	}
	panic("unexpected call to MockDataSourceRepo.Get")
}

// List implements the interface method for testing.
func (m *MockDataSourceRepo) List(ctx context.Context, workspaceID string, page domain.PageRequest) ([]domain.DataSource, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, workspaceID, page)
	}
	panic("unexpected call to MockDataSourceRepo.List")
}

// Delete implements the interface method for testing.
func (m *MockDataSourceRepo) Delete(ctx context.Context, workspaceID, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, workspaceID, id)
	}
	panic("unexpected call to MockDataSourceRepo.Delete")
}

// === Secret Reference Repository Mock ===

// MockSecretReferenceRepo implements domain.SecretReferenceRepository.
type MockSecretReferenceRepo struct {
	GetFn    func(ctx context.Context, workspaceID, dataSourceID string) (*domain.SecretReference, error)
	PutFn    func(ctx context.Context, workspaceID, dataSourceID string, ref domain.SecretReference) error
	DeleteFn func(ctx context.Context, workspaceID, dataSourceID string) error
}

// Get implements the interface method for testing.
func (m *MockSecretReferenceRepo) Get(ctx context.Context, workspaceID, dataSourceID string) (*domain.SecretReference, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, workspaceID, dataSourceID)
	}
	panic("unexpected call to MockSecretReferenceRepo.Get")
}

// Put implements the interface method for testing.
func (m *MockSecretReferenceRepo) Put(ctx context.Context, workspaceID, dataSourceID string, ref domain.SecretReference) error {
	if m.PutFn != nil {
		return m.PutFn(ctx, workspaceID, dataSourceID, ref)
	}
	panic("unexpected call to MockSecretReferenceRepo.Put")
}

// Delete implements the interface method for testing.
func (m *MockSecretReferenceRepo) Delete(ctx context.Context, workspaceID, dataSourceID string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, workspaceID, dataSourceID)
	}
	panic("unexpected call to MockSecretReferenceRepo.Delete")
}

// === Secret Provider Mocks ===

// MockSecretProvider implements domain.SecretProvider.
type MockSecretProvider struct {
	GetSecretFn func(ctx context.Context, ref domain.SecretReference) (string, error)
}

// GetSecret implements the interface method for testing.
func (m *MockSecretProvider) GetSecret(ctx context.Context, ref domain.SecretReference) (string, error) {
	if m.GetSecretFn != nil {
		return m.GetSecretFn(ctx, ref)
	}
	panic("unexpected call to MockSecretProvider.GetSecret")
}

// MockSecretWriter implements domain.SecretWriter.
type MockSecretWriter struct {
	PutSecretFn func(ctx context.Context, ref domain.SecretReference, payload string) (string, error)
}

// PutSecret implements the interface method for testing.
func (m *MockSecretWriter) PutSecret(ctx context.Context, ref domain.SecretReference, payload string) (string, error) {
	if m.PutSecretFn != nil {
		return m.PutSecretFn(ctx, ref, payload)
	}
	panic("unexpected call to MockSecretWriter.PutSecret")
}

// === Query Executor Mock ===

// MockQueryExecutor implements domain.QueryExecutor and records requests.
// It is safe for concurrent use.
type MockQueryExecutor struct {
	ExecuteFn func(ctx context.Context, req domain.ExecuteRequest) (*domain.PagedResult, error)

	mu       sync.Mutex
	requests []domain.ExecuteRequest
}

// Execute implements the interface method for testing.
func (m *MockQueryExecutor) Execute(ctx context.Context, req domain.ExecuteRequest) (*domain.PagedResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, req)
	}
	panic("unexpected call to MockQueryExecutor.Execute")
}

// Requests returns the recorded requests in call order.
func (m *MockQueryExecutor) Requests() []domain.ExecuteRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ExecuteRequest(nil), m.requests...)
}

// Rows builds a PagedResult holding rows with the given columns.
func Rows(columns []string, rows ...map[string]any) *domain.PagedResult {
	if rows == nil {
		rows = []map[string]any{}
	}
	return &domain.PagedResult{
		Rows:       rows,
		Columns:    columns,
		TotalCount: int64(len(rows)),
		Page:       1,
		PageSize:   len(rows),
		TotalPages: 1,
	}
}
