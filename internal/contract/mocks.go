package contract

import (
	"context"
	"time"

	"github.com/huangsam/codetime/schema"
	"github.com/stretchr/testify/mock"
)

// MockGitClient is a mock type for the GitClient type.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run implements the GitClient interface.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	var mockArgs []any
	mockArgs = append(mockArgs, ctx, repoPath)
	for _, arg := range args {
		mockArgs = append(mockArgs, arg)
	}
	ret := m.Called(mockArgs...)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// Clone implements the GitClient interface.
func (m *MockGitClient) Clone(ctx context.Context, url, dest string, depth int) error {
	ret := m.Called(ctx, url, dest, depth)
	return ret.Error(0)
}

// GetCommitLog implements the GitClient interface.
func (m *MockGitClient) GetCommitLog(ctx context.Context, repoPath string, maxCount int) ([]byte, error) {
	ret := m.Called(ctx, repoPath, maxCount)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// ListFilesAtRef implements the GitClient interface.
func (m *MockGitClient) ListFilesAtRef(ctx context.Context, repoPath string, ref string) ([]TreeEntry, error) {
	ret := m.Called(ctx, repoPath, ref)
	entries, _ := ret.Get(0).([]TreeEntry)
	return entries, ret.Error(1)
}

// ShallowBoundary implements the GitClient interface.
func (m *MockGitClient) ShallowBoundary(ctx context.Context, repoPath string) ([]string, error) {
	ret := m.Called(ctx, repoPath)
	hashes, _ := ret.Get(0).([]string)
	return hashes, ret.Error(1)
}

// MockCommitSource is a mock type for the CommitSource type.
type MockCommitSource struct {
	mock.Mock
}

var _ CommitSource = &MockCommitSource{} // Compile-time check

// FetchCommits implements the CommitSource interface.
func (m *MockCommitSource) FetchCommits(ctx context.Context, url string, maxDepth int) (*schema.SourceSnapshot, error) {
	ret := m.Called(ctx, url, maxDepth)
	snap, _ := ret.Get(0).(*schema.SourceSnapshot)
	return snap, ret.Error(1)
}

// MockLLMClient is a mock type for the LLMClient type.
type MockLLMClient struct {
	mock.Mock
}

var _ LLMClient = &MockLLMClient{} // Compile-time check

// Complete implements the LLMClient interface.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, budget int) (string, error) {
	ret := m.Called(ctx, prompt, budget)
	return ret.String(0), ret.Error(1)
}

// MockCacheStore is a mock type for the CacheStore type.
type MockCacheStore struct {
	mock.Mock
}

var _ CacheStore = &MockCacheStore{} // Compile-time check

// Put implements the CacheStore interface.
func (m *MockCacheStore) Put(ctx context.Context, repoID string, entry *schema.CacheEntry) error {
	ret := m.Called(ctx, repoID, entry)
	return ret.Error(0)
}

// Get implements the CacheStore interface.
func (m *MockCacheStore) Get(ctx context.Context, repoID string) (*schema.CacheEntry, bool, error) {
	ret := m.Called(ctx, repoID)
	entry, _ := ret.Get(0).(*schema.CacheEntry)
	return entry, ret.Bool(1), ret.Error(2)
}

// Exists implements the CacheStore interface.
func (m *MockCacheStore) Exists(ctx context.Context, repoID string) (bool, error) {
	ret := m.Called(ctx, repoID)
	return ret.Bool(0), ret.Error(1)
}

// List implements the CacheStore interface.
func (m *MockCacheStore) List(ctx context.Context, limit int) ([]schema.EntrySummary, error) {
	ret := m.Called(ctx, limit)
	rows, _ := ret.Get(0).([]schema.EntrySummary)
	return rows, ret.Error(1)
}

// Delete implements the CacheStore interface.
func (m *MockCacheStore) Delete(ctx context.Context, repoID string) error {
	ret := m.Called(ctx, repoID)
	return ret.Error(0)
}

// Cleanup implements the CacheStore interface.
func (m *MockCacheStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	ret := m.Called(ctx, olderThan)
	return ret.Int(0), ret.Error(1)
}

// GetStatus implements the CacheStore interface.
func (m *MockCacheStore) GetStatus() (schema.CacheStatus, error) {
	ret := m.Called()
	status, _ := ret.Get(0).(schema.CacheStatus)
	return status, ret.Error(1)
}

// Close implements the CacheStore interface.
func (m *MockCacheStore) Close() error {
	ret := m.Called()
	return ret.Error(0)
}
