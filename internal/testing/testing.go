// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/spotetl/internal/models"
	"github.com/desertthunder/spotetl/internal/services"
	"github.com/desertthunder/spotetl/internal/storage"
)

// MockCatalog is a test double for [services.Catalog]
type MockCatalog struct {
	Playlists    []services.Playlist
	Tracks       json.RawMessage
	AuthErr      error
	PlaylistsErr error
	TracksErr    error

	AuthCalls         int
	RequestedUser     string
	RequestedPlaylist string
}

func (m *MockCatalog) Authenticate(ctx context.Context) error {
	m.AuthCalls++
	return m.AuthErr
}

func (m *MockCatalog) UserPlaylists(ctx context.Context, userID string) ([]services.Playlist, error) {
	m.RequestedUser = userID
	if m.PlaylistsErr != nil {
		return nil, m.PlaylistsErr
	}
	return m.Playlists, nil
}

func (m *MockCatalog) PlaylistTracks(ctx context.Context, playlistID string) (json.RawMessage, error) {
	m.RequestedPlaylist = playlistID
	if m.TracksErr != nil {
		return nil, m.TracksErr
	}
	return m.Tracks, nil
}

func (m *MockCatalog) Name() string { return "mock" }

// FailingStore wraps a [storage.Store] and fails selected operations.
//
// PutErr only applies to keys starting with FailPutPrefix (all keys when empty).
type FailingStore struct {
	storage.Store
	ListErr       error
	GetErr        error
	PutErr        error
	FailPutPrefix string
	CopyErr       error
	DeleteErr     error
}

func (f *FailingStore) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Store.List(ctx, prefix)
}

func (f *FailingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	return f.Store.Get(ctx, key)
}

func (f *FailingStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if f.PutErr != nil && strings.HasPrefix(key, f.FailPutPrefix) {
		return f.PutErr
	}
	return f.Store.Put(ctx, key, data, contentType)
}

func (f *FailingStore) Copy(ctx context.Context, src, dst string) error {
	if f.CopyErr != nil {
		return f.CopyErr
	}
	return f.Store.Copy(ctx, src, dst)
}

func (f *FailingStore) Delete(ctx context.Context, key string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	return f.Store.Delete(ctx, key)
}

// MockRunStore is an in-memory run ledger.
type MockRunStore struct {
	mu        sync.Mutex
	Runs      map[string]*models.Run
	Objects   map[string][]string // run id -> "action:key"
	CreateErr error
	UpdateErr error
	ObjectErr error
	Updates   int
}

func NewMockRunStore() *MockRunStore {
	return &MockRunStore{Runs: map[string]*models.Run{}, Objects: map[string][]string{}}
}

func (m *MockRunStore) Create(run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	run.SetID("run-" + string(run.Kind()))
	m.Runs[run.ID()] = run
	return nil
}

func (m *MockRunStore) Update(run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates++
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.Runs[run.ID()] = run
	return nil
}

func (m *MockRunStore) RecordObject(runID string, action models.ObjectAction, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ObjectErr != nil {
		return m.ObjectErr
	}
	m.Objects[runID] = append(m.Objects[runID], string(action)+":"+key)
	return nil
}

// Run returns the only recorded run, failing the test otherwise.
func (m *MockRunStore) Run(t *testing.T) *models.Run {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(m.Runs))
	}
	for _, run := range m.Runs {
		return run
	}
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
