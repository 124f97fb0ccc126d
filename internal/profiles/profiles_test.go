package profiles

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"mcp-glucose-log/internal/models"
	"mcp-glucose-log/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "profiles.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage error: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestProfileLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	p, err := Open(ctx, st)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.Current(); !errors.Is(err, ErrNoCurrent) {
		t.Fatalf("Current on empty error = %v", err)
	}

	ana, err := p.Add(ctx, models.NewUserProfile("Ana", 34))
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	luis, err := p.Add(ctx, models.NewUserProfile("Luis", 58))
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}

	cur, err := p.Current()
	if err != nil || cur.ID != ana.ID {
		t.Fatalf("Current = %+v, %v; first profile should be current", cur, err)
	}

	if _, err := p.SetCurrent(ctx, luis.ID); err != nil {
		t.Fatalf("SetCurrent error: %v", err)
	}
	luis.DiabetesType = models.Type2
	luis.DiagnosisYear = "2019"
	if _, err := p.UpdateCurrent(ctx, luis); err != nil {
		t.Fatalf("UpdateCurrent error: %v", err)
	}

	reopened, err := Open(ctx, st)
	if err != nil {
		t.Fatal(err)
	}
	cur, err = reopened.Current()
	if err != nil || cur.ID != luis.ID || cur.DiabetesType != models.Type2 {
		t.Fatalf("reopened Current = %+v, %v", cur, err)
	}
	if n := len(reopened.List()); n != 2 {
		t.Errorf("List() has %d profiles, want 2", n)
	}

	if err := reopened.Delete(ctx, luis.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := reopened.Current(); !errors.Is(err, ErrNoCurrent) {
		t.Errorf("Current after deleting it error = %v", err)
	}
	if err := reopened.Delete(ctx, luis.ID); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("second Delete error = %v", err)
	}
	if _, err := reopened.SetCurrent(ctx, "missing"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("SetCurrent(missing) error = %v", err)
	}

	if err := reopened.Reset(ctx); err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	again, _ := Open(ctx, st)
	if len(again.List()) != 0 {
		t.Errorf("profiles survived Reset: %+v", again.List())
	}
}

func TestAddValidates(t *testing.T) {
	p, _ := Open(context.Background(), newTestStore(t))
	bad := models.NewUserProfile("", 30)
	if _, err := p.Add(context.Background(), bad); !errors.Is(err, models.ErrInvalidProfile) {
		t.Errorf("Add error = %v", err)
	}
	if _, err := p.UpdateCurrent(context.Background(), models.NewUserProfile("x", 1)); !errors.Is(err, ErrNoCurrent) {
		t.Errorf("UpdateCurrent without current error = %v", err)
	}
}

// memStore applies batches all-or-nothing and fails any batch touching
// failKey, or any read when getErr is set.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	failKey string
	getErr  error
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

var errDiskFull = errors.New("disk full")

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Put(ctx context.Context, key string, value []byte) error {
	return m.Apply(ctx, storage.PutOp(key, value))
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	return m.Apply(ctx, storage.DeleteOp(key))
}

func (m *memStore) Apply(ctx context.Context, ops ...storage.Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range ops {
		if op.Key == m.failKey {
			return errDiskFull
		}
	}
	for _, op := range ops {
		if op.Delete {
			delete(m.data, op.Key)
		} else {
			m.data[op.Key] = op.Value
		}
	}
	return nil
}

func TestFailedSaveLeavesNothingBehind(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.failKey = storage.KeyCurrentProfile

	p, err := Open(ctx, st)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Add(ctx, models.NewUserProfile("Ana", 34)); !errors.Is(err, errDiskFull) {
		t.Fatalf("Add error = %v, want disk full", err)
	}
	if n := len(p.List()); n != 0 {
		t.Errorf("in memory: %d profiles after failed Add", n)
	}

	st.failKey = ""
	reopened, err := Open(ctx, st)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(reopened.List()); n != 0 {
		t.Errorf("stored: %d profiles after failed Add", n)
	}
	if _, err := reopened.Current(); !errors.Is(err, ErrNoCurrent) {
		t.Errorf("Current error = %v", err)
	}
}

func TestOpenFailsOnReadError(t *testing.T) {
	st := newMemStore()
	st.getErr = errDiskFull
	if _, err := Open(context.Background(), st); !errors.Is(err, errDiskFull) {
		t.Errorf("Open error = %v, want disk full", err)
	}
}

func TestOpenToleratesCorruptData(t *testing.T) {
	st := newMemStore()
	st.data[storage.KeyProfiles] = []byte("{not json")
	st.data[storage.KeyCurrentProfile] = []byte(`["wrong shape"]`)

	p, err := Open(context.Background(), st)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if len(p.List()) != 0 {
		t.Errorf("List() = %+v", p.List())
	}
	if _, err := p.Current(); !errors.Is(err, ErrNoCurrent) {
		t.Errorf("Current error = %v", err)
	}
}
