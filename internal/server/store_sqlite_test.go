package server

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"momoapi/internal/shared"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "transactions.db"))
	require.NoError(t, err)
	s := NewSQLiteStore(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreCRUD(t *testing.T) {
	s := newTestSQLiteStore(t)

	rec, err := s.Create(shared.Record{"sender": "A", "amount": 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec[shared.FieldID])
	assert.NotEmpty(t, rec[shared.FieldTimestamp])

	got, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "A", got["sender"])
	assert.Equal(t, json.Number("10"), got["amount"])

	_, err = s.Update(1, shared.Record{"id": 9, "amount": 20})
	require.NoError(t, err)
	got, err = s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got[shared.FieldID])
	assert.NotContains(t, got, "sender")

	require.NoError(t, s.Delete(1))
	_, err = s.Get(1)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.Delete(1), ErrNotFound))
	_, err = s.Update(1, shared.Record{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStoreImport(t *testing.T) {
	s := newTestSQLiteStore(t)
	col := Collection{
		{"id": int64(4), "sender": "first"},
		{"id": int64(2), "sender": "second"},
	}
	n, err := s.Import(col)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0]["sender"], "import keeps file order")
	assert.Equal(t, int64(2), list[1][shared.FieldID])

	n, err = s.Import(Collection{{"id": int64(1)}})
	require.NoError(t, err)
	assert.Zero(t, n, "non-empty table is left alone")

	rec, err := s.Create(shared.Record{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), rec[shared.FieldID])
}

func TestOpenRepositoryDrivers(t *testing.T) {
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "data", "transactions.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(dataFile), 0o755))
	require.NoError(t, os.WriteFile(dataFile, []byte(`[{"id":1,"sender":"A"},{"id":2,"sender":"B"}]`), 0o644))

	log := zap.NewNop().Sugar()

	cfg := shared.NewDefaultServerConfig()
	cfg.DataFile = dataFile
	cfg.DBPath = filepath.Join(dir, "db", "transactions.db")

	cfg.StoreDriver = shared.DriverJSON
	repo, err := OpenRepository(cfg, log, NewMetrics())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, repo)
	list, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	cfg.StoreDriver = shared.DriverSQLite
	repo, err = OpenRepository(cfg, log, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	list, err = repo.List()
	require.NoError(t, err)
	require.Len(t, list, 2, "sqlite store is seeded from the json file")
	assert.Equal(t, "B", list[1]["sender"])

	cfg.StoreDriver = shared.DriverMemory
	cfg.SeedSample = true
	repo, err = OpenRepository(cfg, log, nil)
	require.NoError(t, err)
	list, err = repo.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	cfg.StoreDriver = "bogus"
	_, err = OpenRepository(cfg, log, nil)
	assert.Error(t, err)
}
