package server

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"momoapi/internal/shared"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T, seed ...shared.Record) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "processed", "transactions.json")
	s, err := NewFileStore(path, nil, seed...)
	require.NoError(t, err)
	return s, path
}

func readArray(t *testing.T, path string) []map[string]any {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestFileStoreCreatesMissingFile(t *testing.T) {
	_, path := newTestFileStore(t)
	assert.Empty(t, readArray(t, path))

	seeded, seededPath := newTestFileStore(t, SampleRecord(time.Now()))
	got := readArray(t, seededPath)
	require.Len(t, got, 1)
	assert.Equal(t, float64(1), got[0]["id"])

	col, idx, err := seeded.Load()
	require.NoError(t, err)
	assert.Len(t, col, 1)
	assert.Contains(t, idx, int64(1))
}

func TestFileStoreRecreatesDeletedFile(t *testing.T) {
	s, path := newTestFileStore(t)
	require.NoError(t, os.Remove(path))

	col, _, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, col)
	assert.FileExists(t, path)
}

func TestFileStoreCorruptFile(t *testing.T) {
	cases := map[string]string{
		"garbage":        `{{{`,
		"object":         `{"id":1}`,
		"null":           `null`,
		"empty":          ``,
		"scalar element": `[{"id":1}, 5]`,
		"trailing data":  `[] []`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			s, path := newTestFileStore(t)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, _, err := s.Load()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
		})
	}
}

func TestFileStoreCoercesAndRepairsIDs(t *testing.T) {
	s, path := newTestFileStore(t)
	raw := `[
		{"id": "3", "sender": "a"},
		{"id": 5.0, "sender": "b"},
		{"sender": "c"},
		{"id": "x", "sender": "d"},
		{"id": 3, "sender": "e"},
		{"id": -2, "sender": "f"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	snap, err := s.Inspect()
	require.NoError(t, err)
	require.Len(t, snap.Records, 6)

	var ids []int64
	for _, rec := range snap.Records {
		id, ok := rec.ID()
		require.True(t, ok)
		ids = append(ids, id)
	}
	assert.Equal(t, []int64{3, 5, 6, 7, 8, 9}, ids)
	assert.Len(t, snap.Index, 6, "every listed record is addressable")
	require.Len(t, snap.Repaired, 4)
	assert.Equal(t, Repair{Position: 2, OldID: nil, NewID: 6}, snap.Repaired[0])
	assert.Equal(t, 4, snap.Repaired[2].Position)

	// the repair is persisted by the next write
	_, err = s.Create(shared.Record{"sender": "g"})
	require.NoError(t, err)
	onDisk := readArray(t, path)
	require.Len(t, onDisk, 7)
	assert.Equal(t, float64(3), onDisk[0]["id"])
	assert.Equal(t, float64(6), onDisk[2]["id"])
	assert.Equal(t, float64(10), onDisk[6]["id"])
}

func TestFileStoreKeepsNumbersAndOrder(t *testing.T) {
	s, path := newTestFileStore(t)
	_, err := s.Create(shared.Record{"amount": json.Number("1234567890.123456789"), "sender": "z"})
	require.NoError(t, err)
	_, err = s.Create(shared.Record{"amount": json.Number("1"), "sender": "a"})
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "1234567890.123456789")

	col, err := s.List()
	require.NoError(t, err)
	require.Len(t, col, 2)
	assert.Equal(t, "z", col[0]["sender"])
	assert.Equal(t, "a", col[1]["sender"])
}

func TestFileStoreSaveLeavesBackupAndNoTemp(t *testing.T) {
	s, path := newTestFileStore(t)
	_, err := s.Create(shared.Record{"amount": 1})
	require.NoError(t, err)
	_, err = s.Create(shared.Record{"amount": 2})
	require.NoError(t, err)

	backup := readArray(t, path+".backup")
	assert.Len(t, backup, 1, "backup holds the file as it was before the last save")
	assert.Len(t, readArray(t, path), 2)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
}

func TestFileStoreRestoreFromBackup(t *testing.T) {
	s, path := newTestFileStore(t)
	_, err := s.Create(shared.Record{"amount": 1})
	require.NoError(t, err)
	_, err = s.Create(shared.Record{"amount": 2})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`[{"id":1`), 0o644))
	s.restoreFromBackup(path + ".backup")
	assert.Len(t, readArray(t, path), 1)

	// a parseable live file is never overwritten
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))
	s.restoreFromBackup(path + ".backup")
	assert.Empty(t, readArray(t, path))
}

func TestFileStoreSaveFailureKeepsFile(t *testing.T) {
	s, path := newTestFileStore(t, shared.Record{"id": int64(1)})
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = s.Save(Collection{{"bad": make(chan int)}})
	require.Error(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestNextID(t *testing.T) {
	assert.Equal(t, int64(1), NextID(nil))
	assert.Equal(t, int64(1), NextID(Collection{{"sender": "x"}}))
	assert.Equal(t, int64(8), NextID(Collection{{"id": int64(7)}, {"id": int64(2)}}))
}

func TestDeleteAndUpdateUnknown(t *testing.T) {
	s, path := newTestFileStore(t, shared.Record{"id": int64(1)})
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.True(t, errors.Is(s.Delete(2), ErrNotFound))
	_, err = s.Update(2, shared.Record{})
	assert.True(t, errors.Is(err, ErrNotFound))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFileStoreReadersNeverSeePartialWrites(t *testing.T) {
	s, _ := newTestFileStore(t, shared.Record{"id": int64(1), "amount": 1})

	const writes = 200
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		// a larger body widens the window a torn read would fall into
		msg := strings.Repeat("x", 4096)
		for i := 0; i < writes; i++ {
			if _, err := s.Create(shared.Record{"amount": i, "message": msg}); !assert.NoError(t, err) {
				return
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := 0
			for {
				select {
				case <-done:
					return
				default:
				}
				col, err := s.List()
				if !assert.NoError(t, err) {
					return
				}
				if !assert.GreaterOrEqual(t, len(col), last, "list shrank") {
					return
				}
				last = len(col)

				rec, err := s.Get(1)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, int64(1), rec["id"])
			}
		}()
	}
	wg.Wait()

	col, err := s.List()
	require.NoError(t, err)
	assert.Len(t, col, writes+1)
}
