package server

import (
	"bytes"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"momoapi/internal/shared"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// FileStore persists the collection as one JSON array file.
//
// Writers hold mu across load, mutate and save. Saves go through a temp file
// renamed over the target, so lock-free readers only ever see a complete
// array. The previous file is copied to <path>.backup before each rename.
type FileStore struct {
	mu   sync.Mutex
	path string
	seed Collection

	Log     *zap.SugaredLogger
	Metrics *Metrics
	now     func() time.Time
}

// Repair describes an entry whose id was rewritten at load time.
type Repair struct {
	Position int   `json:"position"`
	OldID    any   `json:"old_id"`
	NewID    int64 `json:"new_id"`
}

// Snapshot is one parsed view of the backing file.
type Snapshot struct {
	Records  Collection
	Index    Index
	Repaired []Repair
}

// NewFileStore opens the store at path, creating the file (and its directory)
// with seed, or an empty array, when it does not exist yet.
func NewFileStore(path string, log *zap.SugaredLogger, seed ...shared.Record) (*FileStore, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create data dir %s", dir)
		}
	}
	s := &FileStore{path: path, seed: Collection(seed), Log: log, now: time.Now}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Path() string { return s.path }

// Load reads the backing file and returns the collection with its index.
func (s *FileStore) Load() (Collection, Index, error) {
	snap, err := s.Inspect()
	if err != nil {
		return nil, nil, err
	}
	return snap.Records, snap.Index, nil
}

// Inspect is Load plus the list of ids repaired while reading.
func (s *FileStore) Inspect() (*Snapshot, error) {
	snap, err := s.read()
	if errors.Is(err, fs.ErrNotExist) {
		s.mu.Lock()
		err = s.ensureLocked()
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		snap, err = s.read()
	}
	return snap, err
}

// Save replaces the backing file with col.
func (s *FileStore) Save(col Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(col)
}

func (s *FileStore) List() (Collection, error) {
	col, _, err := s.Load()
	return col, err
}

func (s *FileStore) Get(id int64) (shared.Record, error) {
	_, idx, err := s.Load()
	if err != nil {
		return nil, err
	}
	rec, ok := idx[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *FileStore) Create(body shared.Record) (shared.Record, error) {
	var created shared.Record
	err := s.mutate(func(col Collection, _ Index) (Collection, error) {
		created = newRecord(body, NextID(col), s.now())
		return append(col, created), nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *FileStore) Update(id int64, body shared.Record) (shared.Record, error) {
	var updated shared.Record
	err := s.mutate(func(col Collection, idx Index) (Collection, error) {
		if _, ok := idx[id]; !ok {
			return nil, ErrNotFound
		}
		updated = replacement(body, id)
		col[position(col, id)] = updated
		return col, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *FileStore) Delete(id int64) error {
	return s.mutate(func(col Collection, idx Index) (Collection, error) {
		if _, ok := idx[id]; !ok {
			return nil, ErrNotFound
		}
		i := position(col, id)
		return append(col[:i], col[i+1:]...), nil
	})
}

func (s *FileStore) Close() error { return nil }

// mutate runs one locked read-modify-write cycle. Nothing is written when fn fails.
func (s *FileStore) mutate(fn func(Collection, Index) (Collection, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(); err != nil {
		return err
	}
	snap, err := s.read()
	if err != nil {
		return err
	}
	col, err := fn(snap.Records, snap.Index)
	if err != nil {
		return err
	}
	return s.saveLocked(col)
}

func (s *FileStore) ensureLocked() error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "stat %s", s.path)
	}
	col := make(Collection, 0, len(s.seed))
	for _, rec := range s.seed {
		col = append(col, rec.Clone())
	}
	s.Log.Infof("store: creating %s with %d record(s)", s.path, len(col))
	return s.saveLocked(col)
}

func (s *FileStore) read() (*Snapshot, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "read %s", s.path)
	}
	col, err := decodeCollection(b)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", s.path)
	}
	repaired := repairIDs(col)
	for _, r := range repaired {
		s.Log.Warnf("store: entry %d has unusable id %v, using %d", r.Position, r.OldID, r.NewID)
	}
	return &Snapshot{Records: col, Index: BuildIndex(col), Repaired: repaired}, nil
}

func (s *FileStore) saveLocked(col Collection) (err error) {
	defer func() { s.Metrics.observeSave(err) }()

	if col == nil {
		col = Collection{}
	}
	b, err := json.MarshalIndent(col, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode collection")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}

	backup := s.path + ".backup"
	if _, statErr := os.Stat(s.path); statErr == nil {
		if err := copyFile(s.path, backup); err != nil {
			return errors.Wrap(err, "backup current file")
		}
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		s.restoreFromBackup(backup)
		return errors.Wrapf(err, "replace %s", s.path)
	}
	return nil
}

// restoreFromBackup puts the backup back when the live file no longer parses.
func (s *FileStore) restoreFromBackup(backup string) {
	if b, err := os.ReadFile(s.path); err == nil {
		if _, err := decodeCollection(b); err == nil {
			return
		}
	}
	if err := copyFile(backup, s.path); err != nil {
		s.Log.Errorf("store: unrecoverable: restore %s from %s failed: %v", s.path, backup, err)
		return
	}
	s.Log.Warnf("store: restored %s from %s", s.path, backup)
}

// decodeCollection parses a JSON array of objects, keeping numbers as json.Number.
func decodeCollection(b []byte) (Collection, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}
	if raw == nil {
		return nil, errors.Wrap(ErrCorrupt, "top-level value is not an array")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.Wrap(ErrCorrupt, "trailing data after array")
	}
	col := make(Collection, 0, len(raw))
	for i, v := range raw {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, errors.Wrapf(ErrCorrupt, "element %d is not an object", i)
		}
		col = append(col, shared.Record(obj))
	}
	return col, nil
}

// repairIDs normalizes every usable id to int64 and gives a fresh id to each
// entry whose id is missing, not a positive integer, or already taken by an
// earlier entry. Afterwards every entry is addressable and ids are unique.
func repairIDs(col Collection) []Repair {
	next := NextID(col)
	seen := make(map[int64]bool, len(col))
	var repaired []Repair
	for i, rec := range col {
		id, ok := rec.ID()
		if ok && !seen[id] {
			rec[shared.FieldID] = id
			seen[id] = true
			continue
		}
		repaired = append(repaired, Repair{Position: i, OldID: rec[shared.FieldID], NewID: next})
		rec[shared.FieldID] = next
		seen[next] = true
		next++
	}
	return repaired
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
