package server

import (
	"sync"
	"time"

	"momoapi/internal/shared"

	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrCorrupt  = errors.New("backing store is corrupt")
)

// Collection is the ordered list of records as persisted.
type Collection []shared.Record

// Index maps id to record for one loaded Collection. It is never persisted.
type Index map[int64]shared.Record

// Repository is the CRUD surface the handlers use. Implementations own their
// locking; callers never coordinate writes themselves.
type Repository interface {
	List() (Collection, error)
	Get(id int64) (shared.Record, error)
	Create(rec shared.Record) (shared.Record, error)
	Update(id int64, rec shared.Record) (shared.Record, error)
	Delete(id int64) error
	Close() error
}

// NextID is 1 + the largest id in col, or 1 when col has none.
func NextID(col Collection) int64 {
	var top int64
	for _, rec := range col {
		if id, ok := rec.ID(); ok && id > top {
			top = id
		}
	}
	return top + 1
}

func BuildIndex(col Collection) Index {
	idx := make(Index, len(col))
	for _, rec := range col {
		if id, ok := rec.ID(); ok {
			idx[id] = rec
		}
	}
	return idx
}

// newRecord copies body, assigns id and fills a default timestamp.
func newRecord(body shared.Record, id int64, now time.Time) shared.Record {
	rec := body.Clone()
	rec[shared.FieldID] = id
	if v, ok := rec[shared.FieldTimestamp]; !ok || v == nil || v == "" {
		rec[shared.FieldTimestamp] = now.Format(shared.TimestampLayout)
	}
	return rec
}

// replacement copies body and pins it to id, whatever id the client sent.
func replacement(body shared.Record, id int64) shared.Record {
	rec := body.Clone()
	rec[shared.FieldID] = id
	return rec
}

func position(col Collection, id int64) int {
	for i, rec := range col {
		if rid, ok := rec.ID(); ok && rid == id {
			return i
		}
	}
	return -1
}

// SampleRecord is the record seeded into a fresh store when seeding is enabled.
func SampleRecord(now time.Time) shared.Record {
	return shared.Record{
		shared.FieldID:        int64(1),
		"sender":              "250788000100",
		"receiver":            "250788000200",
		"amount":              50.0,
		"status":              "completed",
		"message":             "You have transferred 50 RWF to 250788000200.",
		shared.FieldTimestamp: now.Format(shared.TimestampLayout),
	}
}

// MemoryStore keeps records in process memory only.
type MemoryStore struct {
	mu      sync.Mutex
	records Collection
	now     func() time.Time
}

func NewMemoryStore(seed ...shared.Record) *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for _, rec := range seed {
		s.records = append(s.records, rec.Clone())
	}
	return s
}

func (s *MemoryStore) List() (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Collection, len(s.records))
	for i, rec := range s.records {
		out[i] = rec.Clone()
	}
	return out, nil
}

func (s *MemoryStore) Get(id int64) (shared.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := BuildIndex(s.records)[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Create(body shared.Record) (shared.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := newRecord(body, NextID(s.records), s.now())
	s.records = append(s.records, rec)
	return rec.Clone(), nil
}

func (s *MemoryStore) Update(id int64, body shared.Record) (shared.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := position(s.records, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	s.records[i] = replacement(body, id)
	return s.records[i].Clone(), nil
}

func (s *MemoryStore) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := position(s.records, id)
	if i < 0 {
		return ErrNotFound
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
