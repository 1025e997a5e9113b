package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"momoapi/internal/shared"

	"github.com/pkg/errors"
)

// SQLiteStore keeps each record as a JSON body keyed by id. seq preserves
// insertion order for List.
type SQLiteStore struct {
	mu  sync.Mutex
	DB  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{DB: db, now: time.Now}
}

func (s *SQLiteStore) List() (Collection, error) {
	rows, err := s.DB.Query(`SELECT id, body FROM records ORDER BY seq`)
	if err != nil {
		return nil, errors.Wrap(err, "list records")
	}
	defer rows.Close()

	col := Collection{}
	for rows.Next() {
		var id int64
		var body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		rec, err := decodeBody(id, body)
		if err != nil {
			return nil, err
		}
		col = append(col, rec)
	}
	return col, rows.Err()
}

func (s *SQLiteStore) Get(id int64) (shared.Record, error) {
	var body string
	err := s.DB.QueryRow(`SELECT body FROM records WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get record %d", id)
	}
	return decodeBody(id, body)
}

func (s *SQLiteStore) Create(body shared.Record) (shared.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var id, seq int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(id), 0) + 1, COALESCE(MAX(seq), 0) + 1 FROM records`).Scan(&id, &seq); err != nil {
		return nil, errors.Wrap(err, "next id")
	}
	rec := newRecord(body, id, s.now())
	if err := insertRecord(tx, rec, id, seq, s.now()); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit create")
	}
	return rec, nil
}

func (s *SQLiteStore) Update(id int64, body shared.Record) (shared.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := replacement(body, id)
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "encode record")
	}
	res, err := s.DB.Exec(`UPDATE records SET body = ?, updated_at = ? WHERE id = ?`, string(b), s.now().Unix(), id)
	if err != nil {
		return nil, errors.Wrapf(err, "update record %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *SQLiteStore) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.DB.Exec(`DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "delete record %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Count() (int, error) {
	var n int
	err := s.DB.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

// Import copies col into an empty table, keeping its order and ids.
// It returns the number of rows written; a non-empty table is left alone.
func (s *SQLiteStore) Import(col Collection) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.DB.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	now := s.now()
	for i, rec := range col {
		id, ok := rec.ID()
		if !ok {
			return 0, errors.Errorf("import: entry %d has no usable id", i)
		}
		if err := insertRecord(tx, rec, id, int64(i+1), now); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit import")
	}
	return len(col), nil
}

func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}

func insertRecord(tx *sql.Tx, rec shared.Record, id, seq int64, now time.Time) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}
	_, err = tx.Exec(
		`INSERT INTO records (id, seq, body, updated_at) VALUES (?, ?, ?, ?)`,
		id, seq, string(b), now.Unix(),
	)
	return errors.Wrapf(err, "insert record %d", id)
}

func decodeBody(id int64, body string) (shared.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	var rec shared.Record
	if err := dec.Decode(&rec); err != nil || rec == nil {
		return nil, errors.Wrapf(ErrCorrupt, "record %d body", id)
	}
	rec[shared.FieldID] = id
	return rec, nil
}
