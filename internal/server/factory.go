package server

import (
	"os"
	"path/filepath"
	"time"

	"momoapi/internal/shared"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// OpenRepository selects the Repository implementation named by cfg.StoreDriver.
//
//	json:   cfg.DataFile, a JSON array rewritten atomically on every write
//	sqlite: cfg.DBPath, seeded from cfg.DataFile the first time the table is empty
//	memory: process memory only
func OpenRepository(cfg *shared.ServerConfig, log *zap.SugaredLogger, m *Metrics) (Repository, error) {
	var seed []shared.Record
	if cfg.SeedSample {
		seed = append(seed, SampleRecord(time.Now()))
	}

	switch cfg.StoreDriver {
	case shared.DriverJSON:
		fs, err := NewFileStore(cfg.DataFile, log, seed...)
		if err != nil {
			return nil, err
		}
		fs.Metrics = m
		return fs, nil
	case shared.DriverSQLite:
		return openSQLite(cfg, log, seed)
	case shared.DriverMemory:
		return NewMemoryStore(seed...), nil
	default:
		return nil, errors.Errorf("unknown store driver %s", cfg.StoreDriver)
	}
}

func openSQLite(cfg *shared.ServerConfig, log *zap.SugaredLogger, seed []shared.Record) (*SQLiteStore, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.Wrapf(err, "create db dir %s", dir)
		}
	}
	db, err := OpenDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	store := NewSQLiteStore(db)

	col := Collection(seed)
	if _, err := os.Stat(cfg.DataFile); err == nil {
		fs, err := NewFileStore(cfg.DataFile, log)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if col, _, err = fs.Load(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	n, err := store.Import(col)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if n > 0 {
		log.Infof("store: imported %d record(s) into %s", n, cfg.DBPath)
	}
	return store, nil
}
