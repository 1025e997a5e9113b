package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"momoapi/internal/server"
	"momoapi/internal/shared"
)

func main() {
	configPath := flag.String("config", "", "optional TOML config file")
	flag.Parse()

	cfg, err := shared.LoadServerConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	switch cfg.StoreDriver {
	case shared.DriverSQLite:
		err = checkSQLite(os.Stdout, cfg.DBPath)
	default:
		err = checkFile(os.Stdout, cfg.DataFile)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// checkFile only reads; a missing file is reported, never created.
func checkFile(w io.Writer, path string) error {
	fmt.Fprintln(w, "File:", path)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(w, "Missing: the server creates it on first start")
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	fs, err := server.NewFileStore(path, nil)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	snap, err := fs.Inspect()
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	fmt.Fprintln(w, "Records:", len(snap.Records))
	printRange(w, snap.Records)
	if len(snap.Repaired) == 0 {
		fmt.Fprintln(w, "Ids: ok")
		return nil
	}
	fmt.Fprintf(w, "Ids repaired on load (%d), persisted by the next write:\n", len(snap.Repaired))
	for _, r := range snap.Repaired {
		fmt.Fprintf(w, " - entry %d: %v -> %d\n", r.Position, r.OldID, r.NewID)
	}
	return nil
}

func checkSQLite(w io.Writer, path string) error {
	db, err := server.OpenDB(path)
	if err != nil {
		return fmt.Errorf("OpenDB failed: %w", err)
	}
	store := server.NewSQLiteStore(db)
	defer store.Close()

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' ORDER BY name;`)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	fmt.Fprintln(w, "Tables:")
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan failed: %w", err)
		}
		fmt.Fprintln(w, " -", name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("rows failed: %w", err)
	}
	rows.Close()

	records, err := store.List()
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}
	fmt.Fprintln(w, "Records:", len(records))
	printRange(w, records)
	return nil
}

func printRange(w io.Writer, col server.Collection) {
	if len(col) == 0 {
		return
	}
	lo, hi := int64(0), int64(0)
	for _, rec := range col {
		id, ok := rec.ID()
		if !ok {
			continue
		}
		if lo == 0 || id < lo {
			lo = id
		}
		if id > hi {
			hi = id
		}
	}
	fmt.Fprintf(w, "Id range: %d..%d (next %d)\n", lo, hi, server.NextID(col))
}
