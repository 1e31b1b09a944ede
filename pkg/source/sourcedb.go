package source

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/co2-ledger/pkg/dataset"
	_ "modernc.org/sqlite"
)

// Source is a row from the dataset_sources table.
type Source struct {
	Dataset     dataset.Name `json:"dataset"`
	File        string       `json:"file"`
	Description string       `json:"description"`
	SourceURL   string       `json:"source_url,omitempty"`
	LastLoad    *int64       `json:"last_load,omitempty"`
	LoadStatus  *string      `json:"load_status,omitempty"`
	LoadRecords *int         `json:"load_records,omitempty"`
	LoadError   *string      `json:"load_error,omitempty"`
	LastCheck   *int64       `json:"last_check,omitempty"`
	CheckStatus *int         `json:"check_status,omitempty"`
	CheckError  *string      `json:"check_error,omitempty"`
	UpdatedAt   int64        `json:"updated_at"`
}

// Location returns the override URL if set, else the default file name.
func (s Source) Location() string {
	if s.SourceURL != "" {
		return s.SourceURL
	}
	return s.File
}

// SourceDB manages the dataset_sources SQLite table: per-dataset location
// overrides plus the last load and availability results.
type SourceDB struct {
	db *sql.DB
}

// OpenSourceDB opens (or creates) the SQLite database at path and ensures the
// dataset_sources table exists.
func OpenSourceDB(path string) (*SourceDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS dataset_sources (
		dataset      TEXT PRIMARY KEY,
		file         TEXT NOT NULL,
		description  TEXT NOT NULL,
		source_url   TEXT NOT NULL DEFAULT '',
		last_load    INTEGER,
		load_status  TEXT,
		load_records INTEGER,
		load_error   TEXT,
		last_check   INTEGER,
		check_status INTEGER,
		check_error  TEXT,
		updated_at   INTEGER NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create dataset_sources table: %w", err)
	}

	return &SourceDB{db: db}, nil
}

// Close closes the SQLite connection.
func (s *SourceDB) Close() error {
	return s.db.Close()
}

// Seed inserts a row per dataset (INSERT OR IGNORE, so manual URL overrides
// survive restarts).
func (s *SourceDB) Seed(specs []dataset.Spec) error {
	const q = `INSERT OR IGNORE INTO dataset_sources
		(dataset, file, description, updated_at)
		VALUES (?, ?, ?, ?)`

	now := time.Now().Unix()
	for _, spec := range specs {
		if _, err := s.db.Exec(q, string(spec.Name), spec.File, spec.Description, now); err != nil {
			return fmt.Errorf("seed %s: %w", spec.Name, err)
		}
	}
	return nil
}

// GetURL returns the override URL for a dataset ("" when none is set).
func (s *SourceDB) GetURL(name dataset.Name) (string, error) {
	var url string
	err := s.db.QueryRow(`SELECT source_url FROM dataset_sources WHERE dataset = ?`, string(name)).Scan(&url)
	if err != nil {
		return "", fmt.Errorf("get url for %s: %w", name, err)
	}
	return url, nil
}

// SetURL points a dataset at a different location. An empty url restores the
// default file.
func (s *SourceDB) SetURL(name dataset.Name, url string) error {
	res, err := s.db.Exec(
		`UPDATE dataset_sources SET source_url = ?, updated_at = ? WHERE dataset = ?`,
		url, time.Now().Unix(), string(name),
	)
	if err != nil {
		return fmt.Errorf("set url for %s: %w", name, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("dataset %s not found in dataset_sources", name)
	}
	return nil
}

// Overrides returns a lookup usable by Loader. Lookup errors fall back to the
// default file.
func (s *SourceDB) Overrides() Overrides {
	return func(name dataset.Name) string {
		url, err := s.GetURL(name)
		if err != nil {
			return ""
		}
		return url
	}
}

// RecordLoad persists the outcome of each dataset's last load.
func (s *SourceDB) RecordLoad(outcomes []dataset.Outcome, at time.Time) error {
	const q = `UPDATE dataset_sources
		SET last_load = ?, load_status = ?, load_records = ?, load_error = ?
		WHERE dataset = ?`

	var errs []error
	for _, o := range outcomes {
		var errPtr *string
		if o.Error != "" {
			e := o.Error
			errPtr = &e
		}
		if _, err := s.db.Exec(q, at.Unix(), string(o.Status), o.Records, errPtr, string(o.Dataset)); err != nil {
			errs = append(errs, fmt.Errorf("record load for %s: %w", o.Dataset, err))
		}
	}
	return errors.Join(errs...)
}

// UpdateCheck persists the result of an availability check.
func (s *SourceDB) UpdateCheck(name dataset.Name, status int, checkErr string) error {
	now := time.Now().Unix()
	var errPtr *string
	if checkErr != "" {
		errPtr = &checkErr
	}
	_, err := s.db.Exec(
		`UPDATE dataset_sources SET last_check = ?, check_status = ?, check_error = ? WHERE dataset = ?`,
		now, status, errPtr, string(name),
	)
	if err != nil {
		return fmt.Errorf("update check for %s: %w", name, err)
	}
	return nil
}

// ListSources returns all rows ordered by dataset name.
func (s *SourceDB) ListSources() ([]Source, error) {
	rows, err := s.db.Query(`SELECT dataset, file, description, source_url,
		last_load, load_status, load_records, load_error,
		last_check, check_status, check_error, updated_at
		FROM dataset_sources ORDER BY dataset`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		var name string
		if err := rows.Scan(&name, &src.File, &src.Description, &src.SourceURL,
			&src.LastLoad, &src.LoadStatus, &src.LoadRecords, &src.LoadError,
			&src.LastCheck, &src.CheckStatus, &src.CheckError, &src.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.Dataset = dataset.Name(name)
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
