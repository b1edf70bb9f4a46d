// Package runlog keeps a persistent history of automation runs so
// operators can answer "what did the service do last night" without
// digging through process logs.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"evtrack-backend/lib/runlog/db"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Config struct {
	// Driver selects "sqlite" (default, embedded) or "libsql".
	Driver string `json:"driver"`
	// Path is a file path for sqlite or a url for libsql.
	Path string `json:"path"`
}

// Open connects per config and ensures the schema exists.
func Open(ctx context.Context, config Config) (Store, error) {
	driver := config.Driver
	if driver == "" {
		driver = "sqlite"
	}
	if config.Path == "" {
		return Store{}, fmt.Errorf("runlog database path is empty")
	}

	database, err := sql.Open(driver, config.Path)
	if err != nil {
		return Store{}, err
	}
	// sqlite tolerates one writer; see
	// https://stackoverflow.com/questions/35804884
	database.SetMaxOpenConns(1)

	store := NewStore(database)
	if err := store.Init(ctx); err != nil {
		database.Close()
		return Store{}, err
	}
	return store, nil
}

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

func (s Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, db.Schema)
	return err
}

func (s Store) Close() error {
	return s.db.Close()
}

// Entry is one completed workflow invocation.
type Entry struct {
	Id         int64
	Workflow   string
	SearchTerm string
	Outcome    string
	Detail     string
	Duration   time.Duration
	StartedAt  time.Time
}

func (s Store) Record(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx, `
		insert into run (workflow, search_term, outcome, detail, duration_ms, started_at)
		values (?, ?, ?, ?, ?, ?)`,
		entry.Workflow,
		entry.SearchTerm,
		entry.Outcome,
		entry.Detail,
		entry.Duration.Milliseconds(),
		entry.StartedAt.Unix(),
	)
	return err
}

// Recent returns the newest entries, newest first.
func (s Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, workflow, search_term, outcome, detail, duration_ms, started_at
		from run
		order by started_at desc, id desc
		limit ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var durationMs, startedAt int64
		err := rows.Scan(
			&entry.Id,
			&entry.Workflow,
			&entry.SearchTerm,
			&entry.Outcome,
			&entry.Detail,
			&durationMs,
			&startedAt,
		)
		if err != nil {
			return nil, err
		}
		entry.Duration = time.Duration(durationMs) * time.Millisecond
		entry.StartedAt = time.Unix(startedAt, 0)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
