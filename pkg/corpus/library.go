package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"
)

// Info holds the metadata for a stored corpus.
type Info struct {
	Id         int
	Name       string
	Characters int
	Bytes      int
	ImportedAt time.Time
}

// Run describes one generation run, recorded for later statistics.
type Run struct {
	Source    string // Corpus name or file path the model was built from
	MaxOrder  int
	Contexts  int
	Generated int
	Fallbacks int
}

// LibraryStats holds aggregated statistics for the whole library.
type LibraryStats struct {
	Corpora         []Info // All stored corpora
	TotalCharacters int    // The sum of characters over all corpora
	Runs            int    // The number of recorded generation runs
	TotalGenerated  int    // The sum of generated characters over all runs
	TotalFallbacks  int    // The sum of random-character fallbacks over all runs
}

// SetupSchema initializes the tables used by a Library in the provided
// database. It is idempotent and safe to call on an already-initialized
// database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaCorpora = `
CREATE TABLE IF NOT EXISTS corpora (
    corpus_id INTEGER PRIMARY KEY,
    corpus_name TEXT NOT NULL UNIQUE,
    corpus_text TEXT NOT NULL,
    char_count INTEGER NOT NULL,
    byte_count INTEGER NOT NULL,
    imported_at INTEGER NOT NULL
);
`
		schemaRuns = `
CREATE TABLE IF NOT EXISTS generation_runs (
    run_id INTEGER PRIMARY KEY,
    source TEXT NOT NULL,
    max_order INTEGER NOT NULL,
    contexts INTEGER NOT NULL,
    generated INTEGER NOT NULL,
    fallbacks INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaCorpora); err != nil {
		return fmt.Errorf("could not create corpora schema: %w", err)
	}

	if _, err = tx.Exec(schemaRuns); err != nil {
		return fmt.Errorf("could not create runs schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Library stores normalized corpora and a history of generation runs in a
// SQLite database. Models themselves are never stored; they are rebuilt from
// a corpus on every run.
type Library struct {
	db            *sql.DB
	stmtUpsert    *sql.Stmt
	stmtGet       *sql.Stmt
	stmtList      *sql.Stmt
	stmtRecordRun *sql.Stmt
	stmtRunTotals *sql.Stmt
	logger        *slog.Logger
	now           func() time.Time
}

// NewLibrary creates and returns a new Library. It pre-compiles all
// necessary SQL statements, returning an error if any preparation fails.
// SetupSchema must have been called on db.
func NewLibrary(db *sql.DB) (*Library, error) {
	queries := []string{
		`INSERT INTO corpora (corpus_name, corpus_text, char_count, byte_count, imported_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(corpus_name) DO UPDATE SET corpus_text=excluded.corpus_text, char_count=excluded.char_count, byte_count=excluded.byte_count, imported_at=excluded.imported_at
RETURNING corpus_id;`,
		`SELECT corpus_id, corpus_text, char_count, byte_count, imported_at FROM corpora WHERE corpus_name = ?;`,
		`SELECT corpus_id, corpus_name, char_count, byte_count, imported_at FROM corpora ORDER BY corpus_name;`,
		`INSERT INTO generation_runs (source, max_order, contexts, generated, fallbacks, created_at) VALUES (?, ?, ?, ?, ?, ?);`,
		`SELECT COUNT(*), coalesce(SUM(generated), 0), coalesce(SUM(fallbacks), 0) FROM generation_runs;`,
	}

	stmts := make([]*sql.Stmt, 0, len(queries))
	for _, query := range queries {
		stmt, err := db.Prepare(query)
		if err != nil {
			for _, prepared := range stmts {
				_ = prepared.Close()
			}
			return nil, fmt.Errorf("could not prepare statement: %w", err)
		}
		stmts = append(stmts, stmt)
	}

	return &Library{
		db:            db,
		stmtUpsert:    stmts[0],
		stmtGet:       stmts[1],
		stmtList:      stmts[2],
		stmtRecordRun: stmts[3],
		stmtRunTotals: stmts[4],
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:           time.Now,
	}, nil
}

// Close releases all prepared SQL statements held by the Library.
func (l *Library) Close() {
	_ = l.stmtUpsert.Close()
	_ = l.stmtGet.Close()
	_ = l.stmtList.Close()
	_ = l.stmtRecordRun.Close()
	_ = l.stmtRunTotals.Close()
}

// SetLogger sets the logger for the Library. By default, all logs are discarded.
func (l *Library) SetLogger(logger *slog.Logger) {
	if logger != nil {
		l.logger = logger
	}
}

// Import normalizes the text read from r and stores it under name, replacing
// any corpus already stored under that name. A nil Normalizer uses the
// default settings.
func (l *Library) Import(ctx context.Context, name string, r io.Reader, n *Normalizer) (Info, error) {
	if name == "" {
		return Info{}, errors.New("corpus name is required")
	}
	if n == nil {
		n = NewNormalizer()
	}

	text, err := n.Normalize(r)
	if err != nil {
		return Info{}, fmt.Errorf("failed to normalize corpus '%s': %w", name, err)
	}

	info := Info{
		Name:       name,
		Characters: utf8.RuneCountInString(text),
		Bytes:      len(text),
		ImportedAt: l.now().UTC().Truncate(time.Second),
	}
	err = l.stmtUpsert.QueryRowContext(ctx, name, text, info.Characters, info.Bytes, info.ImportedAt.Unix()).Scan(&info.Id)
	if err != nil {
		return Info{}, fmt.Errorf("failed to store corpus '%s': %w", name, err)
	}

	l.logger.InfoContext(ctx, "Corpus imported",
		slog.String("corpus_name", name),
		slog.Int("corpus_id", info.Id),
		slog.Int("characters", info.Characters),
		slog.Int("bytes", info.Bytes),
	)

	return info, nil
}

// Get returns the text and metadata of the corpus stored under name. It
// returns sql.ErrNoRows if there is none.
func (l *Library) Get(ctx context.Context, name string) (string, Info, error) {
	var text string
	var importedAt int64
	info := Info{Name: name}
	err := l.stmtGet.QueryRowContext(ctx, name).Scan(&info.Id, &text, &info.Characters, &info.Bytes, &importedAt)
	if err != nil {
		return "", Info{}, err
	}
	info.ImportedAt = time.Unix(importedAt, 0).UTC()
	return text, info, nil
}

// List returns the metadata of all stored corpora, ordered by name.
func (l *Library) List(ctx context.Context) ([]Info, error) {
	rows, err := l.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	infos := make([]Info, 0)
	for rows.Next() {
		var info Info
		var importedAt int64
		if err = rows.Scan(&info.Id, &info.Name, &info.Characters, &info.Bytes, &importedAt); err != nil {
			return nil, err
		}
		info.ImportedAt = time.Unix(importedAt, 0).UTC()
		infos = append(infos, info)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

// Remove deletes the corpus stored under name and the runs recorded for it.
// The operation is performed within a transaction. It returns sql.ErrNoRows
// if there is no such corpus.
func (l *Library) Remove(ctx context.Context, name string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	res, err := tx.ExecContext(ctx, "DELETE FROM corpora WHERE corpus_name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to remove corpus '%s': %w", name, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}

	runs, err := tx.ExecContext(ctx, "DELETE FROM generation_runs WHERE source = ?", name)
	if err != nil {
		return fmt.Errorf("failed to remove runs for corpus '%s': %w", name, err)
	}
	runsRemoved, _ := runs.RowsAffected()

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit removal of corpus '%s': %w", name, err)
	}

	l.logger.InfoContext(ctx, "Corpus removed successfully",
		slog.String("corpus_name", name),
		slog.Int64("runs_removed", runsRemoved),
	)

	return nil
}

// RecordRun appends a generation run to the history.
func (l *Library) RecordRun(ctx context.Context, run Run) error {
	_, err := l.stmtRecordRun.ExecContext(ctx, run.Source, run.MaxOrder, run.Contexts, run.Generated, run.Fallbacks, l.now().Unix())
	if err != nil {
		return fmt.Errorf("could not record run for '%s': %w", run.Source, err)
	}
	return nil
}

// Stats returns a snapshot of statistics for the entire library.
func (l *Library) Stats(ctx context.Context) (*LibraryStats, error) {
	corpora, err := l.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &LibraryStats{Corpora: corpora}
	for _, info := range corpora {
		stats.TotalCharacters += info.Characters
	}

	err = l.stmtRunTotals.QueryRowContext(ctx).Scan(&stats.Runs, &stats.TotalGenerated, &stats.TotalFallbacks)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
