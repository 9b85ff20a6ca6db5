package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yourorg/restdoc/pkg/types"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return err
	}
	if _, err := s.db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		return err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			title TEXT NOT NULL,
			version TEXT NOT NULL,
			operation_count INTEGER NOT NULL DEFAULT 0,
			degraded_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error_msg TEXT NOT NULL DEFAULT '',
			enums TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS operations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			controller TEXT NOT NULL,
			base_uri TEXT NOT NULL,
			controller_doc TEXT NOT NULL,
			uri TEXT NOT NULL,
			method TEXT NOT NULL,
			name TEXT NOT NULL,
			doc TEXT NOT NULL,
			degraded INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_operations_run ON operations(run_id);`,
		`CREATE TABLE IF NOT EXISTS example_cache (
			cache_key TEXT PRIMARY KEY,
			generator TEXT NOT NULL,
			status TEXT NOT NULL,
			output TEXT NOT NULL,
			model TEXT NOT NULL,
			tokens_used INTEGER NOT NULL,
			error_msg TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) CreateRun(source, title, version string) (*types.Run, error) {
	now := time.Now().UTC()
	run := &types.Run{ID: uuid.NewString(), Source: source, Title: title, Version: version, Status: StatusRunning, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.Exec(`INSERT INTO runs(id,source,title,version,operation_count,degraded_count,status,error_msg,enums,created_at,updated_at) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Source, run.Title, run.Version, 0, 0, run.Status, "", "", run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return run, nil
}

const runColumns = `id,source,title,version,operation_count,degraded_count,status,error_msg,enums,created_at,updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (types.Run, error) {
	var r types.Run
	var enums string
	if err := row.Scan(&r.ID, &r.Source, &r.Title, &r.Version, &r.OperationCount, &r.DegradedCount, &r.Status, &r.ErrorMsg, &enums, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return r, err
	}
	if enums != "" {
		if err := json.Unmarshal([]byte(enums), &r.Enums); err != nil {
			return r, fmt.Errorf("decode enums of run %s: %w", r.ID, err)
		}
	}
	return r, nil
}

func (s *SQLiteStore) GetRun(id string) (*types.Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) UpdateRunStatus(id, status, errMsg string) error {
	res, err := s.db.Exec(`UPDATE runs SET status=?, error_msg=?, updated_at=? WHERE id=?`, status, errMsg, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// FinishRun stores the run's enumerations and settles its status: degraded
// when any saved operation is degraded, done otherwise.
func (s *SQLiteStore) FinishRun(id string, enums []types.EnumDoc) error {
	data, err := json.Marshal(enums)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE runs SET enums=?, status=CASE WHEN degraded_count>0 THEN ? ELSE ? END, updated_at=? WHERE id=?`,
		string(data), StatusDegraded, StatusDone, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) ListRuns() ([]types.Run, error) {
	rows, err := s.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteRun(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM operations WHERE run_id=?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM runs WHERE id=?`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) SaveOperations(runID string, ops []types.OperationRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(`INSERT INTO operations(run_id,seq,controller,base_uri,controller_doc,uri,method,name,doc,degraded,created_at) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	now := time.Now().UTC()
	degraded := 0
	for _, op := range ops {
		doc, err := json.Marshal(op.Doc)
		if err != nil {
			return fmt.Errorf("encode operation %s: %w", op.Name, err)
		}
		if op.Degraded {
			degraded++
		}
		if _, err := stmt.Exec(runID, op.Seq, op.Controller, op.BaseURI, op.CtrlDoc, op.URI, op.Method, op.Name, string(doc), op.Degraded, now); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`UPDATE runs SET operation_count=operation_count+?, degraded_count=degraded_count+?, updated_at=? WHERE id=?`, len(ops), degraded, now, runID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetOperations(runID string) ([]types.OperationRecord, error) {
	rows, err := s.db.Query(`SELECT id,run_id,seq,controller,base_uri,controller_doc,uri,method,name,doc,degraded,created_at FROM operations WHERE run_id=? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]types.OperationRecord, 0)
	for rows.Next() {
		var op types.OperationRecord
		var doc string
		if err := rows.Scan(&op.ID, &op.RunID, &op.Seq, &op.Controller, &op.BaseURI, &op.CtrlDoc, &op.URI, &op.Method, &op.Name, &doc, &op.Degraded, &op.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(doc), &op.Doc); err != nil {
			return nil, fmt.Errorf("decode operation %d: %w", op.ID, err)
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

// GetExampleCache returns nil without error when key is not cached.
func (s *SQLiteStore) GetExampleCache(key string) (*types.ExampleCache, error) {
	row := s.db.QueryRow(`SELECT cache_key,generator,status,output,model,tokens_used,error_msg,created_at FROM example_cache WHERE cache_key=?`, key)
	var c types.ExampleCache
	err := row.Scan(&c.Key, &c.Generator, &c.Status, &c.Output, &c.Model, &c.TokensUsed, &c.ErrorMsg, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStore) SaveExampleCache(cache *types.ExampleCache) error {
	if cache.CreatedAt.IsZero() {
		cache.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO example_cache(cache_key,generator,status,output,model,tokens_used,error_msg,created_at)
	VALUES(?,?,?,?,?,?,?,?)
	ON CONFLICT(cache_key) DO UPDATE SET generator=excluded.generator,status=excluded.status,output=excluded.output,model=excluded.model,tokens_used=excluded.tokens_used,error_msg=excluded.error_msg,created_at=excluded.created_at`,
		cache.Key, cache.Generator, cache.Status, cache.Output, cache.Model, cache.TokensUsed, cache.ErrorMsg, cache.CreatedAt)
	return err
}

func (s *SQLiteStore) ClearExampleCache() error {
	_, err := s.db.Exec(`DELETE FROM example_cache`)
	return err
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return errors.New("store is nil")
	}
	return s.db.Close()
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}
