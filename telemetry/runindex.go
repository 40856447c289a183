package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoEvaluations is returned by BestEvaluation for a run with no rows.
var ErrNoEvaluations = errors.New("no evaluations recorded")

// Run kinds.
const (
	RunKindSim  = "sim"
	RunKindTune = "tune"
)

// RunInfo describes a run when it starts.
type RunInfo struct {
	Kind      string
	Variant   string
	Seed      int64
	Agents    int
	OutputDir string
	Config    string // effective config as YAML
}

// RunResult is recorded when a run ends.
type RunResult struct {
	Ticks        int32
	Polarization float64
	GroupRadius  float64
}

// Evaluation is one tuner candidate and its fitness (lower is better).
type Evaluation struct {
	Index   int
	Params  map[string]float64
	Fitness float64
}

// RunIndex is a SQLite index of simulation runs and tuner evaluations.
type RunIndex struct {
	db *sql.DB
}

// OpenRunIndex opens or creates the index at path.
func OpenRunIndex(path string) (*RunIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty run index path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating run index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening run index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run index pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run index schema: %w", err)
	}
	return &RunIndex{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			variant TEXT NOT NULL,
			seed INTEGER NOT NULL,
			agents INTEGER NOT NULL,
			output_dir TEXT NOT NULL,
			config TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			ticks INTEGER,
			polarization REAL,
			group_radius REAL
		);`,
		`CREATE TABLE IF NOT EXISTS evaluations (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			idx INTEGER NOT NULL,
			params TEXT NOT NULL,
			fitness REAL NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (run_id, idx)
		);`,
		`CREATE INDEX IF NOT EXISTS evaluations_fitness ON evaluations(run_id, fitness);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

// BeginRun inserts a run row and returns its id.
func (ri *RunIndex) BeginRun(ctx context.Context, info RunInfo) (int64, error) {
	res, err := ri.db.ExecContext(ctx,
		`INSERT INTO runs(kind,variant,seed,agents,output_dir,config,started_at) VALUES(?,?,?,?,?,?,?)`,
		info.Kind, info.Variant, info.Seed, info.Agents, info.OutputDir, info.Config, now())
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run's final measurements.
func (ri *RunIndex) FinishRun(ctx context.Context, id int64, r RunResult) error {
	res, err := ri.db.ExecContext(ctx,
		`UPDATE runs SET finished_at=?, ticks=?, polarization=?, group_radius=? WHERE id=?`,
		now(), r.Ticks, r.Polarization, r.GroupRadius, id)
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing run %d: no such run", id)
	}
	return nil
}

// RecordEvaluation stores one tuner candidate under runID.
func (ri *RunIndex) RecordEvaluation(ctx context.Context, runID int64, e Evaluation) error {
	params, err := json.Marshal(e.Params)
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	_, err = ri.db.ExecContext(ctx,
		`INSERT INTO evaluations(run_id,idx,params,fitness,recorded_at) VALUES(?,?,?,?,?)`,
		runID, e.Index, string(params), e.Fitness, now())
	if err != nil {
		return fmt.Errorf("inserting evaluation %d: %w", e.Index, err)
	}
	return nil
}

// BestEvaluation returns the lowest-fitness evaluation of runID.
func (ri *RunIndex) BestEvaluation(ctx context.Context, runID int64) (Evaluation, error) {
	var (
		e      Evaluation
		params string
	)
	row := ri.db.QueryRowContext(ctx,
		`SELECT idx,params,fitness FROM evaluations WHERE run_id=? ORDER BY fitness ASC, idx ASC LIMIT 1`, runID)
	if err := row.Scan(&e.Index, &params, &e.Fitness); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, fmt.Errorf("run %d: %w", runID, ErrNoEvaluations)
		}
		return e, fmt.Errorf("querying best evaluation: %w", err)
	}
	if err := json.Unmarshal([]byte(params), &e.Params); err != nil {
		return e, fmt.Errorf("decoding params: %w", err)
	}
	return e, nil
}

// Close closes the database.
func (ri *RunIndex) Close() error {
	if ri == nil {
		return nil
	}
	return ri.db.Close()
}
