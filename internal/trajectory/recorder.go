// Package trajectory records per-step molecule counts of environments in
// SQLite and renders them as time-series charts.
package trajectory

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/daniacca/cellchem/internal/achem"
)

// ErrNoTrajectory indicates nothing was recorded for an environment
var ErrNoTrajectory = errors.New("no trajectory recorded")

// Point is one sample of a series.
type Point struct {
	Step  int64   `json:"step"`
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// Recorder stores step reports in a SQLite database. It implements
// achem.StepObserver.
type Recorder struct {
	db *sql.DB
	mu sync.Mutex
}

var _ achem.StepObserver = (*Recorder)(nil)

// Open opens or creates a trajectory database at path. ":memory:" gives a
// private in-memory database.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one connection, so ":memory:" is shared and writes are serialised
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS steps (
		environment TEXT NOT NULL,
		step INTEGER NOT NULL,
		time REAL NOT NULL,
		fired INTEGER NOT NULL,
		PRIMARY KEY (environment, step)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating steps table: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS counts (
		environment TEXT NOT NULL,
		step INTEGER NOT NULL,
		cell_id TEXT NOT NULL,
		cell_name TEXT NOT NULL,
		molecule TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (environment, step, cell_id, molecule)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating counts table: %w", err)
	}

	return &Recorder{db: db}, nil
}

// Close closes the database connection
func (r *Recorder) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ObserveStep records a step report. Re-recording a step replaces it.
func (r *Recorder) ObserveStep(envID achem.EnvironmentID, report achem.StepReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	fired := 0
	for _, c := range report.Cells {
		fired += c.Fired
	}
	_, err = tx.Exec(
		"INSERT OR REPLACE INTO steps (environment, step, time, fired) VALUES (?, ?, ?, ?)",
		string(envID), report.Step, report.Time, fired,
	)
	if err != nil {
		return fmt.Errorf("saving step: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM counts WHERE environment = ? AND step = ?", string(envID), report.Step); err != nil {
		return fmt.Errorf("clearing counts: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO counts (environment, step, cell_id, cell_name, molecule, count) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing counts insert: %w", err)
	}
	defer stmt.Close()
	for _, c := range report.Cells {
		for molecule, n := range c.Counts {
			if _, err := stmt.Exec(string(envID), report.Step, string(c.CellID), c.Name, molecule, n); err != nil {
				return fmt.Errorf("saving count: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Series returns molecule's count at every recorded step of envID, summed
// over all cells, or for the cell with the given name when cell is not
// empty. Steps where the molecule is absent read as 0.
func (r *Recorder) Series(envID achem.EnvironmentID, cell, molecule string) ([]Point, error) {
	query := `SELECT s.step, s.time, COALESCE(SUM(c.count), 0)
		FROM steps s
		LEFT JOIN counts c ON c.environment = s.environment AND c.step = s.step
			AND c.molecule = ? AND (? = '' OR c.cell_name = ?)
		WHERE s.environment = ?
		GROUP BY s.step, s.time
		ORDER BY s.step`
	rows, err := r.db.Query(query, molecule, cell, cell, string(envID))
	if err != nil {
		return nil, fmt.Errorf("querying series: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var p Point
		var v int64
		if err := rows.Scan(&p.Step, &p.Time, &v); err != nil {
			return nil, fmt.Errorf("scanning series: %w", err)
		}
		p.Value = float64(v)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTrajectory, envID)
	}
	return points, nil
}

// Molecules lists every molecule ever recorded for envID, sorted.
func (r *Recorder) Molecules(envID achem.EnvironmentID) ([]string, error) {
	rows, err := r.db.Query(
		"SELECT DISTINCT molecule FROM counts WHERE environment = ? ORDER BY molecule",
		string(envID),
	)
	if err != nil {
		return nil, fmt.Errorf("querying molecules: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// StepCount returns the number of steps recorded for envID.
func (r *Recorder) StepCount(envID achem.EnvironmentID) (int, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM steps WHERE environment = ?", string(envID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting steps: %w", err)
	}
	return n, nil
}
