// package runstore persists solver runs in SQLite so results can be listed
// and replayed later.

package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/domino14/econsim/pkg/belief"
	"github.com/domino14/econsim/pkg/exchange"
)

var ErrRunNotFound = errors.New("run not found")

// Kind names the routine that produced a run.
type Kind string

const (
	KindEquilibrium Kind = "equilibrium"
	KindConverge    Kind = "converge"
	KindSimulate    Kind = "simulate"
)

// StatusSampled marks simulation runs, which have no convergence criterion.
const StatusSampled = "sampled"

type Run struct {
	ID          string
	Kind        Kind
	Status      string
	Iterations  int
	Params      map[string]float64
	DateCreated string
	// Equilibrium is only set for KindEquilibrium runs.
	Equilibrium *Equilibrium
}

type Equilibrium struct {
	P1 float64
	E1 float64
	E2 float64
	A  exchange.Allocation
	B  exchange.Allocation
}

// Point is one entry of a run's recorded path. Signal is zero when the run
// did not draw shocks.
type Point struct {
	Step   int
	Value  float64
	Signal belief.Signal
}

type SqliteStore struct {
	db *sql.DB
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// NewSqliteStore opens dbName with write transactions taking the lock up
// front, so concurrent saves queue on the busy timeout instead of failing.
func NewSqliteStore(dbName string) (*SqliteStore, error) {
	dsn := dbName
	if !strings.Contains(dsn, "?") {
		dsn += "?_txlock=immediate&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) dbid(ctx context.Context, runUUID string) (int64, error) {
	var dbid int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs WHERE uuid = ?`, runUUID).Scan(&dbid)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", runUUID, ErrRunNotFound)
	}
	if err != nil {
		return 0, err
	}
	return dbid, nil
}

func encodeParams(params map[string]float64) (string, error) {
	fields := make(map[string]any, len(params))
	for k, v := range params {
		fields[k] = v
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return "", err
	}
	bts, err := protojson.Marshal(st)
	if err != nil {
		return "", err
	}
	return string(bts), nil
}

func decodeParams(raw string) (map[string]float64, error) {
	st := &structpb.Struct{}
	if err := protojson.Unmarshal([]byte(raw), st); err != nil {
		return nil, err
	}
	params := map[string]float64{}
	for k, v := range st.GetFields() {
		params[k] = v.GetNumberValue()
	}
	return params, nil
}

func exchangeParams(p exchange.Params, opts exchange.Options, initialP1 float64) map[string]float64 {
	return map[string]float64{
		"alpha":     p.Alpha,
		"beta":      p.Beta,
		"w1A":       p.W1A,
		"w2A":       p.W2A,
		"initialP1": initialP1,
		"kappa":     opts.Kappa,
		"tolerance": opts.Tolerance,
		"maxIter":   float64(opts.MaxIter),
	}
}

func beliefParams(p belief.Params) map[string]float64 {
	return map[string]float64{
		"pi_L":  p.PiL,
		"pi_H":  p.PiH,
		"lam_1": p.Lam1,
		"lam_2": p.Lam2,
		"q_ini": p.QIni,
	}
}

// insertRun writes the runs row and its points inside tx, returning the new
// row id and uuid.
func insertRun(ctx context.Context, tx *sql.Tx, kind Kind, status string, iterations int,
	params map[string]float64, points []Point) (int64, string, error) {

	encoded, err := encodeParams(params)
	if err != nil {
		return 0, "", err
	}
	runUUID := shortuuid.New()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (uuid, kind, status, iterations, params, date_created)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runUUID, string(kind), status, iterations, encoded, now())
	if err != nil {
		return 0, "", err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, "", err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_points (run_id, step, value, signal) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, "", err
	}
	defer stmt.Close()
	for _, pt := range points {
		var signal any
		if pt.Signal != 0 {
			signal = int(pt.Signal)
		}
		if _, err := stmt.ExecContext(ctx, runID, pt.Step, pt.Value, signal); err != nil {
			return 0, "", err
		}
	}
	return runID, runUUID, nil
}

// SaveEquilibrium stores a tâtonnement run. pricePath, if given, is the
// sequence of prices the solver visited.
func (s *SqliteStore) SaveEquilibrium(ctx context.Context, params exchange.Params, opts exchange.Options,
	initialP1 float64, result exchange.Result, pricePath []float64) (string, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	points := make([]Point, len(pricePath))
	for i, p := range pricePath {
		points[i] = Point{Step: i, Value: p}
	}
	runID, runUUID, err := insertRun(ctx, tx, KindEquilibrium, result.Status.String(), result.Iterations,
		exchangeParams(params, opts, initialP1), points)
	if err != nil {
		return "", err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO equilibria (run_id, p1, e1, e2, x1a, x2a, x1b, x2b)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, result.P1, result.E1, result.E2, result.A.X1, result.A.X2, result.B.X1, result.B.X2)
	if err != nil {
		return "", err
	}
	log.Debug().Str("run", runUUID).Str("storeMethod", "SaveEquilibrium").Msg("saved-run")
	return runUUID, tx.Commit()
}

// SaveConvergence stores a belief trajectory, including the initial belief
// as step 0.
func (s *SqliteStore) SaveConvergence(ctx context.Context, params belief.Params, traj belief.Trajectory) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	points := make([]Point, len(traj.Values))
	for i, v := range traj.Values {
		points[i] = Point{Step: i, Value: v}
	}
	_, runUUID, err := insertRun(ctx, tx, KindConverge, traj.Status.String(), traj.Iterations,
		beliefParams(params), points)
	if err != nil {
		return "", err
	}
	log.Debug().Str("run", runUUID).Str("storeMethod", "SaveConvergence").Msg("saved-run")
	return runUUID, tx.Commit()
}

// SaveSimulation stores a simulated path. Steps are numbered from 1.
func (s *SqliteStore) SaveSimulation(ctx context.Context, params belief.Params, path belief.Path) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	points := make([]Point, len(path.Values))
	for i, v := range path.Values {
		points[i] = Point{Step: i + 1, Value: v, Signal: path.Signals[i]}
	}
	_, runUUID, err := insertRun(ctx, tx, KindSimulate, StatusSampled, len(path.Values),
		beliefParams(params), points)
	if err != nil {
		return "", err
	}
	log.Debug().Str("run", runUUID).Str("storeMethod", "SaveSimulation").Msg("saved-run")
	return runUUID, tx.Commit()
}

func (s *SqliteStore) GetRun(ctx context.Context, runUUID string) (*Run, error) {
	var dbid int64
	var rawParams string
	run := &Run{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, uuid, kind, status, iterations, params, date_created
		FROM runs WHERE uuid = ?`, runUUID).Scan(
		&dbid, &run.ID, &run.Kind, &run.Status, &run.Iterations, &rawParams, &run.DateCreated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runUUID, ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}
	if run.Params, err = decodeParams(rawParams); err != nil {
		return nil, err
	}

	if run.Kind == KindEquilibrium {
		eq := &Equilibrium{}
		err = s.db.QueryRowContext(ctx, `
			SELECT p1, e1, e2, x1a, x2a, x1b, x2b FROM equilibria WHERE run_id = ?`, dbid).Scan(
			&eq.P1, &eq.E1, &eq.E2, &eq.A.X1, &eq.A.X2, &eq.B.X1, &eq.B.X2)
		if err != nil {
			return nil, err
		}
		run.Equilibrium = eq
	}
	return run, nil
}

// ListRuns returns the most recent runs first. An empty kind lists every
// kind; a non-positive limit means no limit.
func (s *SqliteStore) ListRuns(ctx context.Context, kind Kind, limit int) ([]*Run, error) {
	wheres := []string{}
	wheresVars := []any{}
	if kind != "" {
		wheres = append(wheres, `kind = ?`)
		wheresVars = append(wheresVars, string(kind))
	}
	whereRendered := ""
	if len(wheres) > 0 {
		whereRendered = "WHERE " + strings.Join(wheres, " AND ")
	}
	limitRendered := ""
	if limit > 0 {
		limitRendered = fmt.Sprintf("LIMIT %d", limit)
	}
	fullQuery := fmt.Sprintf(`
		SELECT uuid, kind, status, iterations, params, date_created
		FROM runs
		%s
		ORDER BY id DESC
		%s`, whereRendered, limitRendered)
	log.Debug().Str("fullQuery", fullQuery).Str("storeMethod", "ListRuns").Msg("executing-query")

	rows, err := s.db.QueryContext(ctx, fullQuery, wheresVars...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs := []*Run{}
	for rows.Next() {
		run := &Run{}
		var rawParams string
		err = rows.Scan(&run.ID, &run.Kind, &run.Status, &run.Iterations, &rawParams, &run.DateCreated)
		if err != nil {
			return nil, err
		}
		if run.Params, err = decodeParams(rawParams); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SqliteStore) GetPoints(ctx context.Context, runUUID string) ([]Point, error) {
	dbid, err := s.dbid(ctx, runUUID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, value, signal FROM run_points
		WHERE run_id = ?
		ORDER BY step`, dbid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	points := []Point{}
	for rows.Next() {
		var pt Point
		var signal sql.NullInt64
		if err := rows.Scan(&pt.Step, &pt.Value, &signal); err != nil {
			return nil, err
		}
		if signal.Valid {
			pt.Signal = belief.Signal(signal.Int64)
		}
		points = append(points, pt)
	}
	return points, rows.Err()
}

func (s *SqliteStore) DeleteRun(ctx context.Context, runUUID string) error {
	dbid, err := s.dbid(ctx, runUUID)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	// foreign keys are off by default in sqlite, so children go first
	for _, q := range []string{
		`DELETE FROM run_points WHERE run_id = ?`,
		`DELETE FROM equilibria WHERE run_id = ?`,
		`DELETE FROM runs WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, dbid); err != nil {
			return err
		}
	}
	return tx.Commit()
}
