package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"vesselpdp/internal/model"
	"vesselpdp/internal/opt"
)

const schemaVersion = 1

var schema = []string{
	`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`,
	`CREATE TABLE IF NOT EXISTS instances (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		nodes      INTEGER NOT NULL,
		vehicles   INTEGER NOT NULL,
		calls      INTEGER NOT NULL,
		checksum   TEXT NOT NULL,
		source     TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS evaluations (
		id              TEXT PRIMARY KEY,
		instance_id     TEXT NOT NULL REFERENCES instances(id),
		solution        TEXT NOT NULL,
		feasible        BOOLEAN NOT NULL,
		reason          TEXT NOT NULL,
		penalty         DOUBLE PRECISION NOT NULL,
		cost            DOUBLE PRECISION NOT NULL,
		violations      TEXT NOT NULL,
		vehicle_costs   TEXT NOT NULL,
		outsourced_cost DOUBLE PRECISION NOT NULL,
		strategy        TEXT NOT NULL,
		created_at      BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS evaluations_instance_idx ON evaluations (instance_id, id)`,
}

// sqlStore holds the queries shared by Postgres and SQLite. Queries are
// written with $N placeholders and rewritten by rebind for drivers that
// only take '?'.
type sqlStore struct {
	db     *sql.DB
	rebind func(string) string
}

var dollarArg = regexp.MustCompile(`\$\d+`)

func questionMarks(q string) string { return dollarArg.ReplaceAllString(q, "?") }

func (s *sqlStore) q(query string) string {
	if s.rebind == nil {
		return query
	}
	return s.rebind(query)
}

func (s *sqlStore) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	var version int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO schema_version (version) VALUES ($1)`), schemaVersion)
	}
	if err != nil {
		return fmt.Errorf("schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("schema version %d is newer than supported %d", version, schemaVersion)
	}
	return nil
}

func (s *sqlStore) SaveInstance(ctx context.Context, in model.Instance) (model.Instance, error) {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO instances (id, name, nodes, vehicles, calls, checksum, source, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET name=excluded.name, nodes=excluded.nodes, vehicles=excluded.vehicles,
			calls=excluded.calls, checksum=excluded.checksum, source=excluded.source`),
		in.ID, in.Name, in.Nodes, in.Vehicles, in.Calls, in.Checksum, in.Source, in.CreatedAt.UnixNano())
	if err != nil {
		return model.Instance{}, fmt.Errorf("save instance: %w", err)
	}
	return in, nil
}

const instanceCols = `id, name, nodes, vehicles, calls, checksum, source, created_at`

func scanInstance(row interface{ Scan(...any) error }) (model.Instance, error) {
	var in model.Instance
	var created int64
	if err := row.Scan(&in.ID, &in.Name, &in.Nodes, &in.Vehicles, &in.Calls, &in.Checksum, &in.Source, &created); err != nil {
		return model.Instance{}, err
	}
	in.CreatedAt = time.Unix(0, created).UTC()
	return in, nil
}

func (s *sqlStore) GetInstance(ctx context.Context, id string) (model.Instance, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+instanceCols+` FROM instances WHERE id=$1`), id)
	in, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Instance{}, ErrNotFound
	}
	if err != nil {
		return model.Instance{}, fmt.Errorf("get instance: %w", err)
	}
	return in, nil
}

func (s *sqlStore) ListInstances(ctx context.Context, cursor string, limit int) ([]model.Instance, string, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+instanceCols+` FROM instances WHERE id > $1 ORDER BY id LIMIT $2`), cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()
	out := []model.Instance{}
	for rows.Next() {
		in, err := scanInstance(rows)
		if err != nil {
			return nil, "", fmt.Errorf("list instances: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("list instances: %w", err)
	}
	var next string
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (s *sqlStore) DeleteInstance(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM evaluations WHERE instance_id=$1`), id); err != nil {
		return fmt.Errorf("delete evaluations: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM instances WHERE id=$1`), id)
	if err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *sqlStore) SaveEvaluation(ctx context.Context, ev model.Evaluation) (model.Evaluation, error) {
	if _, err := s.GetInstance(ctx, ev.InstanceID); err != nil {
		return model.Evaluation{}, err
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	sol, err := json.Marshal(ev.Solution)
	if err != nil {
		return model.Evaluation{}, err
	}
	viol, err := json.Marshal(ev.Violations)
	if err != nil {
		return model.Evaluation{}, err
	}
	vc, err := json.Marshal(ev.VehicleCosts)
	if err != nil {
		return model.Evaluation{}, err
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO evaluations
		(id, instance_id, solution, feasible, reason, penalty, cost, violations, vehicle_costs, outsourced_cost, strategy, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`),
		ev.ID, ev.InstanceID, string(sol), ev.Feasible, ev.Reason, ev.Penalty, ev.Cost,
		string(viol), string(vc), ev.OutsourcedCost, ev.Strategy, ev.CreatedAt.UnixNano())
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("save evaluation: %w", err)
	}
	return ev, nil
}

const evaluationCols = `id, instance_id, solution, feasible, reason, penalty, cost, violations, vehicle_costs, outsourced_cost, strategy, created_at`

func scanEvaluation(row interface{ Scan(...any) error }) (model.Evaluation, error) {
	var ev model.Evaluation
	var sol, viol, vc string
	var created int64
	if err := row.Scan(&ev.ID, &ev.InstanceID, &sol, &ev.Feasible, &ev.Reason, &ev.Penalty, &ev.Cost,
		&viol, &vc, &ev.OutsourcedCost, &ev.Strategy, &created); err != nil {
		return model.Evaluation{}, err
	}
	if err := json.Unmarshal([]byte(sol), &ev.Solution); err != nil {
		return model.Evaluation{}, fmt.Errorf("decode solution: %w", err)
	}
	var vs []opt.Violation
	if err := json.Unmarshal([]byte(viol), &vs); err != nil {
		return model.Evaluation{}, fmt.Errorf("decode violations: %w", err)
	}
	ev.Violations = vs
	if err := json.Unmarshal([]byte(vc), &ev.VehicleCosts); err != nil {
		return model.Evaluation{}, fmt.Errorf("decode vehicle costs: %w", err)
	}
	ev.CreatedAt = time.Unix(0, created).UTC()
	return ev, nil
}

func (s *sqlStore) GetEvaluation(ctx context.Context, id string) (model.Evaluation, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+evaluationCols+` FROM evaluations WHERE id=$1`), id)
	ev, err := scanEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Evaluation{}, ErrNotFound
	}
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("get evaluation: %w", err)
	}
	return ev, nil
}

func (s *sqlStore) ListEvaluations(ctx context.Context, instanceID, cursor string, limit int) ([]model.Evaluation, string, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+evaluationCols+` FROM evaluations
		WHERE instance_id=$1 AND id > $2 ORDER BY id LIMIT $3`), instanceID, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()
	out := []model.Evaluation{}
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, "", fmt.Errorf("list evaluations: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("list evaluations: %w", err)
	}
	var next string
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (s *sqlStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
