package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/reentry-map/resource-verifier/internal/model"
)

// PgxPool is the subset of pgxpool.Pool used by the store. pgxmock
// implements it for tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool (tests use pgxmock here).
func NewPostgresFromPool(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS candidates (
	id         TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS resources (
	id           TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL DEFAULT '',
	org_name     TEXT NOT NULL DEFAULT '',
	is_parent    BOOLEAN NOT NULL DEFAULT false,
	status       TEXT NOT NULL DEFAULT 'active',
	data         JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS check_results (
	id           TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	name         TEXT NOT NULL,
	pass         BOOLEAN NOT NULL,
	confidence   DOUBLE PRECISION NOT NULL,
	data         JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS decisions (
	id           TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	confidence   DOUBLE PRECISION NOT NULL,
	reason       TEXT NOT NULL,
	data         JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_candidates_status ON candidates(status);
CREATE UNIQUE INDEX IF NOT EXISTS idx_resources_candidate ON resources(candidate_id) WHERE candidate_id != '';
CREATE INDEX IF NOT EXISTS idx_resources_status ON resources(status);
CREATE INDEX IF NOT EXISTS idx_resources_org ON resources(org_name) WHERE is_parent;
CREATE INDEX IF NOT EXISTS idx_check_results_candidate ON check_results(candidate_id);
CREATE INDEX IF NOT EXISTS idx_decisions_candidate ON decisions(candidate_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateCandidate(ctx context.Context, c *model.ResourceCandidate) error {
	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = model.CandidatePending
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	data, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal candidate")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO candidates (id, data, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, data, string(c.Status), now, now,
	)
	return eris.Wrap(err, "postgres: insert candidate")
}

func (s *PostgresStore) GetCandidate(ctx context.Context, id string) (*model.ResourceCandidate, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM candidates WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get candidate %s", id)
	}

	var c model.ResourceCandidate
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal candidate")
	}
	return &c, nil
}

func (s *PostgresStore) UpdateCandidate(ctx context.Context, c *model.ResourceCandidate) error {
	c.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal candidate")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE candidates SET data = $1, status = $2, updated_at = $3 WHERE id = $4`,
		data, string(c.Status), c.UpdatedAt, c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update candidate %s", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "candidate %s", c.ID)
	}
	return nil
}

func (s *PostgresStore) ListCandidates(ctx context.Context, filter CandidateFilter) ([]model.ResourceCandidate, error) {
	query := `SELECT data FROM candidates WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	query += ` ORDER BY created_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT ` + placeholder(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET ` + placeholder(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list candidates")
	}
	defer rows.Close()

	var out []model.ResourceCandidate
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		var c model.ResourceCandidate
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal candidate")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list candidates iterate")
}

func (s *PostgresStore) CreateResource(ctx context.Context, r *model.Resource) error {
	now := time.Now().UTC()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = model.ResourceActive
	}
	r.CreatedAt = now
	r.UpdatedAt = now

	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal resource")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO resources (id, candidate_id, org_name, is_parent, status, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.CandidateID, r.OrgName, r.IsParent, string(r.Status), data, now, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return eris.Wrap(err, "postgres: insert resource")
	}
	return nil
}

func (s *PostgresStore) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM resources WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get resource %s", id)
	}
	return unmarshalResource(string(data))
}

func (s *PostgresStore) UpdateResource(ctx context.Context, r *model.Resource) error {
	r.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal resource")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE resources SET data = $1, status = $2, org_name = $3, is_parent = $4, updated_at = $5 WHERE id = $6`,
		data, string(r.Status), r.OrgName, r.IsParent, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update resource %s", r.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "resource %s", r.ID)
	}
	return nil
}

func (s *PostgresStore) ListResources(ctx context.Context, filter ResourceFilter) ([]model.Resource, error) {
	query := `SELECT data FROM resources WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = ` + placeholder(len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += ` AND data->>'category' = ` + placeholder(len(args))
	}
	query += ` ORDER BY created_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	args = append(args, limit)
	query += ` LIMIT ` + placeholder(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET ` + placeholder(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list resources")
	}
	defer rows.Close()

	var out []model.Resource
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan resource")
		}
		r, err := unmarshalResource(string(data))
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list resources iterate")
}

func (s *PostgresStore) FindParentByOrgName(ctx context.Context, orgName string) (*model.Resource, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM resources WHERE org_name = $1 AND is_parent AND status = 'active' LIMIT 1`,
		orgName,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find parent %s", orgName)
	}
	return unmarshalResource(string(data))
}

func (s *PostgresStore) SaveCheckResults(ctx context.Context, candidateID string, checks []model.CheckResult) error {
	now := time.Now().UTC()
	for _, check := range checks {
		data, err := json.Marshal(check)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal check result")
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO check_results (id, candidate_id, name, pass, confidence, data, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New().String(), candidateID, string(check.Name), check.Pass, check.Confidence, data, now,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert check result %s", check.Name)
		}
	}
	return nil
}

func (s *PostgresStore) SaveDecision(ctx context.Context, candidateID string, d *model.Decision) error {
	data, err := json.Marshal(d)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal decision")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO decisions (id, candidate_id, outcome, confidence, reason, data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New().String(), candidateID, string(d.Outcome), d.Confidence, d.Reason, data, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: insert decision")
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
