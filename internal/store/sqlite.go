package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/reentry-map/resource-verifier/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS candidates (
	id         TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS resources (
	id           TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL DEFAULT '',
	org_name     TEXT NOT NULL DEFAULT '',
	is_parent    INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'active',
	data         TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS check_results (
	id           TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	name         TEXT NOT NULL,
	pass         INTEGER NOT NULL,
	confidence   REAL NOT NULL,
	data         TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS decisions (
	id           TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	confidence   REAL NOT NULL,
	reason       TEXT NOT NULL,
	data         TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_candidates_status ON candidates(status);
CREATE UNIQUE INDEX IF NOT EXISTS idx_resources_candidate ON resources(candidate_id) WHERE candidate_id != '';
CREATE INDEX IF NOT EXISTS idx_resources_status ON resources(status);
CREATE INDEX IF NOT EXISTS idx_resources_org ON resources(org_name) WHERE is_parent = 1;
CREATE INDEX IF NOT EXISTS idx_check_results_candidate ON check_results(candidate_id);
CREATE INDEX IF NOT EXISTS idx_decisions_candidate ON decisions(candidate_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCandidate(ctx context.Context, c *model.ResourceCandidate) error {
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
		return eris.Wrap(err, "sqlite: marshal candidate")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO candidates (id, data, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, string(data), string(c.Status), now, now,
	)
	return eris.Wrap(err, "sqlite: insert candidate")
}

func (s *SQLiteStore) GetCandidate(ctx context.Context, id string) (*model.ResourceCandidate, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM candidates WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get candidate %s", id)
	}

	var c model.ResourceCandidate
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal candidate")
	}
	return &c, nil
}

func (s *SQLiteStore) UpdateCandidate(ctx context.Context, c *model.ResourceCandidate) error {
	c.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal candidate")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET data = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(data), string(c.Status), c.UpdatedAt, c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update candidate %s", c.ID)
	}
	return checkRowsAffected(res, "candidate", c.ID)
}

func (s *SQLiteStore) ListCandidates(ctx context.Context, filter CandidateFilter) ([]model.ResourceCandidate, error) {
	query := `SELECT data FROM candidates WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list candidates")
	}
	defer rows.Close()

	var out []model.ResourceCandidate
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		var c model.ResourceCandidate
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal candidate")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list candidates iterate")
}

func (s *SQLiteStore) CreateResource(ctx context.Context, r *model.Resource) error {
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
		return eris.Wrap(err, "sqlite: marshal resource")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO resources (id, candidate_id, org_name, is_parent, status, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CandidateID, r.OrgName, boolToInt(r.IsParent), string(r.Status), string(data), now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrConflict
		}
		return eris.Wrap(err, "sqlite: insert resource")
	}
	return nil
}

func (s *SQLiteStore) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM resources WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get resource %s", id)
	}
	return unmarshalResource(data)
}

func (s *SQLiteStore) UpdateResource(ctx context.Context, r *model.Resource) error {
	r.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal resource")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE resources SET data = ?, status = ?, org_name = ?, is_parent = ?, updated_at = ? WHERE id = ?`,
		string(data), string(r.Status), r.OrgName, boolToInt(r.IsParent), r.UpdatedAt, r.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update resource %s", r.ID)
	}
	return checkRowsAffected(res, "resource", r.ID)
}

func (s *SQLiteStore) ListResources(ctx context.Context, filter ResourceFilter) ([]model.Resource, error) {
	query := `SELECT data FROM resources WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Category != "" {
		query += ` AND json_extract(data, '$.category') = ?`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY created_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list resources")
	}
	defer rows.Close()

	var out []model.Resource
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan resource")
		}
		r, err := unmarshalResource(data)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list resources iterate")
}

func (s *SQLiteStore) FindParentByOrgName(ctx context.Context, orgName string) (*model.Resource, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM resources WHERE org_name = ? AND is_parent = 1 AND status = 'active' LIMIT 1`,
		orgName,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find parent %s", orgName)
	}
	return unmarshalResource(data)
}

func (s *SQLiteStore) SaveCheckResults(ctx context.Context, candidateID string, checks []model.CheckResult) error {
	now := time.Now().UTC()
	for _, check := range checks {
		data, err := json.Marshal(check)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal check result")
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO check_results (id, candidate_id, name, pass, confidence, data, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), candidateID, string(check.Name), boolToInt(check.Pass), check.Confidence, string(data), now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert check result %s", check.Name)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveDecision(ctx context.Context, candidateID string, d *model.Decision) error {
	data, err := json.Marshal(d)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal decision")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO decisions (id, candidate_id, outcome, confidence, reason, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), candidateID, string(d.Outcome), d.Confidence, d.Reason, string(data), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: insert decision")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func unmarshalResource(data string) (*model.Resource, error) {
	var r model.Resource
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal resource")
	}
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
