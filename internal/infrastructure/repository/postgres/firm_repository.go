package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/riahunter/firmsearch/internal/core/domain"
)

// FirmRepository is the structured-store side of retrieval: ranked text
// match, exact-filter sorted queries, coverage supplement lookups, and the
// batched enrichment reads.
type FirmRepository struct {
	db *sql.DB
}

func NewFirmRepository(db *sql.DB) *FirmRepository {
	return &FirmRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *FirmRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent service startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS firms (
	firm_pk BIGSERIAL PRIMARY KEY,
	crd TEXT UNIQUE,
	legal_name TEXT NOT NULL,
	city TEXT,
	state TEXT,
	total_aum BIGINT,
	fund_count INTEGER NOT NULL DEFAULT 0,
	services JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_firms_state_city ON firms(state, lower(city));
CREATE INDEX IF NOT EXISTS idx_firms_total_aum ON firms(total_aum DESC NULLS LAST);
CREATE INDEX IF NOT EXISTS idx_firms_fts ON firms
	USING gin (to_tsvector('english', coalesce(legal_name, '') || ' ' || coalesce(city, '')));

CREATE TABLE IF NOT EXISTS people (
	person_pk BIGSERIAL PRIMARY KEY,
	firm_fk BIGINT NOT NULL REFERENCES firms(firm_pk),
	name TEXT NOT NULL,
	title TEXT
);

CREATE INDEX IF NOT EXISTS idx_people_firm_fk ON people(firm_fk);
CREATE INDEX IF NOT EXISTS idx_people_name ON people(lower(name));

CREATE TABLE IF NOT EXISTS private_funds (
	fund_pk BIGSERIAL PRIMARY KEY,
	firm_fk BIGINT NOT NULL REFERENCES firms(firm_pk),
	fund_name TEXT NOT NULL,
	fund_type TEXT,
	gross_asset_value BIGINT
);

CREATE INDEX IF NOT EXISTS idx_private_funds_firm_fk ON private_funds(firm_fk);
CREATE INDEX IF NOT EXISTS idx_private_funds_fund_type ON private_funds(fund_type);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const candidateColumns = `f.firm_pk, f.crd, f.legal_name, f.city, f.state, f.total_aum, f.fund_count`

// SearchLexical ranks firms by full-text match over name and city, with
// all structured constraints applied inside the same query.
func (r *FirmRepository) SearchLexical(ctx context.Context, text string, loc *domain.NormalizedLocation, c domain.SearchConstraints, limit int) ([]domain.Candidate, error) {
	where, args := constraintClauses(loc, c)

	args = append(args, text)
	match := fmt.Sprintf(
		`to_tsvector('english', coalesce(f.legal_name, '') || ' ' || coalesce(f.city, '')) @@ websearch_to_tsquery('english', $%d)`,
		len(args),
	)
	rank := fmt.Sprintf(
		`ts_rank(to_tsvector('english', coalesce(f.legal_name, '') || ' ' || coalesce(f.city, '')), websearch_to_tsquery('english', $%d))`,
		len(args),
	)
	where = append(where, match)

	args = append(args, limit)
	query := fmt.Sprintf(`
SELECT %s
FROM firms f
WHERE %s
ORDER BY %s DESC, f.firm_pk ASC
LIMIT $%d
`, candidateColumns, strings.Join(where, "\n  AND "), rank, len(args))

	return r.queryCandidates(ctx, query, args, domain.SourceLexical)
}

// SearchStructured executes an exact-filter query with an explicit sort.
// Null scale values order after every non-null value regardless of sort
// direction, so missing-data firms never top a "largest first" list.
func (r *FirmRepository) SearchStructured(ctx context.Context, loc *domain.NormalizedLocation, c domain.SearchConstraints, limit int) ([]domain.Candidate, error) {
	where, args := constraintClauses(loc, c)
	if len(where) == 0 {
		where = append(where, "TRUE")
	}

	sortColumn := "f.total_aum"
	if c.SortBy == domain.SortByFundCount {
		sortColumn = "f.fund_count"
	}
	direction := "DESC"
	if c.SortOrder == domain.SortAsc {
		direction = "ASC"
	}

	args = append(args, limit)
	query := fmt.Sprintf(`
SELECT %s
FROM firms f
WHERE %s
ORDER BY %s %s NULLS LAST, f.firm_pk ASC
LIMIT $%d
`, candidateColumns, strings.Join(where, "\n  AND "), sortColumn, direction, len(args))

	return r.queryCandidates(ctx, query, args, domain.SourceStructured)
}

// SearchByPerson resolves firms through their advisory representatives.
func (r *FirmRepository) SearchByPerson(ctx context.Context, name string, limit int) ([]domain.Candidate, error) {
	query := fmt.Sprintf(`
SELECT DISTINCT %s
FROM firms f
JOIN people p ON p.firm_fk = f.firm_pk
WHERE p.name ILIKE '%%' || $1 || '%%'
ORDER BY f.total_aum DESC NULLS LAST, f.firm_pk ASC
LIMIT $2
`, candidateColumns)

	return r.queryCandidates(ctx, query, []any{name, limit}, domain.SourceStructured)
}

// TopByAUM feeds coverage supplementation: the highest-AUM firms for a
// location that are not already in the result set.
func (r *FirmRepository) TopByAUM(ctx context.Context, loc *domain.NormalizedLocation, excludeIDs []int64, limit int) ([]domain.Candidate, error) {
	where, args := locationClauses(loc, nil)
	if len(where) == 0 {
		where = append(where, "TRUE")
	}
	if len(excludeIDs) > 0 {
		args = append(args, excludeIDs)
		where = append(where, fmt.Sprintf("NOT (f.firm_pk = ANY($%d))", len(args)))
	}
	where = append(where, "f.total_aum IS NOT NULL")

	args = append(args, limit)
	query := fmt.Sprintf(`
SELECT %s
FROM firms f
WHERE %s
ORDER BY f.total_aum DESC NULLS LAST, f.firm_pk ASC
LIMIT $%d
`, candidateColumns, strings.Join(where, "\n  AND "), len(args))

	return r.queryCandidates(ctx, query, args, domain.SourceSupplement)
}

// PeopleByFirmIDs is one batched IN(...) lookup for the final window.
func (r *FirmRepository) PeopleByFirmIDs(ctx context.Context, firmIDs []int64) (map[int64][]domain.Person, error) {
	if len(firmIDs) == 0 {
		return map[int64][]domain.Person{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT person_pk, firm_fk, name, coalesce(title, '')
FROM people
WHERE firm_fk = ANY($1)
ORDER BY firm_fk, person_pk
`, firmIDs)
	if err != nil {
		return nil, fmt.Errorf("people by firm ids: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]domain.Person, len(firmIDs))
	for rows.Next() {
		var p domain.Person
		if err := rows.Scan(&p.ID, &p.FirmID, &p.Name, &p.Title); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		out[p.FirmID] = append(out[p.FirmID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate people: %w", err)
	}
	return out, nil
}

// FundsByFirmIDs is one batched IN(...) lookup for the final window.
func (r *FirmRepository) FundsByFirmIDs(ctx context.Context, firmIDs []int64) (map[int64][]domain.PrivateFund, error) {
	if len(firmIDs) == 0 {
		return map[int64][]domain.PrivateFund{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT fund_pk, firm_fk, fund_name, coalesce(fund_type, ''), gross_asset_value
FROM private_funds
WHERE firm_fk = ANY($1)
ORDER BY firm_fk, fund_pk
`, firmIDs)
	if err != nil {
		return nil, fmt.Errorf("funds by firm ids: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]domain.PrivateFund, len(firmIDs))
	for rows.Next() {
		var f domain.PrivateFund
		var gav sql.NullInt64
		if err := rows.Scan(&f.ID, &f.FirmID, &f.Name, &f.FundType, &gav); err != nil {
			return nil, fmt.Errorf("scan private fund: %w", err)
		}
		if gav.Valid {
			v := gav.Int64
			f.GrossAssetValue = &v
		}
		out[f.FirmID] = append(out[f.FirmID], f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate private funds: %w", err)
	}
	return out, nil
}

func (r *FirmRepository) queryCandidates(ctx context.Context, query string, args []any, source domain.CandidateSource) ([]domain.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Candidate, 0, 16)
	for rows.Next() {
		var c domain.Candidate
		var crd, city, state sql.NullString
		var aum sql.NullInt64
		if err := rows.Scan(&c.FirmID, &crd, &c.Name, &city, &state, &aum, &c.FundCount); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.CRD = crd.String
		c.City = city.String
		c.State = state.String
		if aum.Valid {
			v := aum.Int64
			c.AUM = &v
		}
		c.Source = source
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

// constraintClauses renders the shared WHERE fragment for a location plus
// numeric/category constraints; placeholders continue from args length.
func constraintClauses(loc *domain.NormalizedLocation, c domain.SearchConstraints) ([]string, []any) {
	where, args := locationClauses(loc, nil)

	if c.MinAUM != nil {
		args = append(args, *c.MinAUM)
		where = append(where, fmt.Sprintf("f.total_aum >= $%d", len(args)))
	}
	if c.MaxAUM != nil {
		args = append(args, *c.MaxAUM)
		where = append(where, fmt.Sprintf("f.total_aum <= $%d", len(args)))
	}
	if c.FundType != "" {
		args = append(args, c.FundType)
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM private_funds pf WHERE pf.firm_fk = f.firm_pk AND lower(pf.fund_type) = lower($%d))",
			len(args),
		))
	}
	if len(c.RequiredServices) > 0 {
		args = append(args, servicesJSON(c.RequiredServices))
		where = append(where, fmt.Sprintf("f.services @> $%d::jsonb", len(args)))
	}
	return where, args
}

func locationClauses(loc *domain.NormalizedLocation, args []any) ([]string, []any) {
	var where []string
	if loc == nil {
		return where, args
	}
	if loc.State != "" {
		args = append(args, loc.State)
		where = append(where, fmt.Sprintf("f.state = $%d", len(args)))
	}
	if loc.City != "" {
		variants := make([]string, 0, len(loc.Variants)+1)
		seen := make(map[string]bool, len(loc.Variants)+1)
		for _, v := range append([]string{loc.City}, loc.Variants...) {
			key := strings.ToLower(strings.TrimSpace(v))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			variants = append(variants, key)
		}
		args = append(args, variants)
		where = append(where, fmt.Sprintf("lower(f.city) = ANY($%d)", len(args)))
	}
	return where, args
}

func servicesJSON(services []string) string {
	quoted := make([]string, 0, len(services))
	for _, s := range services {
		quoted = append(quoted, fmt.Sprintf("%q", strings.ToLower(s)))
	}
	return "[" + strings.Join(quoted, ",") + "]"
}
