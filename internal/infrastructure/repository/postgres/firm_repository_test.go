package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/riahunter/firmsearch/internal/core/domain"
)

// passthroughConverter lets slice arguments ([]string city variants,
// []int64 id batches) reach the mock the way the pgx driver accepts them.
type passthroughConverter struct{}

func (passthroughConverter) ConvertValue(v any) (driver.Value, error) {
	return driver.Value(v), nil
}

func newRepoWithMock(t *testing.T) (*FirmRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passthroughConverter{}))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &FirmRepository{db: db}, mock, func() { _ = db.Close() }
}

func candidateRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"firm_pk", "crd", "legal_name", "city", "state", "total_aum", "fund_count"})
}

func int64Ptr(v int64) *int64 { return &v }

func stlLocation() *domain.NormalizedLocation {
	return &domain.NormalizedLocation{
		City:     "Saint Louis",
		State:    "MO",
		Variants: []string{"St Louis", "St. Louis", "Saint Louis", "STL"},
	}
}

func TestSearchLexicalBuildsRankedQuery(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`(?s)websearch_to_tsquery.*ORDER BY ts_rank`).
		WithArgs("MO", []string{"saint louis", "st louis", "st. louis", "stl"}, int64(100_000_000), "wealth managers", 30).
		WillReturnRows(candidateRows().
			AddRow(int64(1), "100001", "Gateway Capital", "Saint Louis", "MO", int64(3_000_000_000), 2).
			AddRow(int64(2), nil, "Arch Wealth", "Clayton", nil, nil, 0))

	got, err := repo.SearchLexical(context.Background(), "wealth managers", stlLocation(), domain.SearchConstraints{
		MinAUM: int64Ptr(100_000_000),
	}, 30)
	if err != nil {
		t.Fatalf("SearchLexical() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Source != domain.SourceLexical {
		t.Fatalf("expected lexical source, got %q", got[0].Source)
	}
	if got[0].AUM == nil || *got[0].AUM != 3_000_000_000 {
		t.Fatalf("expected aum scanned, got %v", got[0].AUM)
	}
	if got[1].CRD != "" || got[1].State != "" || got[1].AUM != nil {
		t.Fatalf("null columns must scan to zero values, got %+v", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchStructuredSortsNullsLast(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	// The NULLS LAST clause is the invariant under test: missing-AUM firms
	// must never top a largest-first list.
	mock.ExpectQuery(`ORDER BY f\.total_aum DESC NULLS LAST, f\.firm_pk ASC`).
		WithArgs("MO", []string{"saint louis", "st louis", "st. louis", "stl"}, 30).
		WillReturnRows(candidateRows().
			AddRow(int64(1), "100001", "Gateway Capital", "Saint Louis", "MO", int64(3_000_000_000), 2))

	got, err := repo.SearchStructured(context.Background(), stlLocation(), domain.SearchConstraints{
		SortBy:    domain.SortByAUM,
		SortOrder: domain.SortDesc,
	}, 30)
	if err != nil {
		t.Fatalf("SearchStructured() error = %v", err)
	}
	if len(got) != 1 || got[0].Source != domain.SourceStructured {
		t.Fatalf("unexpected candidates %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchStructuredAscendingKeepsNullsLast(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`ORDER BY f\.fund_count ASC NULLS LAST`).
		WithArgs(30).
		WillReturnRows(candidateRows())

	_, err := repo.SearchStructured(context.Background(), nil, domain.SearchConstraints{
		SortBy:    domain.SortByFundCount,
		SortOrder: domain.SortAsc,
	}, 30)
	if err != nil {
		t.Fatalf("SearchStructured() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchStructuredRendersConstraintClauses(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`(?s)f\.total_aum >= \$1.*f\.total_aum <= \$2.*lower\(pf\.fund_type\) = lower\(\$3\).*f\.services @> \$4::jsonb`).
		WithArgs(int64(1_000_000), int64(1_000_000_000), "hedge fund", `["financial planning"]`, 10).
		WillReturnRows(candidateRows())

	_, err := repo.SearchStructured(context.Background(), nil, domain.SearchConstraints{
		MinAUM:           int64Ptr(1_000_000),
		MaxAUM:           int64Ptr(1_000_000_000),
		FundType:         "hedge fund",
		RequiredServices: []string{"Financial Planning"},
	}, 10)
	if err != nil {
		t.Fatalf("SearchStructured() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchByPersonJoinsPeople(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`(?s)JOIN people p ON p\.firm_fk = f\.firm_pk.*ILIKE`).
		WithArgs("Keller", 20).
		WillReturnRows(candidateRows().
			AddRow(int64(7), "100007", "Keller Wealth Group", "Chicago", "IL", int64(250_000_000), 1))

	got, err := repo.SearchByPerson(context.Background(), "Keller", 20)
	if err != nil {
		t.Fatalf("SearchByPerson() error = %v", err)
	}
	if len(got) != 1 || got[0].FirmID != 7 {
		t.Fatalf("unexpected candidates %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTopByAUMExcludesPresentFirms(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`(?s)NOT \(f\.firm_pk = ANY\(\$3\)\).*f\.total_aum IS NOT NULL`).
		WithArgs("MO", []string{"saint louis", "st louis", "st. louis", "stl"}, []int64{1, 2, 3}, 7).
		WillReturnRows(candidateRows().
			AddRow(int64(50), nil, "Hidden Giant Advisors", "Saint Louis", "MO", int64(5_000_000_000), 0))

	got, err := repo.TopByAUM(context.Background(), stlLocation(), []int64{1, 2, 3}, 7)
	if err != nil {
		t.Fatalf("TopByAUM() error = %v", err)
	}
	if len(got) != 1 || got[0].Source != domain.SourceSupplement {
		t.Fatalf("expected supplement-sourced candidate, got %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPeopleByFirmIDsGroupsByFirm(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`(?s)FROM people.*firm_fk = ANY\(\$1\)`).
		WithArgs([]int64{1, 2}).
		WillReturnRows(sqlmock.NewRows([]string{"person_pk", "firm_fk", "name", "title"}).
			AddRow(int64(11), int64(1), "Pat Keller", "CIO").
			AddRow(int64(12), int64(1), "Ray Molina", "").
			AddRow(int64(13), int64(2), "Dana Whitfield", "CCO"))

	got, err := repo.PeopleByFirmIDs(context.Background(), []int64{1, 2})
	if err != nil {
		t.Fatalf("PeopleByFirmIDs() error = %v", err)
	}
	if len(got[1]) != 2 || len(got[2]) != 1 {
		t.Fatalf("unexpected grouping %+v", got)
	}
	if got[1][0].Name != "Pat Keller" || got[1][0].Title != "CIO" {
		t.Fatalf("unexpected first person %+v", got[1][0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPeopleByFirmIDsEmptyInputSkipsQuery(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	got, err := repo.PeopleByFirmIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("PeopleByFirmIDs() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFundsByFirmIDsScansNullGAV(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`(?s)FROM private_funds.*firm_fk = ANY\(\$1\)`).
		WithArgs([]int64{50}).
		WillReturnRows(sqlmock.NewRows([]string{"fund_pk", "firm_fk", "fund_name", "fund_type", "gross_asset_value"}).
			AddRow(int64(21), int64(50), "Hidden Giant Fund I", "private equity", int64(900_000_000)).
			AddRow(int64(22), int64(50), "Hidden Giant Fund II", "", nil))

	got, err := repo.FundsByFirmIDs(context.Background(), []int64{50})
	if err != nil {
		t.Fatalf("FundsByFirmIDs() error = %v", err)
	}
	funds := got[50]
	if len(funds) != 2 {
		t.Fatalf("expected 2 funds, got %d", len(funds))
	}
	if funds[0].GrossAssetValue == nil || *funds[0].GrossAssetValue != 900_000_000 {
		t.Fatalf("expected gav scanned, got %v", funds[0].GrossAssetValue)
	}
	if funds[1].GrossAssetValue != nil {
		t.Fatalf("null gav must stay nil, got %v", *funds[1].GrossAssetValue)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestQueryCandidatesPropagatesErrors(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`FROM firms`).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.SearchStructured(context.Background(), nil, domain.SearchConstraints{}, 10)
	if err == nil {
		t.Fatal("expected query error to propagate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaRunsInTransactionWithAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).
		WithArgs(int64(2026083101)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS firms`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
