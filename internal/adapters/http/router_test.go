package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/riahunter/firmsearch/internal/core/domain"
)

type fakeSearcher struct {
	lastQuery string
	lastOpts  domain.SearchOptions
	result    *domain.ResultSet
	err       error
}

func (f *fakeSearcher) Search(_ context.Context, query string, opts domain.SearchOptions) (*domain.ResultSet, error) {
	f.lastQuery = query
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &domain.ResultSet{}, nil
	}
	return f.result, nil
}

func int64Ptr(v int64) *int64 { return &v }

func TestSearchReturnsEnrichedResults(t *testing.T) {
	searcher := &fakeSearcher{
		result: &domain.ResultSet{
			Results: []domain.EnrichedFirm{
				{
					Candidate: domain.Candidate{
						FirmID:        42,
						CRD:           "100042",
						Name:          "Gateway Capital Advisors",
						City:          "Saint Louis",
						State:         "MO",
						AUM:           int64Ptr(1_500_000_000),
						FundCount:     3,
						CombinedScore: 0.021,
						Source:        domain.SourceStructured,
					},
					BranchCount: 2,
					People: []domain.Person{
						{Name: "Dana Whitfield", Title: "Chief Compliance Officer"},
					},
				},
			},
			StrategyUsed:    domain.StrategyStructured,
			Confidence:      0.9,
			TotalCandidates: 7,
		},
	}
	router := NewRouter(searcher, nil, TrafficLimits{})

	body := `{"query":"largest advisers in st louis","limit":5}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	res := httptest.NewRecorder()
	router.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if searcher.lastQuery != "largest advisers in st louis" {
		t.Fatalf("unexpected query passed through: %q", searcher.lastQuery)
	}
	if searcher.lastOpts.Limit != 5 {
		t.Fatalf("expected limit 5, got %d", searcher.lastOpts.Limit)
	}

	var resp searchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.StrategyUsed != "structured" {
		t.Fatalf("expected strategy structured, got %q", resp.StrategyUsed)
	}
	if resp.TotalCandidates != 7 {
		t.Fatalf("expected 7 candidates, got %d", resp.TotalCandidates)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	firm := resp.Results[0]
	if firm.Name != "Gateway Capital Advisors" || firm.State != "MO" {
		t.Fatalf("unexpected firm payload: %+v", firm)
	}
	if firm.AUM == nil || *firm.AUM != 1_500_000_000 {
		t.Fatalf("expected aum 1.5b, got %v", firm.AUM)
	}
	if firm.BranchCount != 2 {
		t.Fatalf("expected branch count 2, got %d", firm.BranchCount)
	}
	if len(firm.People) != 1 || firm.People[0].Name != "Dana Whitfield" {
		t.Fatalf("expected person payload, got %+v", firm.People)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header on response")
	}
}

func TestSearchPassesFilterOptions(t *testing.T) {
	searcher := &fakeSearcher{result: &domain.ResultSet{StrategyUsed: domain.StrategyHybrid}}
	router := NewRouter(searcher, nil, TrafficLimits{})

	body := `{"query":"hedge fund managers","fund_type":"hedge fund","min_aum":1000000000}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	res := httptest.NewRecorder()
	router.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if searcher.lastOpts.FundType != "hedge fund" {
		t.Fatalf("expected fund type passthrough, got %q", searcher.lastOpts.FundType)
	}
	if searcher.lastOpts.MinAUM == nil || *searcher.lastOpts.MinAUM != 1_000_000_000 {
		t.Fatalf("expected min aum passthrough, got %v", searcher.lastOpts.MinAUM)
	}
}

func TestSearchRejectsBadRequests(t *testing.T) {
	router := NewRouter(&fakeSearcher{}, nil, TrafficLimits{})
	handler := router.Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", res.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader("{not json"))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", res.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"   "}`))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank query, got %d", res.Code)
	}
}

func TestSearchMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query is empty")), http.StatusBadRequest},
		{"retrieval unavailable", domain.WrapError(domain.ErrRetrievalUnavailable, "search", errors.New("qdrant down")), http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := NewRouter(&fakeSearcher{err: tc.err}, nil, TrafficLimits{})
			req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"advisers"}`))
			res := httptest.NewRecorder()
			router.Handler().ServeHTTP(res, req)
			if res.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, res.Code)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	router := NewRouter(&fakeSearcher{}, nil, TrafficLimits{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	router.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}
