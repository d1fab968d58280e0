// Package httpadapter exposes the search pipeline over HTTP.
package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/riahunter/firmsearch/internal/core/domain"
	"github.com/riahunter/firmsearch/internal/core/ports"
)

type Router struct {
	searcher       ports.FirmSearcher
	metricsHandler http.Handler
	limits         TrafficLimits
}

type TrafficLimits struct {
	RequestsPerSecond float64
	Burst             int
	MaxConcurrent     int
	QueueTimeout      time.Duration
}

func NewRouter(searcher ports.FirmSearcher, metricsHandler http.Handler, limits TrafficLimits) *Router {
	return &Router{
		searcher:       searcher,
		metricsHandler: metricsHandler,
		limits:         limits,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/search", rt.search)
	if rt.metricsHandler != nil {
		mux.Handle("/metrics", rt.metricsHandler)
	}

	handler := trafficControlMiddleware(mux, rt.limits)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Query    string `json:"query"`
	Limit    int    `json:"limit"`
	FundType string `json:"fund_type"`
	MinAUM   *int64 `json:"min_aum"`
}

type searchResponse struct {
	Results         []firmResult `json:"results"`
	StrategyUsed    string       `json:"strategy_used"`
	Confidence      float64      `json:"confidence"`
	TotalCandidates int          `json:"total_candidates"`
}

type firmResult struct {
	FirmID      int64               `json:"firm_id"`
	CRD         string              `json:"crd,omitempty"`
	Name        string              `json:"name"`
	City        string              `json:"city,omitempty"`
	State       string              `json:"state,omitempty"`
	AUM         *int64              `json:"aum"`
	FundCount   int                 `json:"fund_count"`
	Score       float64             `json:"score"`
	Source      string              `json:"source"`
	BranchCount int                 `json:"branch_count"`
	People      []personResult      `json:"people,omitempty"`
	Funds       []privateFundResult `json:"funds,omitempty"`
}

type personResult struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

type privateFundResult struct {
	Name            string `json:"name"`
	FundType        string `json:"fund_type,omitempty"`
	GrossAssetValue *int64 `json:"gross_asset_value"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	results, err := rt.searcher.Search(r.Context(), req.Query, domain.SearchOptions{
		Limit:    req.Limit,
		FundType: req.FundType,
		MinAUM:   req.MinAUM,
	})
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		if status >= 500 {
			slog.Error("search_failed",
				"request_id", requestIDFromContext(r.Context()),
				"error", err,
			)
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, toSearchResponse(results))
}

func toSearchResponse(set *domain.ResultSet) searchResponse {
	resp := searchResponse{
		Results:         make([]firmResult, 0, len(set.Results)),
		StrategyUsed:    string(set.StrategyUsed),
		Confidence:      set.Confidence,
		TotalCandidates: set.TotalCandidates,
	}
	for _, firm := range set.Results {
		result := firmResult{
			FirmID:      firm.FirmID,
			CRD:         firm.CRD,
			Name:        firm.Name,
			City:        firm.City,
			State:       firm.State,
			AUM:         firm.AUM,
			FundCount:   firm.FundCount,
			Score:       firm.CombinedScore,
			Source:      string(firm.Source),
			BranchCount: firm.BranchCount,
		}
		for _, person := range firm.People {
			result.People = append(result.People, personResult{
				Name:  person.Name,
				Title: person.Title,
			})
		}
		for _, fund := range firm.Funds {
			result.Funds = append(result.Funds, privateFundResult{
				Name:            fund.Name,
				FundType:        fund.FundType,
				GrossAssetValue: fund.GrossAssetValue,
			})
		}
		resp.Results = append(resp.Results, result)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
