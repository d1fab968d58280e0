// Package qdrant implements the vector-similarity side of retrieval
// against a Qdrant collection of firm narrative embeddings. The embedding
// backfill that populates the collection is a separate worker; this client
// only queries.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/riahunter/firmsearch/internal/core/domain"
	"github.com/riahunter/firmsearch/internal/core/ports"
)

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Search issues a constrained similarity query. The structured filter is
// part of the request so it applies during the scan, before truncation;
// filtering the top-N afterwards would silently drop valid matches.
func (c *Client) Search(
	ctx context.Context,
	queryVector []float32,
	filter ports.VectorFilter,
	minScore float64,
	limit int,
) ([]domain.Candidate, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if minScore > 0 {
		reqBody["score_threshold"] = minScore
	}
	if conditions := filterConditions(filter); len(conditions) > 0 {
		reqBody["filter"] = map[string]any{"must": conditions}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, formatQdrantHTTPError("search", resp)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.Candidate, 0, len(searchResp.Result))
	for i, r := range searchResp.Result {
		out = append(out, domain.Candidate{
			FirmID:        getInt64Payload(r.Payload, "firm_id"),
			CRD:           getStringPayload(r.Payload, "crd"),
			Name:          getStringPayload(r.Payload, "name"),
			City:          getStringPayload(r.Payload, "city"),
			State:         getStringPayload(r.Payload, "state"),
			AUM:           getOptionalInt64Payload(r.Payload, "total_aum"),
			FundCount:     int(getInt64Payload(r.Payload, "fund_count")),
			SemanticScore: r.Score,
			SemanticRank:  i + 1,
			Source:        domain.SourceSemantic,
		})
	}
	return out, nil
}

func filterConditions(filter ports.VectorFilter) []map[string]any {
	var conditions []map[string]any
	if filter.State != "" {
		conditions = append(conditions, map[string]any{
			"key":   "state",
			"match": map[string]any{"value": filter.State},
		})
	}
	if values := cityMatchValues(filter); len(values) > 0 {
		match := map[string]any{"value": values[0]}
		if len(values) > 1 {
			match = map[string]any{"any": values}
		}
		conditions = append(conditions, map[string]any{
			"key":   "city",
			"match": match,
		})
	}
	if filter.MinAUM != nil {
		conditions = append(conditions, map[string]any{
			"key":   "total_aum",
			"range": map[string]any{"gte": *filter.MinAUM},
		})
	}
	if filter.FundType != "" {
		conditions = append(conditions, map[string]any{
			"key":   "fund_types",
			"match": map[string]any{"value": filter.FundType},
		})
	}
	return conditions
}

// cityMatchValues returns every spelling the city condition must accept.
// Payloads are indexed with whatever spelling the registry filing carried,
// so the canonical city alone would drop variant-indexed firms.
func cityMatchValues(filter ports.VectorFilter) []string {
	if len(filter.CityVariants) == 0 {
		if filter.City == "" {
			return nil
		}
		return []string{filter.City}
	}
	// Payload matching is exact, so spellings that differ only in case
	// are distinct values and all of them stay in the list.
	values := make([]string, 0, len(filter.CityVariants)+1)
	seen := make(map[string]bool, len(filter.CityVariants)+1)
	for _, v := range filter.CityVariants {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	if filter.City != "" && !seen[filter.City] {
		values = append(values, filter.City)
	}
	return values
}

func formatQdrantHTTPError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("qdrant %s status: %s: %s", operation, resp.Status, msg)
	}
	return fmt.Errorf("qdrant %s status: %s", operation, resp.Status)
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getInt64Payload(payload map[string]any, key string) int64 {
	switch v := payload[key].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

func getOptionalInt64Payload(payload map[string]any, key string) *int64 {
	v, ok := payload[key]
	if !ok || v == nil {
		return nil
	}
	n := getInt64Payload(payload, key)
	return &n
}
