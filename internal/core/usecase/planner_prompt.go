package usecase

func buildPlanPrompt(query string) string {
	return `You are a search planner for a registry of US registered investment advisers.
Decompose the user query into a retrieval plan.
Return a strict JSON object with keys:
semantic_query (string, the query rewritten for similarity search),
person_name (string, the person or firm being asked about; empty unless
intent is "people_lookup"),
city (string or empty), state (2-letter US code or empty),
sort_by (one of "relevance","aum","fund_count" or empty),
sort_order ("asc" or "desc" or empty),
min_aum (integer dollars or null), max_aum (integer dollars or null),
fund_type (string or empty), services (array of strings),
intent (one of "superlative","location","people_lookup","mixed"),
top_n (integer, 0 when not requested),
confidence (number from 0 to 1).
No markdown, no extra keys.

Query:
` + query
}
