package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/katalogpart/katalog-server/internal/normalize"
)

// SearchParams configures a part search.
type SearchParams struct {
	Query  string
	Figure string // Restrict to parts placed on this figure
	Limit  int
	Offset int
}

// DefaultLimit is used when SearchParams.Limit is not positive.
const DefaultLimit = 20

// SearchResult is one page of part hits.
type SearchResult struct {
	Query  string    `json:"query"`
	Total  uint64    `json:"total"`
	TookMs int64     `json:"took_ms"`
	Hits   []PartHit `json:"hits"`
}

// PartHit is a matching part with the figures it appears on.
type PartHit struct {
	Code        string   `json:"kodepart"`
	Description string   `json:"deskripsi"`
	Price       int64    `json:"harga"`
	Figures     []string `json:"figures"`
	Score       float64  `json:"score"`
}

// Search runs a query against the part index.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), limit, params.Offset, false)
	req.SortBy([]string{"-_score", "code"})
	req.Fields = []string{"code", "description", "price", "figures"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]PartHit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		h := PartHit{Code: hit.ID, Score: hit.Score}
		if d, ok := hit.Fields["description"].(string); ok {
			h.Description = d
		}
		if p, ok := hit.Fields["price"].(float64); ok {
			h.Price = int64(p)
		}
		h.Figures = storedStrings(hit.Fields["figures"])
		result.Hits = append(result.Hits, h)
	}
	return result, nil
}

// buildSearchQuery matches the code exactly or by prefix, and the folded
// description by analyzed text with one edit of typo tolerance.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if q := normalize.Fold(params.Query); q != "" {
		codeExact := bleve.NewTermQuery(q)
		codeExact.SetField("code_key")
		codeExact.SetBoost(5.0)

		codePrefix := bleve.NewPrefixQuery(q)
		codePrefix.SetField("code_key")
		codePrefix.SetBoost(2.0)

		textMatch := bleve.NewMatchQuery(q)
		textMatch.SetField("search_text")

		textFuzzy := bleve.NewMatchQuery(q)
		textFuzzy.SetField("search_text")
		textFuzzy.SetFuzziness(1)
		textFuzzy.SetBoost(0.5)

		queries = append(queries, bleve.NewDisjunctionQuery(codeExact, codePrefix, textMatch, textFuzzy))
	}

	if f := figureKey(params.Figure); f != "" {
		fq := bleve.NewTermQuery(f)
		fq.SetField("figure_keys")
		queries = append(queries, fq)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

// storedStrings reads a stored multi-value field. Bleve returns a single value
// as a plain string.
func storedStrings(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}
