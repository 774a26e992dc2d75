package persistence

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/inquira/kgraph/domain/retrieval"
	"github.com/inquira/kgraph/internal/database"
)

// keywordScanCap bounds how many candidate chunks one keyword search loads.
const keywordScanCap = 500

// KeywordSearcher scores chunks by the fraction of query tokens present in
// the content. It is the fallback searcher wired in when no external vector
// searcher is configured, so retrieval stays functional on keyword overlap
// alone.
type KeywordSearcher struct {
	db database.Database
}

var _ retrieval.VectorSearcher = KeywordSearcher{}

// NewKeywordSearcher creates a KeywordSearcher.
func NewKeywordSearcher(db database.Database) KeywordSearcher {
	return KeywordSearcher{db: db}
}

// Search returns the top chunks matching the query tokens within one
// knowledge base.
func (s KeywordSearcher) Search(ctx context.Context, kbID, queryText string, topK int) ([]retrieval.VectorHit, error) {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	tokens := searchTokens(queryText)
	if len(tokens) == 0 {
		return nil, nil
	}

	conds := make([]string, len(tokens))
	args := make([]any, 0, len(tokens)+1)
	args = append(args, kbID)
	for i, t := range tokens {
		conds[i] = "LOWER(content) LIKE ?"
		args = append(args, "%"+t+"%")
	}

	var models []ChunkModel
	result := s.db.Session(ctx).
		Where("kb_id = ? AND ("+strings.Join(conds, " OR ")+")", args...).
		Limit(keywordScanCap).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("keyword search: %w", result.Error)
	}

	hits := make([]retrieval.VectorHit, 0, len(models))
	for _, m := range models {
		content := strings.ToLower(m.Content)
		matched := 0
		for _, t := range tokens {
			if strings.Contains(content, t) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		hits = append(hits, retrieval.VectorHit{
			ChunkID:    m.ID,
			DocumentID: m.DocumentID,
			Content:    m.Content,
			Score:      float64(matched) / float64(len(tokens)),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// searchTokens lowercases and splits the query, dropping one-character
// fragments and duplicates.
func searchTokens(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]{}")
		if len(f) < 2 {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}
