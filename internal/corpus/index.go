// Package corpus implements the regulatory rule corpus: chunked source
// documents with embeddings, persisted in SQLite and searched by cosine
// similarity.
package corpus

import (
	"context"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/openfinreg/corep-assistant/internal/model"
	"github.com/openfinreg/corep-assistant/pkg/gemini"
)

// Index retrieves the passages most relevant to a query, ordered by
// descending similarity, at most k of them.
type Index interface {
	Retrieve(ctx context.Context, query string, k int) ([]model.RetrievedPassage, error)
}

// SimilarityIndex is an Index over a chunk Store. Chunks are loaded into
// memory once and shared read-only across concurrent queries.
type SimilarityIndex struct {
	store    *Store
	embedder gemini.Embedder

	// minScore drops passages below this cosine similarity.
	minScore float64

	mu     sync.RWMutex
	chunks []Chunk
	loaded bool
}

// NewSimilarityIndex creates an index over the given store. Chunks are loaded
// lazily on first retrieval so an empty or missing corpus is not fatal at
// startup.
func NewSimilarityIndex(store *Store, embedder gemini.Embedder, minScore float64) *SimilarityIndex {
	return &SimilarityIndex{
		store:    store,
		embedder: embedder,
		minScore: minScore,
	}
}

func (idx *SimilarityIndex) ensureLoaded(ctx context.Context) ([]Chunk, error) {
	idx.mu.RLock()
	if idx.loaded {
		chunks := idx.chunks
		idx.mu.RUnlock()
		return chunks, nil
	}
	idx.mu.RUnlock()

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.loaded {
		return idx.chunks, nil
	}

	chunks, err := idx.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	idx.chunks = chunks
	idx.loaded = true

	zap.L().Info("corpus: index loaded", zap.Int("chunks", len(chunks)))
	return chunks, nil
}

// Retrieve embeds the query and returns the top-k chunks by cosine
// similarity, descending, filtered by the relevance threshold. An empty
// corpus yields an empty result, not an error.
func (idx *SimilarityIndex) Retrieve(ctx context.Context, query string, k int) ([]model.RetrievedPassage, error) {
	if k <= 0 {
		return nil, nil
	}

	chunks, err := idx.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	queryVec, err := idx.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	scored := make([]model.RetrievedPassage, 0, len(chunks))
	for _, c := range chunks {
		score := cosineSimilarity(queryVec, c.Embedding)
		if score < idx.minScore {
			continue
		}
		scored = append(scored, model.RetrievedPassage{
			RuleID: c.RuleID,
			Source: c.Source,
			Text:   c.Text,
			Score:  score,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}

	zap.L().Debug("corpus: retrieval complete",
		zap.Int("candidates", len(chunks)),
		zap.Int("returned", len(scored)),
	)
	return scored, nil
}

// cosineSimilarity computes the cosine similarity of two vectors. Mismatched
// or zero-length vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
