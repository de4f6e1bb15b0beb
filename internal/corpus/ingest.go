package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/openfinreg/corep-assistant/pkg/gemini"
)

// embedBatchSize caps how many chunks go into one embedding request.
const embedBatchSize = 32

// maxEmbedConcurrency limits concurrent embedding requests during ingestion.
const maxEmbedConcurrency = 4

// Ingester chunks source documents, embeds the chunks, and writes them to
// the corpus store. Used offline; query processing never ingests.
type Ingester struct {
	store    *Store
	embedder gemini.Embedder
	chunker  Chunker
	limiter  *rate.Limiter
}

// NewIngester creates an Ingester. requestsPerSecond bounds the embedding
// API call rate; zero or negative disables the limit.
func NewIngester(store *Store, embedder gemini.Embedder, chunker Chunker, requestsPerSecond float64) *Ingester {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Ingester{
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// IngestFile reads a text or markdown file and ingests it under its base
// name (without extension) as the source identifier.
func (ing *Ingester) IngestFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: read %s", path)
	}
	source := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ing.IngestDocument(ctx, source, string(data))
}

// IngestDocument chunks and embeds one document and stores the result.
// Returns the number of chunks written.
func (ing *Ingester) IngestDocument(ctx context.Context, source, text string) (int, error) {
	chunks := ing.chunker.Split(source, text)
	if len(chunks) == 0 {
		zap.L().Warn("ingest: document produced no chunks", zap.String("source", source))
		return 0, nil
	}

	// Embed in bounded-concurrency batches, rate-limited per request.
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxEmbedConcurrency)

	var mu sync.Mutex
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		batch := chunks[start:end]

		g.Go(func() error {
			if err := ing.limiter.Wait(gCtx); err != nil {
				return err
			}
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vecs, err := ing.embedder.EmbedDocuments(gCtx, texts)
			if err != nil {
				return eris.Wrapf(err, "ingest: embed %s", source)
			}
			mu.Lock()
			for i := range batch {
				batch[i].Embedding = vecs[i]
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := ing.store.AddChunks(ctx, chunks); err != nil {
		return 0, err
	}

	zap.L().Info("ingest: document stored",
		zap.String("source", source),
		zap.Int("chunks", len(chunks)),
	)
	return len(chunks), nil
}
