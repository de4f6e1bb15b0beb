package main

import (
	"encoding/json"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openfinreg/corep-assistant/internal/corpus"
	"github.com/openfinreg/corep-assistant/internal/fetcher"
	"github.com/openfinreg/corep-assistant/pkg/gemini"
)

var ingestURLs []string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Chunk, embed, and store regulatory source documents",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && len(ingestURLs) == 0 {
			return eris.New("ingest: provide at least one file or --url")
		}
		ctx := cmd.Context()

		store, err := corpus.OpenStore(cfg.Corpus.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}

		embedder, err := gemini.NewEmbedder(ctx, cfg.Gemini.Key, cfg.Gemini.EmbeddingModel)
		if err != nil {
			return err
		}

		ing := corpus.NewIngester(store, embedder, corpus.Chunker{
			Size:    cfg.Corpus.ChunkSize,
			Overlap: cfg.Corpus.ChunkOverlap,
		}, cfg.Corpus.EmbedRatePerSec)

		total := 0
		for _, p := range args {
			n, err := ing.IngestFile(ctx, p)
			if err != nil {
				return err
			}
			total += n
		}

		if len(ingestURLs) > 0 {
			f := fetcher.NewHTTPFetcher(fetcher.Options{RateLimiters: fetcher.DefaultRateLimiters()})
			for _, rawURL := range ingestURLs {
				text, err := f.Fetch(ctx, rawURL)
				if err != nil {
					return err
				}
				n, err := ing.IngestDocument(ctx, sourceFromURL(rawURL), text)
				if err != nil {
					return err
				}
				total += n
			}
		}
		zap.L().Info("ingestion complete",
			zap.Int("files", len(args)),
			zap.Int("urls", len(ingestURLs)),
			zap.Int("chunks", total),
		)

		stats, err := store.Stats(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

// sourceFromURL derives a stable corpus source name from a document URL.
func sourceFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return strings.ReplaceAll(rawURL, "/", "_")
	}
	base := path.Base(u.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

func init() {
	ingestCmd.Flags().StringArrayVar(&ingestURLs, "url", nil, "document URL to fetch and ingest (repeatable)")
	rootCmd.AddCommand(ingestCmd)
}
