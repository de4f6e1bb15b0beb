package main

import (
	"context"
	"time"

	"github.com/openfinreg/corep-assistant/internal/corpus"
	"github.com/openfinreg/corep-assistant/internal/extract"
	"github.com/openfinreg/corep-assistant/internal/model"
	"github.com/openfinreg/corep-assistant/internal/pipeline"
	"github.com/openfinreg/corep-assistant/pkg/anthropic"
	"github.com/openfinreg/corep-assistant/pkg/gemini"
)

// env bundles the initialized pipeline dependencies for a command run.
type env struct {
	Store    *corpus.Store
	Registry *model.Registry
	Pipeline *pipeline.Pipeline
}

// initPipeline wires the full query pipeline from configuration: corpus
// store, embedder-backed index, Anthropic extractor, and template registry.
func initPipeline(ctx context.Context) (*env, error) {
	registry, err := model.LoadTemplates()
	if err != nil {
		return nil, err
	}

	store, err := corpus.OpenStore(cfg.Corpus.Path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	embedder, err := gemini.NewEmbedder(ctx, cfg.Gemini.Key, cfg.Gemini.EmbeddingModel)
	if err != nil {
		store.Close()
		return nil, err
	}

	index := corpus.NewSimilarityIndex(store, embedder, cfg.Corpus.RelevanceMinScore)
	extractor := extract.NewExtractor(
		anthropic.NewClient(cfg.Anthropic.Key),
		cfg.Anthropic.Model,
		cfg.Anthropic.MaxTokens,
		cfg.Anthropic.Temperature,
	)

	p := pipeline.New(index, extractor, registry, pipeline.Options{
		TopK:              cfg.Pipeline.TopK,
		MinQuestionLen:    cfg.Pipeline.MinQuestionLen,
		RetrievalTimeout:  time.Duration(cfg.Pipeline.RetrievalTimeoutSecs) * time.Second,
		ExtractionTimeout: time.Duration(cfg.Pipeline.ExtractionTimeoutSecs) * time.Second,
	})

	return &env{Store: store, Registry: registry, Pipeline: p}, nil
}

// Close releases the environment's resources.
func (e *env) Close() {
	if e.Store != nil {
		e.Store.Close()
	}
}
