// Package pipeline orchestrates one query end to end: validate the request,
// retrieve regulatory context, extract candidate fields, validate them, and
// assemble the audited result.
package pipeline

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openfinreg/corep-assistant/internal/audit"
	"github.com/openfinreg/corep-assistant/internal/corpus"
	"github.com/openfinreg/corep-assistant/internal/extract"
	"github.com/openfinreg/corep-assistant/internal/model"
	"github.com/openfinreg/corep-assistant/internal/validate"
)

// Stage labels the pipeline's progress for logging.
type Stage string

const (
	StageReceived   Stage = "received"
	StageRetrieving Stage = "retrieving"
	StageExtracting Stage = "extracting"
	StageValidating Stage = "validating"
	StageAssembling Stage = "assembling"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// Extractor is the extraction stage contract, satisfied by extract.Extractor.
type Extractor interface {
	Extract(ctx context.Context, question string, passages []model.RetrievedPassage, schema *model.TemplateSchema) (*extract.Extraction, error)
}

// Options tunes per-query behavior.
type Options struct {
	// TopK is the number of regulatory passages to retrieve.
	TopK int
	// MinQuestionLen rejects trivially short questions before retrieval.
	MinQuestionLen int
	// RetrievalTimeout bounds the corpus retrieval stage.
	RetrievalTimeout time.Duration
	// ExtractionTimeout bounds the model call stage.
	ExtractionTimeout time.Duration
}

// DefaultOptions returns the standard per-query tuning.
func DefaultOptions() Options {
	return Options{
		TopK:              5,
		MinQuestionLen:    10,
		RetrievalTimeout:  30 * time.Second,
		ExtractionTimeout: 120 * time.Second,
	}
}

// Pipeline sequences the query stages. Its dependencies are constructed at
// startup, read-only, and shared safely across concurrent queries.
type Pipeline struct {
	index     corpus.Index
	extractor Extractor
	registry  *model.Registry
	opts      Options
}

// New creates a Pipeline.
func New(index corpus.Index, extractor Extractor, registry *model.Registry, opts Options) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	if opts.MinQuestionLen <= 0 {
		opts.MinQuestionLen = DefaultOptions().MinQuestionLen
	}
	return &Pipeline{
		index:     index,
		extractor: extractor,
		registry:  registry,
		opts:      opts,
	}
}

// ProcessQuery runs one question against one template. callerContext is an
// optional opaque mapping echoed back in the result metadata. Caller-input
// problems are rejected before any retrieval happens. Retrieval failures
// degrade into an empty-context extraction; extraction failures abort the
// query.
func (p *Pipeline) ProcessQuery(ctx context.Context, question, templateID string, callerContext map[string]any) (*model.QueryResult, error) {
	queryID := uuid.NewString()
	log := zap.L().With(zap.String("query_id", queryID), zap.String("template_id", templateID))
	log.Info("query received", zap.String("stage", string(StageReceived)))

	question = strings.TrimSpace(question)
	if utf8.RuneCountInString(question) < p.opts.MinQuestionLen {
		log.Warn("query rejected", zap.String("stage", string(StageFailed)), zap.Int("question_len", utf8.RuneCountInString(question)))
		return nil, callerInputError("pipeline: question must be at least %d characters", p.opts.MinQuestionLen)
	}
	schema := p.registry.Get(templateID)
	if schema == nil {
		log.Warn("query rejected", zap.String("stage", string(StageFailed)))
		return nil, callerInputError("pipeline: unknown template %q", templateID)
	}

	log.Info("retrieving regulatory context", zap.String("stage", string(StageRetrieving)))
	passages, degraded := p.retrieve(ctx, log, question)

	log.Info("extracting fields", zap.String("stage", string(StageExtracting)), zap.Int("passages", len(passages)))
	extCtx, cancel := context.WithTimeout(ctx, p.opts.ExtractionTimeout)
	defer cancel()
	extraction, err := p.extractor.Extract(extCtx, question, passages, schema)
	if err != nil {
		log.Error("extraction failed", zap.String("stage", string(StageFailed)), zap.Error(err))
		return nil, extractionError(err)
	}

	if degraded {
		extraction.Assumptions = append(extraction.Assumptions,
			"No regulatory context could be retrieved; field values rely on general COREP knowledge")
	}

	log.Info("validating fields", zap.String("stage", string(StageValidating)), zap.Int("fields", len(extraction.Candidates)))
	issues := validate.Validate(schema, extraction.Candidates)

	log.Info("assembling result", zap.String("stage", string(StageAssembling)), zap.Int("issues", len(issues)))
	result := audit.Assemble(queryID, schema, extraction.Candidates, issues,
		extraction.MissingData, extraction.Assumptions, passages, callerContext, time.Now().UTC())

	log.Info("query completed",
		zap.String("stage", string(StageCompleted)),
		zap.Int("fields", len(result.Fields)),
		zap.Int("issues", len(result.ValidationIssues)),
	)
	return result, nil
}

// retrieve runs the retrieval stage. Any failure degrades to an empty passage
// set; the second return reports whether degradation happened.
func (p *Pipeline) retrieve(ctx context.Context, log *zap.Logger, question string) ([]model.RetrievedPassage, bool) {
	retCtx, cancel := context.WithTimeout(ctx, p.opts.RetrievalTimeout)
	defer cancel()

	passages, err := p.index.Retrieve(retCtx, question, p.opts.TopK)
	if err != nil {
		log.Warn("retrieval degraded", zap.Error(err))
		return nil, true
	}
	if len(passages) == 0 {
		log.Warn("retrieval returned no passages")
		return nil, true
	}
	return passages, false
}
