package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/openfinreg/corep-assistant/internal/extract"
	"github.com/openfinreg/corep-assistant/internal/model"
)

// --- Index Mock ---

type mockIndex struct {
	mock.Mock
	calls int
}

func (m *mockIndex) Retrieve(ctx context.Context, query string, k int) ([]model.RetrievedPassage, error) {
	m.calls++
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RetrievedPassage), args.Error(1)
}

// --- Extractor Mock ---

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, question string, passages []model.RetrievedPassage, schema *model.TemplateSchema) (*extract.Extraction, error) {
	args := m.Called(ctx, question, passages, schema)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extract.Extraction), args.Error(1)
}
