package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfinreg/corep-assistant/internal/extract"
	"github.com/openfinreg/corep-assistant/internal/model"
	"github.com/openfinreg/corep-assistant/internal/pipeline"
)

// stubIndex returns a fixed passage set.
type stubIndex struct {
	passages []model.RetrievedPassage
	err      error
}

func (s *stubIndex) Retrieve(ctx context.Context, query string, k int) ([]model.RetrievedPassage, error) {
	return s.passages, s.err
}

// stubExtractor returns a fixed extraction.
type stubExtractor struct {
	out *extract.Extraction
	err error
}

func (s *stubExtractor) Extract(ctx context.Context, question string, passages []model.RetrievedPassage, schema *model.TemplateSchema) (*extract.Extraction, error) {
	return s.out, s.err
}

func testHandler(t *testing.T, idx *stubIndex, ext *stubExtractor) http.Handler {
	t.Helper()
	registry, err := model.LoadTemplates()
	require.NoError(t, err)
	p := pipeline.New(idx, ext, registry, pipeline.DefaultOptions())
	return newAPIHandler(p, registry, nil)
}

func postQuery(t *testing.T, handler http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAPI_Health(t *testing.T) {
	handler := testHandler(t, &stubIndex{}, &stubExtractor{out: &extract.Extraction{}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status    string   `json:"status"`
		Templates []string `json:"templates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Contains(t, resp.Templates, "CA1")
}

func TestAPI_ListTemplates(t *testing.T) {
	handler := testHandler(t, &stubIndex{}, &stubExtractor{out: &extract.Extraction{}})

	req := httptest.NewRequest(http.MethodGet, "/api/templates", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Templates []string `json:"templates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Templates, "CA1")
}

func TestAPI_GetTemplate(t *testing.T) {
	handler := testHandler(t, &stubIndex{}, &stubExtractor{out: &extract.Extraction{}})

	req := httptest.NewRequest(http.MethodGet, "/api/templates/CA1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		TemplateID string            `json:"template_id"`
		Fields     []model.FieldSpec `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CA1", resp.TemplateID)
	assert.Len(t, resp.Fields, 58)
}

func TestAPI_GetTemplate_NotFound(t *testing.T) {
	handler := testHandler(t, &stubIndex{}, &stubExtractor{out: &extract.Extraction{}})

	req := httptest.NewRequest(http.MethodGet, "/api/templates/CA99", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Query_Success(t *testing.T) {
	idx := &stubIndex{passages: []model.RetrievedPassage{{RuleID: "crr#0001", Text: "Article 26", Score: 0.9}}}
	ext := &stubExtractor{out: &extract.Extraction{
		Candidates: []model.CandidateField{
			{FieldCode: "R0010_C0010", RowCode: "R0010", ColCode: "C0010",
				Value: 500e6, DataType: model.DataTypeNumeric, Confidence: model.ConfidenceHigh},
		},
	}}
	handler := testHandler(t, idx, ext)

	rec := postQuery(t, handler, queryRequest{
		Question:   "Bank reports CET1 instruments of 500M GBP",
		TemplateID: "CA1",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var result model.QueryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.QueryID)
	require.Len(t, result.Fields, 1)
	assert.Equal(t, "R0010_C0010", result.Fields[0].FieldCode)
}

func TestAPI_Query_CallerContextEchoed(t *testing.T) {
	handler := testHandler(t, &stubIndex{}, &stubExtractor{out: &extract.Extraction{}})

	rec := postQuery(t, handler, queryRequest{
		Question:   "Bank reports CET1 instruments of 500M GBP",
		TemplateID: "CA1",
		Context:    map[string]any{"reporting_date": "2026-06-30"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var result model.QueryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	callerCtx, ok := result.Metadata["caller_context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2026-06-30", callerCtx["reporting_date"])
}

func TestAPI_Query_InvalidBody(t *testing.T) {
	handler := testHandler(t, &stubIndex{}, &stubExtractor{out: &extract.Extraction{}})

	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Query_ShortQuestion(t *testing.T) {
	handler := testHandler(t, &stubIndex{}, &stubExtractor{out: &extract.Extraction{}})

	rec := postQuery(t, handler, queryRequest{Question: "short", TemplateID: "CA1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Query_UnknownTemplate(t *testing.T) {
	handler := testHandler(t, &stubIndex{}, &stubExtractor{out: &extract.Extraction{}})

	rec := postQuery(t, handler, queryRequest{
		Question:   "a perfectly reasonable scenario question",
		TemplateID: "CA99",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Query_ExtractionFailure(t *testing.T) {
	idx := &stubIndex{passages: []model.RetrievedPassage{{RuleID: "crr#0001"}}}
	handler := testHandler(t, idx, &stubExtractor{err: assert.AnError})

	rec := postQuery(t, handler, queryRequest{
		Question:   "a perfectly reasonable scenario question",
		TemplateID: "CA1",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
