package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenkanalyzer/tenk-analyzer/constants"
	"github.com/tenkanalyzer/tenk-analyzer/internal/common"
	"github.com/tenkanalyzer/tenk-analyzer/internal/entity"
	"github.com/tenkanalyzer/tenk-analyzer/internal/extract"
	"github.com/tenkanalyzer/tenk-analyzer/internal/llm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeExtractor struct {
	result extract.TextExtractionResult
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(ctx context.Context, doc entity.Document) (extract.TextExtractionResult, error) {
	f.calls++
	if f.err != nil {
		return extract.TextExtractionResult{}, f.err
	}
	return f.result, nil
}

type fakeResponse struct {
	content string
	err     error
}

type fakeClient struct {
	responses []fakeResponse
	calls     int
	prompts   []llm.Prompt
}

func (f *fakeClient) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	f.prompts = append(f.prompts, p)
	i := f.calls
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	f.calls++
	r := f.responses[i]
	return r.content, r.err
}

func respond(contents ...string) []fakeResponse {
	out := make([]fakeResponse, 0, len(contents))
	for _, c := range contents {
		out = append(out, fakeResponse{content: c})
	}
	return out
}

const fullCompletion = `{
	"key_financial_metrics": ["Revenue grew 12%."],
	"risks_and_challenges": ["Concentration risk."],
	"strategic_initiatives": ["European expansion."],
	"significant_changes": ["CFO transition."]
}`

const emptyCompletion = `{"key_financial_metrics": [], "risks_and_challenges": [], "strategic_initiatives": [], "significant_changes": []}`

func newTestAnalyzer(cfg common.PipelineConfig, ex *fakeExtractor, cl *fakeClient) *Analyzer {
	return NewAnalyzer(cfg, ex, cl, testLogger())
}

func TestAnalyzeHappyPath(t *testing.T) {
	ex := &fakeExtractor{result: extract.TextExtractionResult{Text: "Revenue grew twelve percent.", Pages: 3}}
	cl := &fakeClient{responses: respond(fullCompletion)}
	a := newTestAnalyzer(common.PipelineConfig{MaxInputLen: 1000}, ex, cl)

	report, err := a.Analyze(context.Background(), entity.Document{Filename: "acme-10k.pdf"})
	require.NoError(t, err)

	assert.Equal(t, "acme-10k.pdf", report.Filename)
	assert.Equal(t, llm.StrictlyParsed, report.Outcome)
	assert.False(t, report.IsTruncated)
	assert.Equal(t, 3, report.Pages)
	assert.Equal(t, 1, report.Chunks)
	assert.Equal(t, []string{"Revenue grew 12%."}, report.Analysis.Items(constants.KeyFinancialMetrics))
	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, 1, cl.calls)
}

func TestAnalyzeTruncatesLongInput(t *testing.T) {
	ex := &fakeExtractor{result: extract.TextExtractionResult{Text: "aaaa bbbb cccc", Pages: 1}}
	cl := &fakeClient{responses: respond(fullCompletion)}
	a := newTestAnalyzer(common.PipelineConfig{MaxInputLen: 10}, ex, cl)

	report, err := a.Analyze(context.Background(), entity.Document{Filename: "long.pdf"})
	require.NoError(t, err)

	assert.True(t, report.IsTruncated)
	require.Len(t, cl.prompts, 1)
	assert.Equal(t, "aaaa bbbb", cl.prompts[0].User, "prompt must carry the bounded text")
}

func TestAnalyzeEmptyExtractionStillCallsModel(t *testing.T) {
	ex := &fakeExtractor{result: extract.TextExtractionResult{Text: "", Pages: 1}}
	cl := &fakeClient{responses: respond(emptyCompletion)}
	a := newTestAnalyzer(common.PipelineConfig{MaxInputLen: 1000}, ex, cl)

	report, err := a.Analyze(context.Background(), entity.Document{Filename: "blank.pdf"})
	require.NoError(t, err)

	assert.Equal(t, 1, cl.calls)
	assert.Equal(t, "", cl.prompts[0].User)
	assert.True(t, report.Analysis.IsEmpty())
	assert.False(t, report.IsTruncated)
}

func TestAnalyzeExtractFailureShortCircuits(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unsupported", common.UnsupportedFormat("not a PDF"), common.ErrUnsupportedFormat},
		{"extraction failed", common.ExtractionFailed("corrupt", nil), common.ErrExtractionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExtractor{err: tt.err}
			cl := &fakeClient{responses: respond(fullCompletion)}
			a := newTestAnalyzer(common.PipelineConfig{}, ex, cl)

			_, err := a.Analyze(context.Background(), entity.Document{Filename: "x.pdf"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, cl.calls, "the model must not be called after an extraction failure")
		})
	}
}

func TestAnalyzeModelErrorPropagatesUnchanged(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unavailable", common.ModelUnavailable("no completion after 3 attempts", nil), common.ErrModelUnavailable},
		{"rejected", common.ModelRejected("bad key", nil), common.ErrModelRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExtractor{result: extract.TextExtractionResult{Text: "some text"}}
			cl := &fakeClient{responses: []fakeResponse{{err: tt.err}}}
			a := newTestAnalyzer(common.PipelineConfig{}, ex, cl)

			_, err := a.Analyze(context.Background(), entity.Document{Filename: "x.pdf"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAnalyzeMalformedCompletion(t *testing.T) {
	ex := &fakeExtractor{result: extract.TextExtractionResult{Text: "some text"}}
	cl := &fakeClient{responses: respond("complete gibberish with no structure")}
	a := newTestAnalyzer(common.PipelineConfig{}, ex, cl)

	_, err := a.Analyze(context.Background(), entity.Document{Filename: "x.pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMalformedResponse)
}

func TestAnalyzeChunkedConsolidates(t *testing.T) {
	ex := &fakeExtractor{result: extract.TextExtractionResult{Text: "alpha beta gamma", Pages: 9}}
	cl := &fakeClient{responses: respond(
		`{"key_financial_metrics": ["Shared insight.", "From chunk one."]}`,
		`{"key_financial_metrics": ["SHARED INSIGHT.", "From chunk two."]}`,
		`{"risks_and_challenges": ["Only risk."]}`,
	)}
	a := newTestAnalyzer(common.PipelineConfig{MaxInputLen: 6, MaxChunks: 3}, ex, cl)

	report, err := a.Analyze(context.Background(), entity.Document{Filename: "big.pdf"})
	require.NoError(t, err)

	assert.Equal(t, 3, cl.calls)
	assert.Equal(t, 3, report.Chunks)
	assert.False(t, report.IsTruncated)
	assert.Equal(t,
		[]string{"Shared insight.", "From chunk one.", "From chunk two."},
		report.Analysis.Items(constants.KeyFinancialMetrics),
		"duplicates collapse case-insensitively, first occurrence wins")
	assert.Equal(t, []string{"Only risk."}, report.Analysis.Items(constants.RisksAndChallenges))
}

func TestAnalyzeChunkedReportsDiscardedTail(t *testing.T) {
	ex := &fakeExtractor{result: extract.TextExtractionResult{Text: "alpha beta gamma"}}
	cl := &fakeClient{responses: respond(emptyCompletion)}
	a := newTestAnalyzer(common.PipelineConfig{MaxInputLen: 6, MaxChunks: 2}, ex, cl)

	report, err := a.Analyze(context.Background(), entity.Document{Filename: "big.pdf"})
	require.NoError(t, err)

	assert.True(t, report.IsTruncated, "a third chunk's worth of text was dropped")
	assert.Equal(t, 2, report.Chunks)
	assert.Equal(t, 2, cl.calls)
}

func TestAnalyzeChunkedEmptyTextSkipsModel(t *testing.T) {
	ex := &fakeExtractor{result: extract.TextExtractionResult{Text: "   "}}
	cl := &fakeClient{responses: respond(emptyCompletion)}
	a := newTestAnalyzer(common.PipelineConfig{MaxInputLen: 100, MaxChunks: 4}, ex, cl)

	report, err := a.Analyze(context.Background(), entity.Document{Filename: "blank.pdf"})
	require.NoError(t, err)

	assert.Zero(t, cl.calls)
	assert.True(t, report.Analysis.IsEmpty())
	assert.Zero(t, report.Chunks)
}

func TestAnalyzeChunkedStopsOnFailedChunk(t *testing.T) {
	ex := &fakeExtractor{result: extract.TextExtractionResult{Text: "alpha beta gamma"}}
	cl := &fakeClient{responses: []fakeResponse{
		{content: emptyCompletion},
		{err: common.ModelUnavailable("backend gone", nil)},
	}}
	a := newTestAnalyzer(common.PipelineConfig{MaxInputLen: 6, MaxChunks: 3}, ex, cl)

	_, err := a.Analyze(context.Background(), entity.Document{Filename: "big.pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrModelUnavailable)
	assert.Equal(t, 2, cl.calls)
}

func TestAnalyzeChunkedLenientChunkTagsReport(t *testing.T) {
	ex := &fakeExtractor{result: extract.TextExtractionResult{Text: "alpha beta"}}
	cl := &fakeClient{responses: respond(
		emptyCompletion,
		"key financial metrics:\n- salvaged insight",
	)}
	a := newTestAnalyzer(common.PipelineConfig{MaxInputLen: 5, MaxChunks: 2}, ex, cl)

	report, err := a.Analyze(context.Background(), entity.Document{Filename: "big.pdf"})
	require.NoError(t, err)
	assert.Equal(t, llm.LenientlyRecovered, report.Outcome)
	assert.Equal(t, []string{"salvaged insight"}, report.Analysis.Items(constants.KeyFinancialMetrics))
}

func TestReportJSONShape(t *testing.T) {
	report := Report{
		Filename:    "acme-10k.pdf",
		Analysis:    entity.NewAnalysisResult(),
		IsTruncated: true,
		Outcome:     llm.LenientlyRecovered,
	}

	b, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "acme-10k.pdf", decoded["filename"])
	assert.Equal(t, true, decoded["is_truncated"])
	assert.Equal(t, "lenient", decoded["parse_outcome"])

	analysis, ok := decoded["analysis"].(map[string]any)
	require.True(t, ok)
	for _, key := range constants.CategoryKeys() {
		_, present := analysis[key]
		assert.True(t, present, "analysis must always carry %q", key)
	}
}
