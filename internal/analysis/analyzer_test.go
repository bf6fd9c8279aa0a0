package analysis

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/YusovID/pr-analytics-service/internal/apperrors"
	"github.com/YusovID/pr-analytics-service/internal/config"
	"github.com/YusovID/pr-analytics-service/internal/domain"
	"github.com/YusovID/pr-analytics-service/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validAnswer = `Here is the analysis:
{
  "complexity": {"level": "M", "explanation": "several modules"},
  "code_rating": {"score": 7, "explanation": "readable"},
  "issues": [{"type": "warning", "description": "missing tests"}],
  "antipatterns": [{"name": "god object"}],
  "positive_aspects": ["clear naming"]
}
Hope this helps.`

var connRefused = &apperrors.TransportError{Op: "test", Err: errors.New("connection refused")}

func newTestAnalyzer(t *testing.T, llm Completer, maxChars int) *Analyzer {
	t.Helper()

	return NewAnalyzer(llm, testPrompts(t), config.Analysis{
		MaxCodeChars: maxChars,
		CIPaths:      []string{".github/workflows/", ".gitlab-ci.yml", "Jenkinsfile"},
	}, config.Retry{MaxAttempts: 3}, discardLogger())
}

func TestAnalyzer_Analyze(t *testing.T) {
	llm := &stubCompleter{answers: []stubAnswer{{content: validAnswer}}}

	out := newTestAnalyzer(t, llm, 1000).Analyze(context.Background(), Source{
		Paths: []string{"main.go"},
		Code:  "package main",
	})

	require.Equal(t, Success, out.Kind)
	require.NoError(t, out.Err)
	assert.Equal(t, "M", out.Value.Complexity.Level)
	assert.Equal(t, 7.0, out.Value.CodeRating.Score)
	assert.Equal(t, []domain.Antipattern{{Name: "god object"}}, out.Value.Antipatterns)

	require.Equal(t, 1, llm.calls())
	assert.Contains(t, llm.prompts[0], "```code\npackage main\n```")
}

func TestAnalyzer_RetriesConnectionFailures(t *testing.T) {
	t.Run("Two failures then success", func(t *testing.T) {
		llm := &stubCompleter{answers: []stubAnswer{{err: connRefused}, {err: connRefused}, {content: validAnswer}}}

		out := newTestAnalyzer(t, llm, 1000).Analyze(context.Background(), Source{Code: "x := 1"})

		assert.Equal(t, Success, out.Kind)
		assert.Equal(t, 3, llm.calls())
	})

	t.Run("Always failing degrades after three attempts", func(t *testing.T) {
		llm := &stubCompleter{answers: []stubAnswer{{err: connRefused}}}

		out := newTestAnalyzer(t, llm, 1000).Analyze(context.Background(), Source{Code: "x := 1"})

		assert.Equal(t, Degraded, out.Kind)
		assert.Equal(t, 3, llm.calls())
		assert.True(t, out.Value.IsEmpty())
		assert.ErrorIs(t, out.Err, retry.ErrAttemptsExhausted)
	})

	t.Run("HTTP error is not retried", func(t *testing.T) {
		llm := &stubCompleter{answers: []stubAnswer{{err: &apperrors.TransportError{
			Op: "test", StatusCode: http.StatusBadRequest, Err: errors.New("context too long"),
		}}}}

		out := newTestAnalyzer(t, llm, 1000).Analyze(context.Background(), Source{Code: "x := 1"})

		assert.Equal(t, Degraded, out.Kind)
		assert.Equal(t, 1, llm.calls())
		assert.NotNil(t, out.Value)
	})
}

func TestAnalyzer_ParseFailure(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "No JSON", content: "I cannot analyze this code."},
		{name: "Broken JSON", content: `{"complexity": {"level": }`},
		{name: "Closing brace before opening", content: "} nothing {"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			llm := &stubCompleter{answers: []stubAnswer{{content: tc.content}}}

			out := newTestAnalyzer(t, llm, 1000).Analyze(context.Background(), Source{Code: "x"})

			assert.Equal(t, Failure, out.Kind)
			assert.Nil(t, out.Value)
			assert.ErrorIs(t, out.Err, apperrors.ErrParse)
		})
	}
}

func TestAnalyzer_SkipsCIOnlyChanges(t *testing.T) {
	testCases := []struct {
		name       string
		paths      []string
		expectCall bool
	}{
		{name: "Workflow only", paths: []string{".github/workflows/ci.yml"}, expectCall: false},
		{name: "Several CI files", paths: []string{".gitlab-ci.yml", "Jenkinsfile"}, expectCall: false},
		{name: "CI and code", paths: []string{".github/workflows/ci.yml", "main.go"}, expectCall: true},
		{name: "Nested file with CI name", paths: []string{"docs/Jenkinsfile"}, expectCall: true},
		{name: "No paths known", paths: nil, expectCall: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			llm := &stubCompleter{answers: []stubAnswer{{content: validAnswer}}}

			out := newTestAnalyzer(t, llm, 1000).Analyze(context.Background(), Source{Paths: tc.paths, Code: "steps:"})

			assert.Equal(t, Success, out.Kind)

			if tc.expectCall {
				assert.Equal(t, 1, llm.calls())
			} else {
				assert.Equal(t, 0, llm.calls())
				assert.True(t, out.Value.IsEmpty())
			}
		})
	}
}

func TestAnalyzer_Truncate(t *testing.T) {
	a := newTestAnalyzer(t, &stubCompleter{}, 5)

	assert.Equal(t, "short", a.truncate("short"))
	assert.Equal(t, "longe"+TruncationMarker, a.truncate("longer text"))
	assert.Equal(t, "приве"+TruncationMarker, a.truncate("приветствие"))

	llm := &stubCompleter{answers: []stubAnswer{{content: validAnswer}}}
	_ = newTestAnalyzer(t, llm, 5).Analyze(context.Background(), Source{Code: strings.Repeat("a", 10)})
	require.Equal(t, 1, llm.calls())
	assert.Contains(t, llm.prompts[0], "aaaaa"+TruncationMarker)
	assert.NotContains(t, llm.prompts[0], "aaaaaa")
}
