package analysis

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubCompleter replays answers in order and repeats the last one.
type stubCompleter struct {
	mu      sync.Mutex
	answers []stubAnswer
	prompts []string
}

type stubAnswer struct {
	content string
	err     error
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := len(s.prompts)
	if i >= len(s.answers) {
		i = len(s.answers) - 1
	}

	s.prompts = append(s.prompts, prompt)

	return s.answers[i].content, s.answers[i].err
}

func (s *stubCompleter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.prompts)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPrompts(t *testing.T) *Prompts {
	t.Helper()

	p, err := LoadPrompts("")
	require.NoError(t, err)

	return p
}
