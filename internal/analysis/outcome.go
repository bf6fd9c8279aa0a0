// Package analysis turns reconstructed PR code into structured judgments and
// folds those judgments into a cross-repository summary, both through an
// OpenAI-compatible inference backend.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/YusovID/pr-analytics-service/internal/apperrors"
)

// Kind tells how an inference-backed step ended.
type Kind int

const (
	// Success carries a real result.
	Success Kind = iota
	// Degraded carries a usable fallback after the backend could not be reached.
	Degraded
	// Failure carries no usable value.
	Failure
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Degraded:
		return "degraded"
	default:
		return "failed"
	}
}

// Outcome is a value together with how it was obtained. Err is set for Degraded
// and Failure.
type Outcome[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

func succeeded[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: Success, Value: v}
}

func degraded[T any](v T, err error) Outcome[T] {
	return Outcome[T]{Kind: Degraded, Value: v, Err: err}
}

func failed[T any](err error) Outcome[T] {
	var zero T
	return Outcome[T]{Kind: Failure, Value: zero, Err: err}
}

// Completer sends one prompt to the inference backend and returns the raw answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// decodeAnswer parses the JSON object embedded in a model answer, taken from the
// first '{' to the last '}'.
func decodeAnswer(content string, v any) error {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")

	if start < 0 || end < start {
		return fmt.Errorf("%w: no JSON object in answer", apperrors.ErrParse)
	}

	if err := json.Unmarshal([]byte(content[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrParse, err)
	}

	return nil
}
