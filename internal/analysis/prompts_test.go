package analysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrompts(t *testing.T) {
	t.Run("Embedded", func(t *testing.T) {
		p, err := LoadPrompts("")
		require.NoError(t, err)

		out, err := p.renderAnalyze("fmt.Println()")
		require.NoError(t, err)
		assert.Contains(t, out, `"positive_aspects"`)
		assert.Contains(t, out, "fmt.Println()")

		out, err = p.renderAggregate(`[{"pr_info": {}}]`)
		require.NoError(t, err)
		assert.Contains(t, out, "do not name methods, classes, files")
	})

	t.Run("Override directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, analyzeTemplate), []byte("A: {{ .Code }}"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, aggregateTemplate), []byte("B: {{ .Data }}"), 0o600))

		p, err := LoadPrompts(dir)
		require.NoError(t, err)

		out, err := p.renderAnalyze("x")
		require.NoError(t, err)
		assert.Equal(t, "A: x", out)
	})

	t.Run("Missing template", func(t *testing.T) {
		_, err := LoadPrompts(t.TempDir())
		assert.Error(t, err)
	})
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "degraded", Degraded.String())
	assert.Equal(t, "failed", Failure.String())
}
