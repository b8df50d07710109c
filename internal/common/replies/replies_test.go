package replies

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(c.Greeting.For(FormatTagged), "<hello>"))
	assert.True(t, strings.HasPrefix(c.Farewell.For(FormatTagged), "<bye>"))
	assert.NotContains(t, c.Greeting.For(FormatPlain), "<hello>")

	sections := []string{
		"1. Current Conditions:",
		"2. Historic Trends:",
		"3. Future Predictions:",
		"4. Risk Assessment:",
		"5. Economic Impact:",
		"6. Summary & Recommendations:",
	}
	for _, s := range sections {
		assert.Contains(t, c.Fallbacks.Synthesis.Plain, s)
	}

	for _, tag := range []string{"current", "history", "future", "risk", "economy", "summary"} {
		assert.Contains(t, c.Fallbacks.Synthesis.Tagged, "<"+tag+">")
		assert.Contains(t, c.Fallbacks.Synthesis.Tagged, "</"+tag+">")
	}

	assert.Contains(t, c.Fallbacks.Business, "0-6 months")
	assert.Contains(t, c.Fallbacks.Climate, "KEY HAZARDS")
}

func TestVariant_For(t *testing.T) {
	tests := []struct {
		name   string
		v      Variant
		format string
		want   string
	}{
		{"plain", Variant{Plain: "p", Tagged: "t"}, FormatPlain, "p"},
		{"tagged", Variant{Plain: "p", Tagged: "t"}, FormatTagged, "t"},
		{"tagged missing", Variant{Plain: "p"}, FormatTagged, "p"},
		{"unknown format", Variant{Plain: "p", Tagged: "t"}, "html", "p"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.For(tt.format))
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Parse([]byte("greeting: [unclosed"))
		require.Error(t, err)
	})

	t.Run("missing fallback", func(t *testing.T) {
		_, err := Parse([]byte(`
greeting: {plain: hi}
farewell: {plain: bye}
clarify: {plain: where?}
fallbacks:
  climate: c
  synthesis: {plain: s}
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fallbacks.business")
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.yaml")
	require.NoError(t, os.WriteFile(path, defaultCatalog, 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, c.Clarify.Plain)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
