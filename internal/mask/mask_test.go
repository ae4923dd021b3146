package mask

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskUnmaskRoundTrip(t *testing.T) {
	m := New([]string{"API", "server", "cloud"})

	cases := []string{
		"The API returns JSON.",
		"the api, the Server and the CLOUD",
		"no protected terms here",
		"API at start and cloud at end cloud",
		"",
	}
	for _, text := range cases {
		// With an identity transform between Mask and Unmask, the
		// round trip must reproduce the input exactly.
		assert.Equal(t, text, m.Unmask(m.Mask(text)), "input %q", text)
	}
}

func TestMaskWrapsTerms(t *testing.T) {
	m := New([]string{"API"})
	assert.Equal(t, "call the __API__ now", m.Mask("call the API now"))
	// Case is preserved inside the markers.
	assert.Equal(t, "__api__", m.Mask("api"))
}

func TestMaskWordBoundaries(t *testing.T) {
	m := New([]string{"API"})
	assert.Equal(t, "APIs stay untouched", m.Mask("APIs stay untouched"))
}

func TestMaskEmptyTermSet(t *testing.T) {
	m := New(nil)
	assert.Equal(t, "anything", m.Mask("anything"))
	assert.Equal(t, "anything", m.Unmask("anything"))
}

func TestMaskRegexMetaTerms(t *testing.T) {
	m := New([]string{"C++"})
	masked := m.Mask("I write C++ daily")
	assert.Equal(t, "I write C++ daily", m.Unmask(masked))
}

func TestLoadTerms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.txt")
	require.NoError(t, os.WriteFile(path, []byte("API\n\n  server  \ncloud\n"), 0644))

	terms, err := LoadTerms(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"API", "server", "cloud"}, terms)
}

func TestLoadTermsMissingFallsBack(t *testing.T) {
	terms, err := LoadTerms(filepath.Join(t.TempDir(), "missing.txt"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTerms, terms)
}
