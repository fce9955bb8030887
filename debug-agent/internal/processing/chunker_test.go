package processing

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_SmallFileIsOneChunk(t *testing.T) {
	src := "def add(a, b):\n    return a + b\n"
	chunks, err := ChunkText(src, DefaultChunkSize, DefaultChunkOverlap)
	require.NoError(t, err)
	assert.Equal(t, []string{strings.TrimSpace(src)}, chunks)
}

func TestChunkText_SplitsAtDefinitions(t *testing.T) {
	var b strings.Builder
	b.WriteString("import os\n")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "\ndef handler_%02d(request):\n    value = request.get('field_%02d')\n    if value is None:\n        return None\n    return str(value).strip()\n", i, i)
	}
	src := b.String()

	chunks, err := ChunkText(src, DefaultChunkSize, DefaultChunkOverlap)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), DefaultChunkSize)
		assert.NotEmpty(t, c)
	}
	assert.True(t, strings.HasPrefix(chunks[0], "import os"))
	for i := 1; i < len(chunks); i++ {
		assert.True(t, strings.HasPrefix(chunks[i], "def handler_"), "chunk %d starts mid-function: %q", i, chunks[i])
	}

	joined := strings.Join(chunks, "\n")
	for i := 0; i < 12; i++ {
		assert.Contains(t, joined, fmt.Sprintf("def handler_%02d(request):", i))
	}
}

func TestChunkText_Empty(t *testing.T) {
	chunks, err := ChunkText("   \n\n", DefaultChunkSize, DefaultChunkOverlap)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkText_InvalidSizes(t *testing.T) {
	for _, tc := range [][2]int{{0, 0}, {100, -1}, {100, 100}, {50, 80}} {
		_, err := ChunkText("x", tc[0], tc[1])
		assert.ErrorIs(t, err, ErrInvalidChunking, "size=%d overlap=%d", tc[0], tc[1])
	}
}

func TestNewChunks(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	chunks := NewChunks("auth.py", []string{"a", "b"}, at)
	require.Len(t, chunks, 2)

	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, "auth.py", chunks[1].Path)
	assert.Equal(t, "b", chunks[1].Content)
	assert.Equal(t, at, chunks[0].ImportedAt)
	assert.NotEqual(t, chunks[0].ID, chunks[1].ID)

	// Stable across runs.
	assert.Equal(t, ChunkID("auth.py", 1), chunks[1].ID)
	assert.NotEqual(t, ChunkID("auth.py", 1), ChunkID("ecommerce.py", 1))
}
