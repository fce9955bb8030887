package processing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// chunkNamespace keeps chunk ids stable across re-indexing runs.
var chunkNamespace = uuid.MustParse("6f1c1e1a-3b7e-4c55-9d0c-2f9b8a4f7e11")

// Chunk is one indexed piece of a source file.
type Chunk struct {
	ID         string
	Path       string
	Index      int
	Content    string
	ImportedAt time.Time
}

// NewChunks wraps the pieces of one file, numbering them from zero.
func NewChunks(path string, pieces []string, at time.Time) []Chunk {
	out := make([]Chunk, 0, len(pieces))
	for i, p := range pieces {
		out = append(out, Chunk{
			ID:         ChunkID(path, i),
			Path:       path,
			Index:      i,
			Content:    p,
			ImportedAt: at,
		})
	}
	return out
}

// ChunkID is a UUID derived from path and position.
func ChunkID(path string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s#%d", path, index))).String()
}
