package processing

import (
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// pythonSeparators split at class and function boundaries before falling
// back to blank lines, lines, words and characters.
var pythonSeparators = []string{"\nclass ", "\ndef ", "\n\tdef ", "\n\n", "\n", " ", ""}

var ErrInvalidChunking = errors.New("invalid chunk size or overlap")

// ChunkText splits source into pieces of at most size characters, with up
// to overlap characters repeated between neighbours.
func ChunkText(text string, size, overlap int) ([]string, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunking, size, overlap)
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators(pythonSeparators),
		textsplitter.WithKeepSeparator(true),
	)
	chunks, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}
	out := chunks[:0]
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}
