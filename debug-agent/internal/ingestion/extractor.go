package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrUnsupportedFile = errors.New("unsupported file type")

// ExtractText returns the text of a source, text or PDF file.
func ExtractText(path string) (string, error) {
	if strings.ToLower(filepath.Ext(path)) == ".pdf" {
		return ExtractTextFromPDF(path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if bytes.IndexByte(b, 0) >= 0 {
		return "", fmt.Errorf("%w: %s looks binary", ErrUnsupportedFile, path)
	}
	return string(b), nil
}
