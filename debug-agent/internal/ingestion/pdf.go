package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	pdf "github.com/ledongthuc/pdf"
)

const pdftotextTimeout = 30 * time.Second

// ExtractTextFromPDF reads design docs and runbooks shipped next to the code.
// Each page with a text layer becomes a "# page N" section so a retrieved
// chunk still says where it came from. When no page has a text layer the
// pdftotext tool is tried; without it the document yields no text.
func ExtractTextFromPDF(path string) (string, error) {
	file, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer file.Close()

	fonts := make(map[string]*pdf.Font)
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("reading page %d of %s: %w", i, path, err)
		}
		if text = strings.TrimSpace(text); text == "" {
			continue
		}
		fmt.Fprintf(&b, "# page %d\n%s\n\n", i, text)
	}
	if b.Len() > 0 {
		return strings.TrimSpace(b.String()), nil
	}
	return pdftotext(path)
}

func pdftotext(path string) (string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), pdftotextTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-").Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("pdftotext %s: %s", path, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("pdftotext %s: %w", path, err)
	}
	return strings.TrimSpace(string(out)), nil
}
