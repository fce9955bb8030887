package ingestion

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePDF builds a minimal PDF with one Helvetica text page per entry.
// Lines of a page are shown with Tj and separated with T*; text must not
// contain parentheses or backslashes.
func writePDF(t *testing.T, dir string, pages ...string) string {
	t.Helper()

	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"", // page tree, filled below
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	var kids []string
	for _, text := range pages {
		pageID := len(objs) + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageID))

		var s strings.Builder
		s.WriteString("BT /F1 12 Tf 14 TL 72 720 Td")
		if text != "" {
			for i, line := range strings.Split(text, "\n") {
				if i > 0 {
					s.WriteString(" T*")
				}
				fmt.Fprintf(&s, " (%s) Tj", line)
			}
		}
		s.WriteString(" ET")

		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", pageID+1),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", s.Len(), s.String()),
		)
	}
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)

	path := filepath.Join(dir, "runbook.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestExtractTextFromPDF_PageSections(t *testing.T) {
	path := writePDF(t, t.TempDir(),
		"Payment retries\nThe retry job calls charge_card at most 3 times",
		"",
		"Rollback: redeploy the previous tag",
	)

	text, err := ExtractTextFromPDF(path)
	require.NoError(t, err)
	assert.Equal(t,
		"# page 1\nPayment retries\nThe retry job calls charge_card at most 3 times\n\n# page 3\nRollback: redeploy the previous tag",
		text)
}

func TestExtractText_DispatchesPDF(t *testing.T) {
	path := writePDF(t, t.TempDir(), "cart totals are rounded to cents")

	text, err := ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "# page 1\ncart totals are rounded to cents", text)
}

func TestExtractTextFromPDF_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("def f():\n    pass\n"), 0o644))

	_, err := ExtractTextFromPDF(path)
	assert.Error(t, err)
}

func TestIngester_IndexesPDFDocs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "cart.py"), []byte("def total(items):\n    return sum(items)\n"), 0o644))
	writePDF(t, root, "total must ignore refunded items")

	idx := &recordingIndex{}
	in := NewIngester(idx, root, nil)
	in.Suffixes = []string{".py", ".pdf"}

	rep, err := in.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Files)
	assert.True(t, rep.Indexed)

	var paths []string
	for _, c := range idx.chunks {
		paths = append(paths, c.Path)
	}
	assert.ElementsMatch(t, []string{"cart.py", "runbook.pdf"}, paths)
}
