package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdfjson/internal/common"
)

// buildPDF writes a minimal PDF with one page per entry. A non-empty entry is
// drawn as a Helvetica text line; an empty entry becomes a page with no
// content stream, which is what an image-only scan looks like to a text parser.
func buildPDF(t *testing.T, pageTexts ...string) string {
	t.Helper()

	var objs []string
	// 1: catalog, 2: pages, 3: font; page objects follow.
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>", "", "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var kids []string
	for _, txt := range pageTexts {
		pageNum := len(objs) + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageNum))
		if txt == "" {
			objs = append(objs, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
			continue
		}
		contentNum := pageNum + 1
		objs = append(objs, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentNum))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", txt)
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pageTexts))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)

	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestDocumentPages(t *testing.T) {
	path := buildPDF(t, "Hello page one", "", "Third page")

	doc, err := Open(path)
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, path, doc.Path())
	require.Equal(t, 3, doc.NumPages())

	first, err := doc.PageText(0)
	require.NoError(t, err)
	assert.Contains(t, first, "Hello page one")

	scanned, err := doc.PageText(1)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(scanned))

	third, err := doc.PageText(2)
	require.NoError(t, err)
	assert.Contains(t, third, "Third page")
}

func TestDocumentPageOutOfRange(t *testing.T) {
	doc, err := Open(buildPDF(t, "only"))
	require.NoError(t, err)
	defer doc.Close()

	_, err = doc.PageText(1)
	assert.Error(t, err)
	_, err = doc.PageText(-1)
	assert.Error(t, err)
}

func TestOpenFailures(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrOpenDocument))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	garbage := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a pdf"), 0o644))
	_, err = Open(garbage)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrOpenDocument))
}

func TestCloseTwice(t *testing.T) {
	doc, err := Open(buildPDF(t, "x"))
	require.NoError(t, err)
	assert.NoError(t, doc.Close())
	assert.NoError(t, doc.Close())
}

func TestPageTextKeepsLineBreaks(t *testing.T) {
	doc, err := Open(buildPDF(t,
		"Line one) Tj 0 -20 Td (Line two",
		"Left) Tj 200 0 Td (Right",
	))
	require.NoError(t, err)
	defer doc.Close()

	lines, err := doc.PageText(0)
	require.NoError(t, err)
	assert.Equal(t, "Line one\nLine two\n", lines)

	cells, err := doc.PageText(1)
	require.NoError(t, err)
	assert.Equal(t, "Left Right\n", cells)
}

func TestOpenFailureReleasesFile(t *testing.T) {
	if _, err := os.Stat("/proc/self/fd"); err != nil {
		t.Skip("no /proc/self/fd")
	}
	countFDs := func() int {
		entries, err := os.ReadDir("/proc/self/fd")
		require.NoError(t, err)
		return len(entries)
	}

	bad := filepath.Join(t.TempDir(), "bad.pdf")
	body := "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\nstartxref\n9\n%%EOF\n"
	require.NoError(t, os.WriteFile(bad, []byte(body), 0o644))

	before := countFDs()
	for i := 0; i < 20; i++ {
		_, err := Open(bad)
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrOpenDocument))
	}
	assert.Equal(t, before, countFDs())
}
