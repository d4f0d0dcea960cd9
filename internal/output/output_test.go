package output

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAll(t *testing.T, s Sink, recs ...PageRecord) {
	t.Helper()
	require.NoError(t, s.Begin())
	for _, r := range recs {
		require.NoError(t, s.WritePage(r))
	}
}

func TestJSONWriterLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w := NewJSONWriter(path)
	writeAll(t, w,
		PageRecord{PageNumber: 1, StructuredText: "Hello"},
		PageRecord{PageNumber: 2, OCRText: "Scanned", OCRApplied: true},
	)
	require.NoError(t, w.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)

	want := "{\n  \"pages\": [\n" +
		"{\n    \"page_number\": 1,\n    \"structured_text\": \"Hello\",\n    \"ocr_text\": \"\"\n}" +
		",\n" +
		"{\n    \"page_number\": 2,\n    \"structured_text\": \"\",\n    \"ocr_text\": \"Scanned\"\n}" +
		"\n  ]\n}\n"
	assert.Equal(t, want, string(got))
}

func TestJSONWriterEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w := NewJSONWriter(path)
	require.NoError(t, w.Begin())
	require.NoError(t, w.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"pages\": [\n\n  ]\n}\n", string(got))

	var doc map[string][]PageRecord
	require.NoError(t, json.Unmarshal(got, &doc))
	assert.Empty(t, doc["pages"])
}

func TestJSONWriterNoEscaping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w := NewJSONWriter(path)
	writeAll(t, w, PageRecord{PageNumber: 1, StructuredText: "Größe <b> & café ✓"})
	require.NoError(t, w.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(got), `"structured_text": "Größe <b> & café ✓"`)

	var doc struct {
		Pages []PageRecord `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(got, &doc))
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, "Größe <b> & café ✓", doc.Pages[0].StructuredText)
}

func TestMarshalRecordLineSeparators(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"line separator", "a\u2028b", `"a` + "\u2028" + `b"`},
		{"paragraph separator", "a\u2029b", `"a` + "\u2029" + `b"`},
		{"escaped backslash before", "\\\u2028", `"\\` + "\u2028" + `"`},
		{"literal escape text", `\u2028`, `"\\u2028"`},
		{"newline still escaped", "a\nb", `"a\nb"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := marshalRecord(PageRecord{PageNumber: 1, OCRText: tt.text}, "")
			require.NoError(t, err)
			assert.Equal(t, `{"page_number":1,"structured_text":"","ocr_text":`+tt.want+`}`, string(b))

			var back PageRecord
			require.NoError(t, json.Unmarshal(b, &back))
			assert.Equal(t, tt.text, back.OCRText)
		})
	}
}

func TestJSONWriterAbortLeavesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w := NewJSONWriter(path)
	writeAll(t, w, PageRecord{PageNumber: 1, StructuredText: "a"})
	require.NoError(t, w.Abort())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(got), "{\n  \"pages\": [\n{"))
	assert.False(t, strings.HasSuffix(string(got), "]\n}\n"))
	assert.False(t, json.Valid(got))

	// ending twice is harmless
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Abort())
}

func TestJSONWriterRequiresBegin(t *testing.T) {
	w := NewJSONWriter(filepath.Join(t.TempDir(), "out.json"))
	assert.Error(t, w.WritePage(PageRecord{PageNumber: 1}))
}

func TestJSONWriterCreateFails(t *testing.T) {
	w := NewJSONWriter(filepath.Join(t.TempDir(), "missing", "out.json"))
	assert.Error(t, w.Begin())
}

func TestJSONLWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	w := NewJSONLWriter(path)
	writeAll(t, w,
		PageRecord{PageNumber: 1, StructuredText: "x<y"},
		PageRecord{PageNumber: 2, OCRText: "z", OCRApplied: true},
	)
	require.NoError(t, w.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		`{"page_number":1,"structured_text":"x<y","ocr_text":""}`+"\n"+
			`{"page_number":2,"structured_text":"","ocr_text":"z"}`+"\n",
		string(got))
}

func TestPageRecordMethod(t *testing.T) {
	assert.Equal(t, "pdf-text", PageRecord{}.Method())
	assert.Equal(t, "pdf-ocr", PageRecord{OCRApplied: true}.Method())
}

type recordingSink struct {
	name     string
	log      *[]string
	beginErr error
	writeErr error
}

func (r *recordingSink) Begin() error {
	*r.log = append(*r.log, r.name+".begin")
	return r.beginErr
}

func (r *recordingSink) WritePage(PageRecord) error {
	*r.log = append(*r.log, r.name+".write")
	return r.writeErr
}

func (r *recordingSink) Close() error {
	*r.log = append(*r.log, r.name+".close")
	return nil
}

func (r *recordingSink) Abort() error {
	*r.log = append(*r.log, r.name+".abort")
	return nil
}

func TestMultiSinkFansOutInOrder(t *testing.T) {
	var log []string
	m := MultiSink{&recordingSink{name: "a", log: &log}, &recordingSink{name: "b", log: &log}}

	require.NoError(t, m.Begin())
	require.NoError(t, m.WritePage(PageRecord{PageNumber: 1}))
	require.NoError(t, m.Close())

	assert.Equal(t, []string{"a.begin", "b.begin", "a.write", "b.write", "a.close", "b.close"}, log)
}

func TestMultiSinkBeginFailureAbortsStarted(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	m := MultiSink{
		&recordingSink{name: "a", log: &log},
		&recordingSink{name: "b", log: &log, beginErr: boom},
		&recordingSink{name: "c", log: &log},
	}

	err := m.Begin()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a.begin", "b.begin", "a.abort"}, log)
}

func TestMultiSinkWriteStopsAtFirstError(t *testing.T) {
	var log []string
	boom := errors.New("disk full")
	m := MultiSink{
		&recordingSink{name: "a", log: &log, writeErr: boom},
		&recordingSink{name: "b", log: &log},
	}

	require.NoError(t, m.Begin())
	require.ErrorIs(t, m.WritePage(PageRecord{PageNumber: 1}), boom)
	require.NoError(t, m.Abort())
	assert.Equal(t, []string{"a.begin", "b.begin", "a.write", "a.abort", "b.abort"}, log)
}
