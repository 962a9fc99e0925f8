package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDocumentHTML(t *testing.T) {
	html := `<html><head><title>Paper</title><script>ignore()</script></head>
<body>
<nav>menu</nav>
<p>Section: Quant</p>
<p>Q. 1) What is 2 + 2?</p>
<p>a) Three</p>
<p>b) Four</p>
<p>c) Five</p>
<p>d) Six</p>
</body></html>`

	dir := t.TempDir()
	path := filepath.Join(dir, "CAT-2022-Slot-1.html")
	require.NoError(t, os.WriteFile(path, []byte(html), 0644))

	doc, err := LoadDocument(path, "CAT")
	require.NoError(t, err)
	assert.Equal(t, "CAT-2022-Slot-1.html", doc.Name)
	assert.NotContains(t, doc.Content, "ignore()")
	assert.NotContains(t, doc.Content, "menu")

	// The flattened HTML parses with the same grammar as plain text.
	questions, report := Normalize(doc)
	require.NoError(t, report.Err)
	require.Len(t, questions, 1)
	assert.Equal(t, "What is 2 + 2?", questions[0].QuestionText)
	assert.Len(t, questions[0].Options, 4)
}

func TestLoadDirFiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CAT-2024-Slot-1.txt"), []byte("Section: VARC\nQ. 1) x?\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.pdf"), []byte("binary"), 0644))

	docs, err := LoadDir(dir, "CAT")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "CAT-2024-Slot-1.txt", docs[0].Name)
}
