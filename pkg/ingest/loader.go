package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LoadDocument reads one source file into a Document. HTML sources are
// flattened to line-oriented text so the grammars see the same shape as
// plain-text extractions.
func LoadDocument(path, examType string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("error reading source file: %v", err)
	}

	name := filepath.Base(path)
	content := string(data)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		content, err = htmlToText(content)
		if err != nil {
			return Document{}, fmt.Errorf("error extracting text from %s: %v", name, err)
		}
	}

	return Document{
		Name:     name,
		ExamType: examType,
		Content:  content,
	}, nil
}

// LoadDir loads every .txt/.html file under dir, non-recursively.
func LoadDir(dir, examType string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading source directory: %v", err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".txt", ".html", ".htm":
		default:
			continue
		}

		doc, err := LoadDocument(filepath.Join(dir, entry.Name()), examType)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// htmlToText extracts text from an HTML source, emitting one line per block
// element so question and option markers keep their line positions.
func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, nav, header, footer").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var sb strings.Builder
	blocks := root.Find("p, li, div, td, h1, h2, h3, h4, h5, h6")
	if blocks.Length() == 0 {
		return root.Text(), nil
	}

	blocks.Each(func(_ int, sel *goquery.Selection) {
		// Skip containers whose text is already emitted by a child block.
		if sel.Find("p, li, div, td").Length() > 0 {
			return
		}
		line := strings.TrimSpace(sel.Text())
		if line != "" {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	})

	return sb.String(), nil
}
