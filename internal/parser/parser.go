// Package parser picks an importer for a source document by file
// extension.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gompdf/pageflow/internal/document"
	"github.com/gompdf/pageflow/internal/parser/css"
	"github.com/gompdf/pageflow/internal/parser/docx"
	"github.com/gompdf/pageflow/internal/parser/html"
	"github.com/gompdf/pageflow/internal/parser/markdown"
)

// Source is an imported document plus any stylesheets it carried.
type Source struct {
	Doc    *document.Document
	Styles []*css.Stylesheet
}

// Parser converts raw document bytes into a Source.
type Parser interface {
	Parse(r io.Reader, filename string) (*Source, error)
}

// SupportedExtensions lists file extensions that can be imported.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return docParser{markdown.NewParser()}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".docx":
		return docParser{&docx.Parser{}}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

type documentParser interface {
	Parse(r io.Reader, filename string) (*document.Document, error)
}

// docParser adapts importers that carry no stylesheets.
type docParser struct {
	p documentParser
}

func (d docParser) Parse(r io.Reader, filename string) (*Source, error) {
	doc, err := d.p.Parse(r, filename)
	if err != nil {
		return nil, err
	}
	return &Source{Doc: doc}, nil
}

// HTMLParser handles HTML files and keeps their <style> sheets.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Source, error) {
	parsed, err := html.NewParser().Parse(r)
	if err != nil {
		return nil, err
	}
	if parsed.Doc.Title == "" {
		parsed.Doc.Title = strings.TrimSuffix(strings.TrimSuffix(filename, ".html"), ".htm")
	}
	return &Source{Doc: parsed.Doc, Styles: parsed.Styles}, nil
}
