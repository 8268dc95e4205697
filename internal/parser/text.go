package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/gompdf/pageflow/internal/document"
)

// TextParser handles plain text. Blank lines separate paragraphs; single
// newlines inside a paragraph are kept as hard breaks.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Source, error) {
	doc := document.New()
	doc.Title = strings.TrimSuffix(filename, ".txt")

	var para []string
	flush := func() {
		if len(para) > 0 {
			doc.Blocks = append(doc.Blocks, document.NewParagraph(strings.Join(para, "\n")))
			para = para[:0]
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" {
			flush()
			continue
		}
		para = append(para, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	flush()
	return &Source{Doc: doc}, nil
}
