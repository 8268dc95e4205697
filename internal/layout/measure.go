package layout

import (
	"sync"

	"codeberg.org/go-pdf/fpdf"

	"github.com/gompdf/pageflow/internal/text"
)

// Singleton PDF instance for text measurement using go-pdf/fpdf metrics
var (
	measureOnce sync.Once
	measurePDF  *fpdf.Fpdf
	measureTr   func(string) string
	measureMu   sync.Mutex
	// widths caches advances at size 1, keyed by font and rune.
	widths = make(map[widthKey]float64)
)

type widthKey struct {
	font string
	r    rune
}

func initMeasurePDF() {
	measurePDF = fpdf.New("P", "pt", "", "")
	measurePDF.SetFont("Helvetica", "", 1)
	measureTr = measurePDF.UnicodeTranslatorFromDescriptor("")
}

// FontStyle returns the fpdf style string of a font.
func FontStyle(f *text.Font) string {
	s := ""
	if f.Bold {
		s += "B"
	}
	if f.Italic {
		s += "I"
	}
	return s
}

// MeasureRune returns the advance of r in pixels using the core font
// metrics. Runes outside cp1252 measure like '?'.
func MeasureRune(r rune, f *text.Font) float64 {
	if f.Size <= 0 || r == '\n' {
		return 0
	}
	measureOnce.Do(initMeasurePDF)
	family := f.Family
	if family == "" {
		family = "Helvetica"
	}
	key := widthKey{font: family + FontStyle(f), r: r}

	measureMu.Lock()
	defer measureMu.Unlock()
	w, ok := widths[key]
	if !ok {
		measurePDF.SetFont(family, FontStyle(f), 1)
		w = measurePDF.GetStringWidth(measureTr(string(r)))
		widths[key] = w
	}
	return w * f.Size
}
