// Package pdf exports a paginated document through fpdf. Pages break at the
// divider positions of the overlay, so the printed sheets match the pages
// the editor shows.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/go-pdf/fpdf"

	"github.com/gompdf/pageflow/internal/document"
	"github.com/gompdf/pageflow/internal/layout"
	"github.com/gompdf/pageflow/internal/pagination"
	"github.com/gompdf/pageflow/internal/text"
)

// ptPerPx converts layout pixels (96dpi) to PDF points (72dpi).
const ptPerPx = 72.0 / pagination.PxPerInch

// contentBottom is the lowest y a line may reach on a sheet.
const contentBottom = pagination.PageHeight - pagination.Margin

// ImageSource supplies image data PDF writers can embed.
type ImageSource interface {
	PDFImage(ctx context.Context, src string) ([]byte, string, error)
}

// RenderOptions contains options for rendering
type RenderOptions struct {
	Title    string
	Author   string
	Subject  string
	Keywords string
	Creator  string
	Producer string
}

// Stats describes one rendered document.
type Stats struct {
	Pages int
	// FallbackBreaks counts sheets started because content overflowed
	// rather than at a divider.
	FallbackBreaks int
}

// Renderer handles rendering to PDF
type Renderer struct {
	// Images resolves image sources; nil renders images as their alt text.
	Images ImageSource
	// DrawBoxes outlines every block box.
	DrawBoxes bool

	log *slog.Logger
}

// NewRenderer creates a new PDF renderer
func NewRenderer(images ImageSource, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Renderer{Images: images, log: log}
}

// page tracks the sheet being filled.
type page struct {
	pdf     *fpdf.Fpdf
	tr      func(string) string
	y       float64
	stats   Stats
	ordinal []int
}

// Render writes frame to w as PDF, starting a new sheet at each divider of
// overlay. The frame must be laid out without screen widgets.
func (r *Renderer) Render(ctx context.Context, w io.Writer, frame *layout.Frame, overlay *pagination.OverlaySet, options RenderOptions) (Stats, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: pagination.PageWidth * ptPerPx, Ht: pagination.PageHeight * ptPerPx},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(pagination.Margin*ptPerPx, pagination.Margin*ptPerPx, pagination.Margin*ptPerPx)
	pdf.SetTitle(options.Title, true)
	pdf.SetAuthor(options.Author, true)
	pdf.SetSubject(options.Subject, true)
	pdf.SetKeywords(options.Keywords, true)
	pdf.SetCreator(options.Creator, true)
	pdf.SetProducer(options.Producer, true)

	p := &page{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(120, 120, 120)
		label := fmt.Sprintf("Page %d", pdf.PageNo())
		width := pdf.GetStringWidth(label)
		y := (pagination.PageHeight - pagination.Margin/2) * ptPerPx
		pdf.Text((pagination.PageWidth*ptPerPx-width)/2, y, label)
	})

	breaks := make(map[int]bool)
	for _, pos := range overlay.Dividers() {
		breaks[pos] = true
	}

	p.newPage(false)
	if frame != nil {
		for _, box := range frame.Boxes {
			if err := ctx.Err(); err != nil {
				return p.stats, err
			}
			if breaks[box.Pos] && p.y > pagination.Margin {
				p.newPage(false)
			}
			r.renderBox(ctx, p, box)
		}
	}

	if err := pdf.Output(w); err != nil {
		return p.stats, fmt.Errorf("write pdf: %w", err)
	}
	r.log.Debug("rendered pdf", "pages", p.stats.Pages, "fallback_breaks", p.stats.FallbackBreaks)
	return p.stats, nil
}

// RenderFile renders to a file, creating its directory.
func (r *Renderer) RenderFile(ctx context.Context, outputPath string, frame *layout.Frame, overlay *pagination.OverlaySet, options RenderOptions) (Stats, error) {
	outputDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Stats{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	var buf bytes.Buffer
	stats, err := r.Render(ctx, &buf, frame, overlay, options)
	if err != nil {
		return stats, err
	}
	return stats, os.WriteFile(outputPath, buf.Bytes(), 0o644)
}

func (p *page) newPage(fallback bool) {
	p.pdf.AddPage()
	p.y = pagination.Margin
	p.stats.Pages++
	if fallback {
		p.stats.FallbackBreaks++
	}
}

// reserve starts a new sheet when h more pixels do not fit on this one.
func (p *page) reserve(h float64) {
	if p.y+h > contentBottom && p.y > pagination.Margin {
		p.newPage(true)
	}
}

func (r *Renderer) renderBox(ctx context.Context, p *page, box *layout.BlockBox) {
	b := box.Block
	if b.Kind != document.KindListItem {
		p.ordinal = p.ordinal[:0]
	}

	switch {
	case box.Shaped != nil:
		r.renderText(p, box)
	case b.Kind == document.KindTable:
		r.renderTable(p, box)
	case b.Kind == document.KindImage:
		r.renderImage(ctx, p, box)
	case b.Kind == document.KindRule:
		p.reserve(box.Height)
		mid := (p.y + box.Height/2) * ptPerPx
		p.pdf.SetDrawColor(180, 180, 180)
		p.pdf.SetLineWidth(0.75)
		p.pdf.Line(box.Left*ptPerPx, mid, (box.Left+box.Width)*ptPerPx, mid)
		p.y += box.Height
	default:
		p.reserve(box.Height)
		p.y += box.Height
	}
}

func (r *Renderer) setFont(p *page, f *text.Font) {
	family := f.Family
	if family == "" {
		family = "Helvetica"
	}
	p.pdf.SetFont(family, layout.FontStyle(f), f.Size*ptPerPx)
	p.pdf.SetTextColor(0, 0, 0)
}

// baseline returns the baseline offset of a line box.
func baseline(f *text.Font, lineHeight float64) float64 {
	return (lineHeight-f.Size)/2 + 0.8*f.Size
}

func (r *Renderer) renderText(p *page, box *layout.BlockBox) {
	st := box.Style
	font := layout.FontOf(st)
	shaped := box.Shaped
	lineHeight := shaped.LineHeight
	if lineHeight <= 0 {
		lineHeight = st.LineHeight
	}

	p.reserve(st.PadTop + lineHeight)
	top := p.y
	p.y += st.PadTop
	r.setFont(p, font)
	x := box.Left + st.Indent

	if box.Block.Kind == document.KindListItem {
		r.renderMarker(p, box, font, x, lineHeight)
	}
	for i := range shaped.Lines {
		if p.y+lineHeight > contentBottom && p.y > pagination.Margin {
			p.newPage(true)
			r.setFont(p, font)
		}
		line := strings.TrimRight(shaped.LineText(i), " \n")
		if line != "" {
			p.pdf.Text(x*ptPerPx, (p.y+baseline(font, lineHeight))*ptPerPx, p.tr(line))
		}
		p.y += lineHeight
	}
	p.y += st.PadBottom
	if r.DrawBoxes {
		p.pdf.SetDrawColor(200, 0, 0)
		p.pdf.Rect(box.Left*ptPerPx, top*ptPerPx, box.Width*ptPerPx, (p.y-top)*ptPerPx, "D")
	}
}

// renderMarker draws a bullet, or the running number of ordered items at
// the same depth.
func (r *Renderer) renderMarker(p *page, box *layout.BlockBox, font *text.Font, x, lineHeight float64) {
	level := max(box.Block.Level, 1)
	for len(p.ordinal) < level {
		p.ordinal = append(p.ordinal, 0)
	}
	p.ordinal = p.ordinal[:level]
	p.ordinal[level-1]++

	marker := "•"
	if box.Block.Ordered {
		marker = fmt.Sprintf("%d.", p.ordinal[level-1])
	}
	marker = p.tr(marker)
	width := p.pdf.GetStringWidth(marker)
	p.pdf.Text(x*ptPerPx-width-font.Size*0.3*ptPerPx, (p.y+baseline(font, lineHeight))*ptPerPx, marker)
}

func (r *Renderer) renderTable(p *page, box *layout.BlockBox) {
	st := box.Style
	font := layout.FontOf(st)
	cols := 0
	for _, row := range box.Rows {
		cols = max(cols, len(row.Cells))
	}
	if cols == 0 {
		p.reserve(box.Height)
		p.y += box.Height
		return
	}
	cellWidth := box.Width / float64(cols)

	p.pdf.SetDrawColor(160, 160, 160)
	p.pdf.SetLineWidth(0.5)
	for _, row := range box.Rows {
		p.reserve(row.Height)
		r.setFont(p, font)
		for j, cell := range row.Cells {
			x := box.Left + float64(j)*cellWidth
			p.pdf.Rect(x*ptPerPx, p.y*ptPerPx, cellWidth*ptPerPx, row.Height*ptPerPx, "D")
			y := p.y + st.PadTop
			for i := range cell.Lines {
				line := strings.TrimRight(cell.LineText(i), " \n")
				if line != "" {
					p.pdf.Text((x+st.Indent+4)*ptPerPx, (y+baseline(font, cell.LineHeight))*ptPerPx, p.tr(line))
				}
				y += cell.LineHeight
			}
		}
		p.y += row.Height
	}
}

func (r *Renderer) renderImage(ctx context.Context, p *page, box *layout.BlockBox) {
	b := box.Block
	height := box.Height
	if !box.Measured || height <= 0 {
		height = box.Style.LineHeight
	}
	p.reserve(height)

	if r.Images != nil && b.Src != "" {
		data, typ, err := r.Images.PDFImage(ctx, b.Src)
		if err == nil {
			opts := fpdf.ImageOptions{ImageType: typ}
			info := p.pdf.RegisterImageOptionsReader(b.Src, opts, bytes.NewReader(data))
			if info != nil && info.Height() > 0 && box.Measured {
				width := min(height*info.Width()/info.Height(), box.Width)
				p.pdf.ImageOptions(b.Src, box.Left*ptPerPx, p.y*ptPerPx, width*ptPerPx, height*ptPerPx, false, opts, 0, "")
				p.y += height
				return
			}
			if err := p.pdf.Error(); err != nil {
				r.log.Warn("image not embedded", "src", b.Src, "error", err)
				p.pdf.ClearError()
			}
		} else {
			r.log.Warn("image not loaded", "src", b.Src, "error", err)
		}
	}

	// Placeholder: the alt text in a frame.
	font := &text.Font{Family: "Helvetica", Italic: true, Size: box.Style.FontSize, LineHeight: height}
	r.setFont(p, font)
	p.pdf.SetDrawColor(200, 200, 200)
	p.pdf.Rect(box.Left*ptPerPx, p.y*ptPerPx, box.Width*ptPerPx, height*ptPerPx, "D")
	label := b.Alt
	if label == "" {
		label = b.Src
	}
	if label != "" {
		p.pdf.Text((box.Left+4)*ptPerPx, (p.y+baseline(font, min(height, box.Style.LineHeight)))*ptPerPx, p.tr(label))
	}
	p.y += height
}
