package res

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageSize returns the pixel size of the image at src.
func (l *Loader) ImageSize(ctx context.Context, src string) (width, height int, err error) {
	res, err := l.LoadImage(ctx, src)
	if err != nil {
		return 0, 0, err
	}
	if res.MimeType == mimeSVG {
		_, w, h, err := svgIcon(res)
		return w, h, err
	}
	cfg, _, err := image.DecodeConfig(res.GetReader())
	if err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", src, err)
	}
	return cfg.Width, cfg.Height, nil
}

// sizeEntry is the cached outcome of sizing one image source.
type sizeEntry struct {
	w, h float64
	ok   bool
	at   time.Time
	// pending is closed when a background fetch finishes; nil otherwise.
	pending chan struct{}
}

// Sizer adapts ImageSize to the layout engine's image sizing hook. It never
// waits on the network: data: URLs and local files are sized inline, while
// a remote image reports no size until a background fetch finishes, after
// which ready is called with its source. Failed sources are retried once
// FailureTTL has passed.
func (l *Loader) Sizer(ctx context.Context, ready func(src string)) func(src string) (float64, float64, bool) {
	return func(src string) (float64, float64, bool) {
		l.sizeLock.Lock()
		if e, ok := l.sizes[src]; ok && (e.ok || e.pending != nil || time.Since(e.at) < l.failureTTL()) {
			w, h, ok := e.w, e.h, e.ok
			l.sizeLock.Unlock()
			return w, h, ok
		}
		if !l.remote(src) {
			l.sizeLock.Unlock()
			e := &sizeEntry{at: time.Now()}
			if w, h, err := l.ImageSize(ctx, src); err == nil {
				e.w, e.h, e.ok = float64(w), float64(h), true
			}
			l.sizeLock.Lock()
			l.sizes[src] = e
			l.sizeLock.Unlock()
			return e.w, e.h, e.ok
		}
		e := &sizeEntry{pending: make(chan struct{})}
		l.sizes[src] = e
		l.sizeLock.Unlock()
		go l.fetchSize(ctx, src, e, ready)
		return 0, 0, false
	}
}

func (l *Loader) remote(src string) bool {
	if strings.HasPrefix(src, "data:") {
		return false
	}
	resolved, err := l.resolveURL(src)
	return err == nil && isRemote(resolved)
}

func (l *Loader) fetchSize(ctx context.Context, src string, e *sizeEntry, ready func(string)) {
	w, h, err := l.ImageSize(ctx, src)
	l.sizeLock.Lock()
	e.w, e.h, e.ok, e.at = float64(w), float64(h), err == nil, time.Now()
	l.sizeLock.Unlock()
	if err == nil && ready != nil && ctx.Err() == nil {
		ready(src)
	}

	l.sizeLock.Lock()
	done := e.pending
	e.pending = nil
	l.sizeGen++
	l.sizeLock.Unlock()
	close(done)
}

// SizeGen counts finished background fetches. A caller that saw the same
// value before and after some work knows no image size arrived meanwhile.
func (l *Loader) SizeGen() int {
	l.sizeLock.Lock()
	defer l.sizeLock.Unlock()
	return l.sizeGen
}

// WaitSizes blocks until no background image fetch is in flight.
func (l *Loader) WaitSizes(ctx context.Context) error {
	for {
		l.sizeLock.Lock()
		var pending []chan struct{}
		for _, e := range l.sizes {
			if e.pending != nil {
				pending = append(pending, e.pending)
			}
		}
		l.sizeLock.Unlock()
		if len(pending) == 0 {
			return nil
		}
		for _, ch := range pending {
			select {
			case <-ch:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// PDFImage returns image data in a format PDF writers embed directly, with
// its type name ("PNG", "JPG" or "GIF"). Other formats are re-encoded as
// PNG; SVG is rasterized at its viewBox size.
func (l *Loader) PDFImage(ctx context.Context, src string) ([]byte, string, error) {
	res, err := l.LoadImage(ctx, src)
	if err != nil {
		return nil, "", err
	}
	if res.MimeType == mimeSVG {
		data, err := rasterizeSVG(res)
		return data, "PNG", err
	}
	_, format, err := image.DecodeConfig(res.GetReader())
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", src, err)
	}
	switch format {
	case "png":
		return res.Data, "PNG", nil
	case "jpeg":
		return res.Data, "JPG", nil
	case "gif":
		return res.Data, "GIF", nil
	}

	img, _, err := image.Decode(res.GetReader())
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", src, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("encode %s: %w", src, err)
	}
	return buf.Bytes(), "PNG", nil
}
