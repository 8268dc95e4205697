// Package res loads source documents and images from files, search paths,
// http(s) URLs and data: URLs.
package res

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	// DefaultMaxBytes caps the size of a single loaded resource.
	DefaultMaxBytes = 32 << 20
	// DefaultTimeout bounds one remote fetch, including the body.
	DefaultTimeout = 10 * time.Second
	// DefaultFailureTTL is how long a failed load is remembered.
	DefaultFailureTTL = 30 * time.Second
)

var (
	// ErrNotFound is returned when no file or search path holds a resource.
	ErrNotFound = errors.New("resource not found")
	// ErrTooLarge is returned when a resource exceeds the loader's limit.
	ErrTooLarge = errors.New("resource too large")
	// ErrForbidden is returned for sources a sandboxed loader may not read.
	ErrForbidden = errors.New("resource not allowed")
)

// ResourceType represents the type of resource
type ResourceType int

const (
	// ResourceTypeUnknown is an unknown resource type
	ResourceTypeUnknown ResourceType = iota
	// ResourceTypeImage is an image resource
	ResourceTypeImage
	// ResourceTypeCSS is a CSS resource
	ResourceTypeCSS
	// ResourceTypeDocument is an importable source document
	ResourceTypeDocument
)

// Resource represents a loaded resource
type Resource struct {
	URL      string
	Type     ResourceType
	Data     []byte
	MimeType string
}

// Loader handles loading resources
type Loader struct {
	// BaseURL is a URL or file path relative sources resolve against.
	BaseURL string
	// MaxBytes limits a single resource; 0 means DefaultMaxBytes.
	MaxBytes int64
	// FailureTTL is how long a failed source is answered from the cache;
	// 0 means DefaultFailureTTL.
	FailureTTL time.Duration

	cache     map[string]*Resource
	failed    map[string]failure
	cacheLock sync.RWMutex

	sizes    map[string]*sizeEntry
	sizeGen  int
	sizeLock sync.Mutex

	searchPaths []string
	client      *http.Client
	sandboxed   bool
	allowed     []*url.URL
}

type failure struct {
	err error
	at  time.Time
}

// NewLoader creates a new resource loader
func NewLoader(baseURL string) *Loader {
	return &Loader{
		BaseURL: baseURL,
		cache:   make(map[string]*Resource),
		failed:  make(map[string]failure),
		sizes:   make(map[string]*sizeEntry),
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

// SetTimeout bounds each remote fetch. Zero or less keeps the current value.
func (l *Loader) SetTimeout(d time.Duration) {
	if d > 0 {
		l.client.Timeout = d
	}
}

// Sandbox restricts l to data: URLs and to http(s) sources under one of the
// allowed base URLs. Local files, search paths and hosts on loopback,
// private or link-local networks are refused, redirects included.
func (l *Loader) Sandbox(allowed ...string) error {
	l.sandboxed = true
	l.allowed = l.allowed[:0]
	var errs []error
	for _, a := range allowed {
		u, err := url.Parse(a)
		if err != nil || !isRemote(a) || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid allowed base %q", a))
			continue
		}
		l.allowed = append(l.allowed, u)
	}

	dialer := &net.Dialer{Timeout: DefaultTimeout, Control: refusePrivate}
	l.client = &http.Client{
		Timeout: l.client.Timeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: DefaultTimeout,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return l.permit(req.URL.String())
		},
	}
	return errors.Join(errs...)
}

// permit reports whether a resolved source may be read.
func (l *Loader) permit(resolved string) error {
	if !l.sandboxed {
		return nil
	}
	if isRemote(resolved) {
		if u, err := url.Parse(resolved); err == nil {
			for _, base := range l.allowed {
				if underBase(u, base) {
					return nil
				}
			}
		}
	}
	return fmt.Errorf("%w: %s", ErrForbidden, resolved)
}

func underBase(u, base *url.URL) bool {
	if !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
		return false
	}
	prefix := base.Path
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return strings.HasPrefix(u.Path, prefix)
	}
	return u.Path == prefix || strings.HasPrefix(u.Path, prefix+"/")
}

// refusePrivate is a dialer control that rejects non-public addresses. It
// runs after name resolution, so DNS answers pointing inward are caught.
func refusePrivate(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return fmt.Errorf("%w: %s", ErrForbidden, host)
	}
	return nil
}

func (l *Loader) failureTTL() time.Duration {
	if l.FailureTTL > 0 {
		return l.FailureTTL
	}
	return DefaultFailureTTL
}

// AddSearchPath adds a directory to search for local resources
func (l *Loader) AddSearchPath(path string) {
	l.searchPaths = append(l.searchPaths, path)
}

// Load loads a resource from a URL or file path. Results are cached by the
// source string; failures are cached for FailureTTL.
func (l *Loader) Load(ctx context.Context, src string) (*Resource, error) {
	l.cacheLock.RLock()
	if res, ok := l.cache[src]; ok {
		l.cacheLock.RUnlock()
		return res, nil
	}
	if f, ok := l.failed[src]; ok && time.Since(f.at) < l.failureTTL() {
		l.cacheLock.RUnlock()
		return nil, f.err
	}
	l.cacheLock.RUnlock()

	var res *Resource
	var err error
	if strings.HasPrefix(src, "data:") {
		res, err = parseDataURL(src)
	} else {
		var resolved string
		resolved, err = l.resolveURL(src)
		if err == nil {
			err = l.permit(resolved)
		}
		if err == nil {
			if isRemote(resolved) {
				res, err = l.loadRemote(ctx, resolved)
			} else {
				res, err = l.loadLocal(resolved)
			}
		}
	}
	if err != nil {
		// A cancelled caller says nothing about the source.
		if ctx.Err() == nil {
			l.cacheLock.Lock()
			l.failed[src] = failure{err: err, at: time.Now()}
			l.cacheLock.Unlock()
		}
		return nil, err
	}

	l.cacheLock.Lock()
	l.cache[src] = res
	delete(l.failed, src)
	l.cacheLock.Unlock()
	return res, nil
}

// LoadImage loads an image resource
func (l *Loader) LoadImage(ctx context.Context, src string) (*Resource, error) {
	res, err := l.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	if res.Type != ResourceTypeImage {
		return nil, fmt.Errorf("resource is not an image: %s", src)
	}
	return res, nil
}

// LoadCSS loads a CSS resource
func (l *Loader) LoadCSS(ctx context.Context, src string) (*Resource, error) {
	res, err := l.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	if res.Type != ResourceTypeCSS {
		return nil, fmt.Errorf("resource is not CSS: %s", src)
	}
	return res, nil
}

// GetReader returns a reader for a resource
func (r *Resource) GetReader() *bytes.Reader {
	return bytes.NewReader(r.Data)
}

// GetString returns the resource data as a string
func (r *Resource) GetString() string {
	return string(r.Data)
}

// Filename returns a file name whose extension identifies the format, for
// picking an importer.
func (r *Resource) Filename() string {
	if !strings.HasPrefix(r.URL, "data:") {
		name := r.URL
		if u, err := url.Parse(r.URL); err == nil && u.Scheme != "" {
			name = path.Base(u.Path)
		} else {
			name = filepath.Base(name)
		}
		if filepath.Ext(name) != "" {
			return name
		}
	}
	if ext := knownExt(r.MimeType); ext != "" {
		return "document" + ext
	}
	if exts, _ := mime.ExtensionsByType(r.MimeType); len(exts) > 0 {
		return "document" + exts[0]
	}
	return "document"
}

func knownExt(mimeType string) string {
	switch mimeType {
	case "text/html":
		return ".html"
	case "text/markdown":
		return ".md"
	case "text/plain":
		return ".txt"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx"
	}
	return ""
}

// parseDataURL parses a data URL (RFC 2397) and returns a Resource.
// Examples:
//
//	data:image/png;base64,<base64>
//	data:text/plain,Hello%20World
func parseDataURL(u string) (*Resource, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("invalid data URL")
	}

	mimeType := "text/plain"
	isBase64 := false
	comps := strings.Split(meta, ";")
	if comps[0] != "" {
		mimeType = strings.ToLower(comps[0])
	}
	for _, c := range comps[1:] {
		if strings.EqualFold(strings.TrimSpace(c), "base64") {
			isBase64 = true
		}
	}

	var data []byte
	if isBase64 {
		var err error
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data URL: %w", err)
		}
	} else if d, err := url.PathUnescape(payload); err == nil {
		data = []byte(d)
	} else {
		data = []byte(payload)
	}

	return &Resource{URL: u, Data: data, MimeType: mimeType, Type: determineResourceType(mimeType, "")}, nil
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// resolveURL resolves a URL relative to the base URL
func (l *Loader) resolveURL(src string) (string, error) {
	if isRemote(src) || filepath.IsAbs(src) {
		return src, nil
	}
	if !isRemote(l.BaseURL) {
		if l.BaseURL == "" {
			return src, nil
		}
		return filepath.Join(filepath.Dir(l.BaseURL), src), nil
	}

	base, err := url.Parse(l.BaseURL)
	if err != nil {
		return "", err
	}
	rel, err := url.Parse(src)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(rel).String(), nil
}

func (l *Loader) limit() int64 {
	if l.MaxBytes > 0 {
		return l.MaxBytes
	}
	return DefaultMaxBytes
}

// readLimited reads r, failing once it exceeds the loader's limit.
func (l *Loader) readLimited(r io.Reader, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.limit()+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > l.limit() {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, name, l.limit())
	}
	return data, nil
}

// loadRemote loads a resource from a remote URL
func (l *Loader) loadRemote(ctx context.Context, src string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, src)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	data, err := l.readLimited(resp.Body, src)
	if err != nil {
		return nil, err
	}

	mimeType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = determineMimeType(src)
	}
	return &Resource{
		URL:      src,
		Data:     data,
		MimeType: mimeType,
		Type:     determineResourceType(mimeType, src),
	}, nil
}

// loadLocal loads a resource from a local file, falling back to the
// search paths.
func (l *Loader) loadLocal(name string) (*Resource, error) {
	candidates := []string{name}
	for _, dir := range l.searchPaths {
		candidates = append(candidates, filepath.Join(dir, filepath.Base(name)))
	}

	for _, p := range candidates {
		f, err := os.Open(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		data, err := l.readLimited(f, p)
		f.Close()
		if err != nil {
			return nil, err
		}
		mimeType := determineMimeType(p)
		return &Resource{URL: p, Data: data, MimeType: mimeType, Type: determineResourceType(mimeType, p)}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// determineMimeType determines the MIME type of a file
func determineMimeType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".tiff", ".tif":
		return "image/tiff"
	case ".bmp":
		return "image/bmp"
	case ".svg":
		return mimeSVG
	case ".css":
		return "text/css"
	case ".html", ".htm":
		return "text/html"
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "application/octet-stream"
}

// determineResourceType determines the type of a resource
func determineResourceType(mimeType, p string) ResourceType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return ResourceTypeImage
	case mimeType == "text/css":
		return ResourceTypeCSS
	case mimeType == "text/html", mimeType == "text/markdown", mimeType == "text/plain",
		strings.Contains(mimeType, "wordprocessingml"):
		return ResourceTypeDocument
	}
	if p != "" && determineMimeType(p) != "application/octet-stream" {
		return determineResourceType(determineMimeType(p), "")
	}
	return ResourceTypeUnknown
}
