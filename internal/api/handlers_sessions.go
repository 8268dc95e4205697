package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gompdf/pageflow"
	"github.com/gompdf/pageflow/internal/parser"
)

type createRequest struct {
	Filename   string `json:"filename"`
	Content    string `json:"content"`
	Stylesheet string `json:"stylesheet,omitempty"`
}

type pageJSON struct {
	Number    int     `json:"number"`
	Start     int     `json:"start"`
	Height    float64 `json:"height"`
	Oversized bool    `json:"oversized,omitempty"`
}

type breakpointJSON struct {
	Pos    int     `json:"pos"`
	Page   int     `json:"page"`
	Height float64 `json:"height"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	var (
		filename string
		data     []byte
		opts     = s.sessionOptions()
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		filename = sanitizeFilename(header.Filename)
		data, err = io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
		if err != nil {
			jsonError(w, "failed to read file", http.StatusInternalServerError)
			return
		}
		if css := r.FormValue("stylesheet"); css != "" {
			opts = append(opts, pageflow.WithStylesheet(css))
		}
	} else {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		filename = sanitizeFilename(req.Filename)
		data = []byte(req.Content)
		if req.Stylesheet != "" {
			opts = append(opts, pageflow.WithStylesheet(req.Stylesheet))
		}
	}

	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	sess, err := pageflow.OpenReader(bytes.NewReader(data), filename, opts...)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	id := contentHashHex([]byte(fmt.Sprintf("%s-%d", filename, time.Now().UnixNano())))[:20]
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	s.log.Info("session created", "session_id", id, "filename", filename, "bytes", len(data))

	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": id,
		"title":      sess.Title(),
		"pages_url":  fmt.Sprintf("/api/sessions/%s/pages", id),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess := s.session(id)
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	pages := 0
	if snap.Result != nil {
		pages = snap.Result.PageCount()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"title":      sess.Title(),
		"version":    snap.Version,
		"state":      snap.State,
		"passes":     snap.Passes,
		"splits":     snap.Splits,
		"blocks":     len(snap.Doc.Blocks),
		"size":       snap.Doc.Size(),
		"pages":      pages,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	sess.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEdits(w http.ResponseWriter, r *http.Request) {
	sess := s.session(chi.URLParam(r, "sessionID"))
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req struct {
		Edits []pageflow.Edit `json:"edits"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Edits) == 0 {
		jsonError(w, "edits are required", http.StatusBadRequest)
		return
	}
	if err := sess.Apply(r.Context(), req.Edits...); err != nil {
		if errors.Is(err, pageflow.ErrClosed) {
			jsonError(w, err.Error(), http.StatusGone)
			return
		}
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"version": snap.Version, "size": snap.Doc.Size()})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	sess := s.session(chi.URLParam(r, "sessionID"))
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	undone, err := sess.Undo(r.Context())
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"undone": undone})
}

// handlePages reports the converged pages. settle=false returns the latest
// pass without waiting.
func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	sess := s.session(chi.URLParam(r, "sessionID"))
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	if r.URL.Query().Get("settle") != "false" {
		if _, err := sess.Settle(r.Context()); err != nil {
			jsonError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	pages := []pageJSON{}
	breakpoints := []breakpointJSON{}
	if res := snap.Result; res != nil {
		for _, p := range res.Pages {
			pages = append(pages, pageJSON{Number: p.Number, Start: p.Start, Height: p.Height, Oversized: p.Oversized})
		}
		for _, bp := range res.Breakpoints {
			breakpoints = append(breakpoints, breakpointJSON{Pos: bp.Pos, Page: bp.Page, Height: bp.Height})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":       snap.State,
		"version":     snap.Version,
		"pages":       pages,
		"breakpoints": breakpoints,
		"footers":     snap.Overlay.Footers(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func contentHashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "." || name == "" {
		return "document.txt"
	}
	return name
}
