package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gompdf/pageflow"
)

var exportTypes = map[string]string{
	"pdf":  "application/pdf",
	"html": "text/html; charset=utf-8",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// handleExport writes the settled document as pdf, html or docx. For html,
// view=screen exports the on-screen page bands instead of print dividers.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := s.session(chi.URLParam(r, "sessionID"))
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	format := strings.ToLower(chi.URLParam(r, "format"))
	contentType, ok := exportTypes[format]
	if !ok {
		jsonError(w, fmt.Sprintf("unsupported export format: %s", format), http.StatusBadRequest)
		return
	}
	if _, err := sess.Settle(r.Context()); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "pdf":
		var stats pageflow.PDFStats
		stats, err = sess.WritePDF(r.Context(), &buf)
		if err == nil && stats.FallbackBreaks > 0 {
			s.log.Warn("pdf overflowed its pages", "fallback_breaks", stats.FallbackBreaks)
		}
	case "html":
		err = sess.WriteHTML(r.Context(), &buf, r.URL.Query().Get("view") == "screen")
	case "docx":
		err = sess.WriteDOCX(r.Context(), &buf)
	}
	if err != nil {
		s.log.Error("export failed", "format", format, "error", err)
		jsonError(w, "export failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	name := sess.Title()
	if name == "" {
		name = "document"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitizeFilename(name)+"."+format))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
