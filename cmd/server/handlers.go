package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brunobiangulo/pdfdesk"
	"github.com/brunobiangulo/pdfdesk/pdfops"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type handler struct {
	engine pdfdesk.Engine
}

func newHandler(e pdfdesk.Engine) *handler {
	return &handler{engine: e}
}

// POST /api/convert/pdf-to-{format}
// Multipart fields: file, password, headings (true/false), pages ("1,3").
func (h *handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	format := chi.URLParam(r, "format")

	in, ok := h.singleUpload(w, r)
	if !ok {
		return
	}

	var opts []pdfdesk.ConvertOption
	if pw := r.FormValue("password"); pw != "" {
		opts = append(opts, pdfdesk.WithPassword(pw))
	}
	if v := r.FormValue("headings"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "headings must be true or false")
			return
		}
		opts = append(opts, pdfdesk.WithHeadings(enabled))
	}
	if v := r.FormValue("pages"); v != "" {
		pages, err := parsePageList(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts = append(opts, pdfdesk.WithPages(pages...))
	}

	out, err := h.engine.PDFToDocument(ctx, in, format, opts...)
	if err != nil {
		writeEngineError(w, "convert", err)
		return
	}
	writeOutput(w, out)
}

// POST /api/merge
// Multipart fields: files (two or more, merged in upload order).
func (h *handler) handleMerge(w http.ResponseWriter, r *http.Request) {
	files, ok := h.multiUpload(w, r)
	if !ok {
		return
	}
	out, err := h.engine.Merge(r.Context(), files)
	if err != nil {
		writeEngineError(w, "merge", err)
		return
	}
	writeOutput(w, out)
}

// POST /api/split
// Multipart fields: file, span (pages per part, default 1).
func (h *handler) handleSplit(w http.ResponseWriter, r *http.Request) {
	in, ok := h.singleUpload(w, r)
	if !ok {
		return
	}
	span, ok := intField(w, r, "span", 1)
	if !ok {
		return
	}
	out, err := h.engine.Split(r.Context(), in, span)
	if err != nil {
		writeEngineError(w, "split", err)
		return
	}
	writeOutput(w, out)
}

// POST /api/rotate
// Multipart fields: file, degrees (default 90), pages (default all).
func (h *handler) handleRotate(w http.ResponseWriter, r *http.Request) {
	in, ok := h.singleUpload(w, r)
	if !ok {
		return
	}
	degrees, ok := intField(w, r, "degrees", 90)
	if !ok {
		return
	}
	out, err := h.engine.Rotate(r.Context(), in, degrees, pdfops.ParseSelection(r.FormValue("pages")))
	if err != nil {
		writeEngineError(w, "rotate", err)
		return
	}
	writeOutput(w, out)
}

// POST /api/reorder
// Multipart fields: file, order ("3,1,2").
func (h *handler) handleReorder(w http.ResponseWriter, r *http.Request) {
	in, ok := h.singleUpload(w, r)
	if !ok {
		return
	}
	order := pdfops.ParseSelection(r.FormValue("order"))
	if len(order) == 0 {
		writeError(w, http.StatusBadRequest, "order is required")
		return
	}
	out, err := h.engine.Reorder(r.Context(), in, order)
	if err != nil {
		writeEngineError(w, "reorder", err)
		return
	}
	writeOutput(w, out)
}

// POST /api/compress
func (h *handler) handleCompress(w http.ResponseWriter, r *http.Request) {
	in, ok := h.singleUpload(w, r)
	if !ok {
		return
	}
	out, err := h.engine.Compress(r.Context(), in)
	if err != nil {
		writeEngineError(w, "compress", err)
		return
	}
	writeOutput(w, out)
}

// POST /api/protect
// Multipart fields: file, password, owner_password (optional).
func (h *handler) handleProtect(w http.ResponseWriter, r *http.Request) {
	in, ok := h.singleUpload(w, r)
	if !ok {
		return
	}
	pw := r.FormValue("password")
	if pw == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}
	out, err := h.engine.Protect(r.Context(), in, pw, r.FormValue("owner_password"))
	if err != nil {
		writeEngineError(w, "protect", err)
		return
	}
	writeOutput(w, out)
}

// POST /api/unlock
// Multipart fields: file, password.
func (h *handler) handleUnlock(w http.ResponseWriter, r *http.Request) {
	in, ok := h.singleUpload(w, r)
	if !ok {
		return
	}
	out, err := h.engine.Unlock(r.Context(), in, r.FormValue("password"))
	if err != nil {
		writeEngineError(w, "unlock", err)
		return
	}
	writeOutput(w, out)
}

// POST /api/images-to-pdf
// Multipart fields: files (JPEG or PNG, one page each).
func (h *handler) handleImagesToPDF(w http.ResponseWriter, r *http.Request) {
	files, ok := h.multiUpload(w, r)
	if !ok {
		return
	}
	out, err := h.engine.ImagesToPDF(r.Context(), files)
	if err != nil {
		writeEngineError(w, "images-to-pdf", err)
		return
	}
	writeOutput(w, out)
}

// GET /api/conversions?limit=N
func (h *handler) handleListConversions(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	list, err := h.engine.ListConversions(r.Context(), limit)
	if err != nil {
		writeEngineError(w, "list conversions", err)
		return
	}
	if list == nil {
		list = []pdfdesk.Conversion{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversions": list,
	})
}

// GET /api/conversions/{id}
func (h *handler) handleGetConversion(w http.ResponseWriter, r *http.Request) {
	c, err := h.engine.GetConversion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, "get conversion", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GET /api/stats
func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		writeEngineError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// --- uploads ---

// singleUpload reads the "file" field.
func (h *handler) singleUpload(w http.ResponseWriter, r *http.Request) (pdfdesk.Input, bool) {
	if !parseForm(w, r) {
		return pdfdesk.Input{}, false
	}
	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "file is required")
		return pdfdesk.Input{}, false
	}
	in, err := readUpload(headers[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		slog.Warn("reading upload", "error", err)
		return pdfdesk.Input{}, false
	}
	return in, true
}

// multiUpload reads every "files" part, falling back to "file".
func (h *handler) multiUpload(w http.ResponseWriter, r *http.Request) ([]pdfdesk.Input, bool) {
	if !parseForm(w, r) {
		return nil, false
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "files are required")
		return nil, false
	}
	inputs := make([]pdfdesk.Input, 0, len(headers))
	for _, fh := range headers {
		in, err := readUpload(fh)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read upload")
			slog.Warn("reading upload", "filename", fh.Filename, "error", err)
			return nil, false
		}
		inputs = append(inputs, in)
	}
	return inputs, true
}

func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart form upload")
		return false
	}
	return true
}

func readUpload(fh *multipart.FileHeader) (pdfdesk.Input, error) {
	f, err := fh.Open()
	if err != nil {
		return pdfdesk.Input{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return pdfdesk.Input{}, err
	}
	// Sanitise filename to prevent path traversal.
	return pdfdesk.Input{Filename: filepath.Base(fh.Filename), Data: data}, nil
}

func intField(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	v := r.FormValue(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return n, true
}

// parsePageList parses "1,3,5-7" into page numbers.
func parsePageList(s string) ([]int, error) {
	var pages []int
	for _, part := range pdfops.ParseSelection(s) {
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid page %q", part)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || to < from {
				return nil, fmt.Errorf("invalid page range %q", part)
			}
		}
		for p := from; p <= to; p++ {
			pages = append(pages, p)
		}
	}
	return pages, nil
}

// --- responses ---

// writeOutput streams a tool result as a download.
func writeOutput(w http.ResponseWriter, out *pdfdesk.Output) {
	h := w.Header()
	h.Set("Content-Type", out.ContentType)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	h.Set("Content-Length", strconv.Itoa(len(out.Data)))
	h.Set("X-Conversion-ID", out.ID)
	h.Set("X-Page-Count", strconv.Itoa(out.Pages))
	if out.Mode != "" {
		h.Set("X-Extraction-Mode", out.Mode)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(out.Data)
}

// errorStatus maps engine errors to an HTTP status and a stable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, pdfdesk.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, pdfdesk.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.Is(err, pdfdesk.ErrPasswordRequired):
		return http.StatusUnauthorized, "password_required"
	case errors.Is(err, pdfdesk.ErrWrongPassword):
		return http.StatusForbidden, "wrong_password"
	case errors.Is(err, pdfdesk.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, pdfdesk.ErrStoreDisabled):
		return http.StatusServiceUnavailable, "store_disabled"
	case errors.Is(err, pdfdesk.ErrConversionFailed):
		return http.StatusUnprocessableEntity, "conversion_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeEngineError(w http.ResponseWriter, op string, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op+" error", "error", err)
	} else {
		slog.Warn(op+" rejected", "code", code, "error", err)
	}
	writeJSON(w, status, map[string]string{
		"error": errorMessage(err),
		"code":  code,
	})
}

// errorMessage strips the package prefix from engine errors.
func errorMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "pdfdesk: "); i == 0 {
		msg = msg[len("pdfdesk: "):]
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
