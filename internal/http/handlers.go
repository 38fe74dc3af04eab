package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"releve/internal/core"
	"releve/internal/log"
	"releve/internal/middleware/trace"
)

type lineJSON struct {
	DateOp         string   `json:"date_op"`
	DateVal        string   `json:"date_val"`
	Label          string   `json:"label"`
	Category       []string `json:"category"`
	Counterparty   string   `json:"counterparty"`
	Amount         float64  `json:"amount"`
	Comment        string   `json:"comment"`
	AccountNumber  uint32   `json:"account_number"`
	AccountLabel   string   `json:"account_label"`
	AccountBalance float64  `json:"account_balance"`
}

func toLineJSON(l core.BankLine) lineJSON {
	category := l.Category()
	if category == nil {
		category = []string{}
	}
	return lineJSON{
		DateOp:         l.DateOp().Format('-'),
		DateVal:        l.DateVal().Format('-'),
		Label:          l.Label(),
		Category:       category,
		Counterparty:   l.Counterparty(),
		Amount:         l.Amount().Value(),
		Comment:        l.Comment(),
		AccountNumber:  l.AccountNumber(),
		AccountLabel:   l.AccountLabel(),
		AccountBalance: l.AccountBalance().Value(),
	}
}

type importJSON struct {
	ImportID string `json:"import_id"`
	Source   string `json:"source"`
	Layout   string `json:"layout"`
	Lines    int    `json:"lines"`
	Ref      string `json:"ref,omitempty"`
}

type taxonomyJSON struct {
	Categories    []string `json:"categories"`
	Subcategories []string `json:"subcategories"`
}

type errorJSON struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks that the backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, _, err := s.taxonomy.List(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		writeError(w, r, http.StatusServiceUnavailable, "backend unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleImport reads a CSV statement from the request body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	source := sanitizeInput(r.URL.Query().Get("source"))
	if source == "" {
		source = "upload"
	}
	if len(source) > 255 {
		writeError(w, r, http.StatusBadRequest, "source name too long")
		return
	}

	// The mapper stops quietly on read errors, so the body is read up front
	// to tell a truncated upload from a short statement.
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "statement too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "failed to read statement")
		return
	}

	res, err := s.importer.Import(r.Context(), source, bytes.NewReader(data))
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, r, http.StatusServiceUnavailable, "import cancelled")
		default:
			s.logger.ErrorContext(r.Context(), "Import failed",
				log.FieldSource, source,
				log.FieldError, err)
			writeError(w, r, http.StatusInternalServerError, "import failed")
		}
		return
	}

	if len(res.Lines) > 0 {
		s.invalidate()
	}

	writeJSON(w, http.StatusCreated, importJSON{
		ImportID: res.ImportID,
		Source:   res.Source,
		Layout:   res.Layout,
		Lines:    len(res.Lines),
		Ref:      res.Ref,
	})
}

func (s *Server) handleAccountLines(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("account")
	account, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid account number")
		return
	}

	if cached, ok := s.linesCache.Get(raw); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	gen := s.linesCache.Generation()
	lines, err := s.lines.ListLines(r.Context(), uint32(account))
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list lines",
			log.FieldAccountNumber, account,
			log.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "failed to list lines")
		return
	}

	out := make([]lineJSON, 0, len(lines))
	for _, l := range lines {
		out = append(out, toLineJSON(l))
	}
	s.linesCache.SetIfGeneration(raw, out, gen)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	const key = "taxonomy"
	if cached, ok := s.taxonomyCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	gen := s.taxonomyCache.Generation()
	cats, subs, err := s.taxonomy.List(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list categories", log.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "failed to list categories")
		return
	}

	out := taxonomyJSON{Categories: nonNil(cats), Subcategories: nonNil(subs)}
	s.taxonomyCache.SetIfGeneration(key, out, gen)
	writeJSON(w, http.StatusOK, out)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorJSON{Error: msg, RequestID: trace.GetRequestID(r.Context())})
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
