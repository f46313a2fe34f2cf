package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/view"
)

// pageData is what every template receives.
type pageData struct {
	view.State
	Totals core.Totals
}

func newPageData(st view.State) pageData {
	return pageData{State: st, Totals: st.Totals()}
}

// render executes a template into a buffer so a failing template never
// produces a half-written response.
func (s *Server) render(r *http.Request, name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		return "", err
	}
	return buf.String(), nil
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, b *Response, name string, st view.State) {
	html, err := s.render(r, name, newPageData(st))
	if err != nil {
		Fail(http.StatusInternalServerError, "Rendering failed").Write(w)
		return
	}
	b.HTML(html).Write(w)
}

// ensureLoaded runs the initial fetch when the page is first opened and no
// fetch has settled yet. The fetch is bounded by the API client timeout.
func (s *Server) ensureLoaded(r *http.Request) view.State {
	st := s.tracker.State()
	if st.Loaded || st.FetchError != "" {
		return st
	}
	_ = s.tracker.Load(r.Context())
	return s.tracker.State()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		Fail(http.StatusNotFound, "Page not found").Write(w)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	st := s.ensureLoaded(r)
	s.writePage(w, r, Respond(), "index.html", st)
}

func (s *Server) handleExpensesPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	s.writePage(w, r, Respond(), "expenses.html", s.tracker.State())
}

func (s *Server) handleBreakdownPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	s.writePage(w, r, Respond(), "breakdown.html", s.tracker.State())
}

func (s *Server) handleChartData(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	body, err := json.Marshal(s.tracker.State().Totals().Chart())
	if err != nil {
		Fail(http.StatusInternalServerError, "Encoding failed").Write(w)
		return
	}
	Respond().
		Header("Content-Type", "application/json").
		Header("Cache-Control", "no-store").
		Body(body).
		Write(w)
}

// applyFields feeds every posted field to the tracker. The first unknown
// field aborts with a ValidationError.
func (s *Server) applyFields(r *http.Request) error {
	fields, err := ReadFields(r)
	if err != nil {
		return err
	}
	for _, key := range fields.Keys() {
		if err := s.tracker.UpdateField(key, fields.Get(key)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if err := s.applyFields(r); err != nil {
		s.writeBadInput(w, r, err)
		return
	}
	Respond().Status(http.StatusNoContent).Write(w)
}

func (s *Server) writeBadInput(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentForm)
	if core.IsValidation(err) {
		logger.WarnContext(r.Context(), "Rejected draft field",
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeValidation)
		Fail(http.StatusUnprocessableEntity, err.Error()).
			Notify(LevelError, err.Error()).
			Write(w)
		return
	}
	logger.WarnContext(r.Context(), "Malformed request body", log.FieldError, err)
	Fail(http.StatusBadRequest, "Invalid request format").Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	// Applying the fields and submitting are separate steps on the shared
	// draft. If another submit is in flight these fields are written anyway
	// and this request gets a 409; that submit's reset then clears them.
	if err := s.applyFields(r); err != nil {
		s.writeBadInput(w, r, err)
		return
	}

	draft := s.tracker.State().Draft
	err := s.tracker.Submit(r.Context())
	st := s.tracker.State()

	// Without htmx the browser posted the form itself; answer with the
	// whole page.
	name := "form.html"
	if !IsHTMX(r) {
		name = "index.html"
	}

	switch {
	case err == nil:
		if !IsHTMX(r) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		e := draft.Expense()
		b := Respond().
			ExpenseCreated(e.Category, e.Amount).
			ResetForm().
			Notify(LevelSuccess, fmt.Sprintf("Expense added: %s %s", e.Category, e.Amount))
		s.writePage(w, r, b, name, st)

	case core.IsValidation(err):
		b := Respond().
			Status(http.StatusUnprocessableEntity).
			Notify(LevelError, err.Error())
		s.writePage(w, r, b, name, st)

	case errors.Is(err, core.ErrSubmitInProgress):
		b := Respond().
			Status(http.StatusConflict).
			Notify(LevelWarning, "A submission is already in progress")
		s.writePage(w, r, b, name, st)

	default:
		b := Respond().
			Status(http.StatusBadGateway).
			Notify(LevelWarning, "Could not save the expense. Please try again.")
		s.writePage(w, r, b, name, st)
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	err := s.tracker.Load(r.Context())
	if !IsHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	b := Respond().Status(http.StatusNoContent).RefreshExpenses()
	if err != nil {
		b.Notify(LevelWarning, "Could not load expenses")
	}
	b.Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports ready once the last fetch succeeded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	st := s.tracker.State()
	checks := map[string]any{
		"templates":    "ok",
		"rate_limiter": map[string]any{"active_clients": s.limiter.ActiveClients()},
	}

	status, code := "ready", http.StatusOK
	switch {
	case st.FetchError != "":
		checks["expenses_api"] = "failed: " + st.FetchError
		status, code = "not_ready", http.StatusServiceUnavailable
	case !st.Loaded:
		checks["expenses_api"] = "not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	default:
		checks["expenses_api"] = map[string]any{
			"status":     "ok",
			"fetched_at": st.FetchedAt.Format(time.RFC3339),
			"count":      len(st.Expenses),
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
