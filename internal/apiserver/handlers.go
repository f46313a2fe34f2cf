package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
)

type errorBody struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleList(w, r)
	case http.MethodPost:
		s.handleCreate(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentAPI)

	start := time.Now()
	items, err := s.expenses.ListExpenses(ctx)
	s.metrics.ObserveFetch(time.Since(start), err)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list expenses",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeStorage,
			log.FieldOperation, log.OpList)
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}
	logger.DebugContext(ctx, "Listed expenses", log.FieldCount, len(items), log.FieldOperation, log.OpList)
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentAPI)

	fields, err := apphttp.ReadFields(r)
	if err != nil {
		if errors.Is(err, apphttp.ErrBodyTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		logger.WarnContext(ctx, "Malformed create request",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeParse)
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	in := core.Expense{
		ID:          fields.Get("id"),
		Date:        fields.Get(string(core.FieldDate)),
		Category:    fields.Get(string(core.FieldCategory)),
		Amount:      fields.Get(string(core.FieldAmount)),
		Description: fields.Get(string(core.FieldDescription)),
	}

	start := time.Now()
	out, err := s.expenses.CreateExpense(ctx, in)
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		s.metrics.ObserveValidation()
		names := make([]string, len(verr.Fields))
		for i, f := range verr.Fields {
			names[i] = string(f)
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: verr.Error(), Fields: names})
		return
	}
	s.metrics.ObserveCreate(time.Since(start), err)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to store expense",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeStorage,
			log.FieldOperation, log.OpCreate)
		writeError(w, http.StatusInternalServerError, "failed to store expense")
		return
	}

	logger.InfoContext(ctx, "Expense created", log.NewFields().
		WithOperation(log.OpCreate).
		WithExpense(out.ID, out.Category, out.Amount, out.Description).
		ToSlice()...)

	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"backend": s.backend,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
