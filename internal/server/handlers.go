package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NgigiN/prosperledger/internal/app"
	"github.com/NgigiN/prosperledger/internal/ledger"
	"github.com/NgigiN/prosperledger/internal/storage"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "prosperledger",
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"streams":   s.app.Streams(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.app.Login(req.Username, req.Password)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, app.ErrUnauthorized.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.writeJSON(w, http.StatusOK, map[string]string{"username": req.Username})
}

// handleLogout ends the session only when the caller holds it.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil && s.app.Authorized(c.Value) {
		s.app.Logout()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) parseFilter(w http.ResponseWriter, r *http.Request) (ledger.Filter, bool) {
	f, err := ledger.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return f, true
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	f, ok := s.parseFilter(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.app.Overview(f))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, ok := s.parseFilter(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.app.Overview(f).Transactions)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var tx ledger.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.app.AddTransaction(r.Context(), tx)
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, "failed to save transaction")
	default:
		s.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type debtsResponse struct {
	ledger.DebtSummary
	Due []ledger.Obligation `json:"due"`
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	obs := s.app.Snapshot().Obligations
	due := ledger.DueObligations(obs, s.app.Now())
	if due == nil {
		due = []ledger.Obligation{}
	}
	s.writeJSON(w, http.StatusOK, debtsResponse{
		DebtSummary: ledger.SummarizeDebts(obs),
		Due:         due,
	})
}

func (s *Server) handleAddDebt(w http.ResponseWriter, r *http.Request) {
	var o ledger.Obligation
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.app.AddObligation(r.Context(), o)
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, "failed to save debt record")
	default:
		s.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

func (s *Server) handleToggleDebt(w http.ResponseWriter, r *http.Request) {
	o, err := s.app.ToggleObligation(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "debt record not found")
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, "failed to update status")
	default:
		s.writeJSON(w, http.StatusOK, o)
	}
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteObligation(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to delete debt record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.app.Config())
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req app.SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg, err := s.app.SaveSettings(r.Context(), req)
	switch {
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrPasswordMismatch):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, "failed to update credentials")
	default:
		s.writeJSON(w, http.StatusOK, cfg)
	}
}

type catalogResponse struct {
	IncomeCategories  []string             `json:"incomeCategories"`
	ExpenseCategories []string             `json:"expenseCategories"`
	Methods           []ledger.Method      `json:"methods"`
	Filters           []ledger.Filter      `json:"filters"`
	QuickActions      []ledger.QuickAction `json:"quickActions"`
	Currency          string               `json:"currency"`
	Today             string               `json:"today"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, catalogResponse{
		IncomeCategories:  ledger.IncomeCategories,
		ExpenseCategories: ledger.ExpenseCategories,
		Methods:           ledger.Methods,
		Filters:           ledger.Filters,
		QuickActions:      ledger.QuickActions,
		Currency:          ledger.Currency,
		Today:             ledger.Today(s.app.Now()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
