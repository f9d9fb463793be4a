package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openkiosk/priceboard/internal/auth"
	"github.com/openkiosk/priceboard/internal/pipeline"
	"github.com/openkiosk/priceboard/internal/store"
)

const minPasswordLength = 8

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		zap.L().Error("api: hash password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Email, hash)
	if err != nil {
		if eris.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		zap.L().Error("api: create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := s.auth.IssueToken(user.ID)
	if err != nil {
		zap.L().Error("api: issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"token": token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	// Unknown email and wrong password get the same answer.
	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		zap.L().Error("api: get user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.auth.IssueToken(user.ID)
	if err != nil {
		zap.L().Error("api: issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	// The trigger reports success or failure only; counts and stage detail
	// stay in the run logs. The run keeps the request's values but not its
	// cancellation: once started it finishes or fails on its own, a client
	// disconnect must not abort it mid-insert.
	if _, err := s.runner.RunOnce(context.WithoutCancel(r.Context())); err != nil {
		if eris.Is(err, pipeline.ErrRunInProgress) {
			writeError(w, http.StatusServiceUnavailable, "update already in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	facts, err := s.store.LatestPriceFacts(r.Context(), latestFactsLimit)
	if err != nil {
		zap.L().Error("api: list price facts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, facts)
}

type displayRequest struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

func (s *Server) handleCreateDisplay(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req displayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Payload == nil {
		req.Payload = json.RawMessage("{}")
	}

	display, err := s.store.CreateDisplay(r.Context(), userID, req.Name, req.Payload)
	if err != nil {
		zap.L().Error("api: create display", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, display)
}

func (s *Server) handleListDisplays(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	displays, err := s.store.ListDisplays(r.Context(), userID)
	if err != nil {
		zap.L().Error("api: list displays", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, displays)
}

func (s *Server) handleGetDisplay(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	display, err := s.store.GetDisplay(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "display not found")
			return
		}
		zap.L().Error("api: get display", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, display)
}

func (s *Server) handleUpdateDisplay(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req displayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Payload == nil {
		req.Payload = json.RawMessage("{}")
	}

	display, err := s.store.UpdateDisplay(r.Context(), userID, chi.URLParam(r, "id"), req.Name, req.Payload)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "display not found")
			return
		}
		zap.L().Error("api: update display", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, display)
}

func (s *Server) handleDeleteDisplay(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	if err := s.store.DeleteDisplay(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "display not found")
			return
		}
		zap.L().Error("api: delete display", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
