// cmd/webblocd/handlers.go
//
// Gated content API handlers.  Every handler runs behind auth.Require, so
// the key context is always present and identifies the tenant; handlers
// acquire the tenant handle per request and never cache it themselves.
package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/webbloc/internal/middleware"
	"github.com/yanizio/webbloc/internal/tenant"
	"github.com/yanizio/webbloc/internal/webbloc"
)

type handlers struct {
	tenants *tenant.Service
	log     *zap.SugaredLogger
}

func (h *handlers) acquire(w http.ResponseWriter, r *http.Request) *tenant.Handle {
	kc := middleware.KeyContext(r)
	handle, err := h.tenants.Acquire(r.Context(), kc.TenantID())
	if err != nil {
		h.log.Errorw("acquire tenant", "tenant", kc.TenantID(), "err", err)
		writeJSON(w, http.StatusServiceUnavailable,
			map[string]string{"error": "tenant_unavailable"})
		return nil
	}
	return handle
}

type createBlocRequest struct {
	PageURL   string          `json:"page_url"`
	UserID    *uint64         `json:"user_id"`
	ParentID  *uint64         `json:"parent_id"`
	SortOrder int             `json:"sort_order"`
	Data      webbloc.JSONMap `json:"data"`
	Metadata  webbloc.JSONMap `json:"metadata"`
}

func (h *handlers) createBloc(w http.ResponseWriter, r *http.Request) {
	handle := h.acquire(w, r)
	if handle == nil {
		return
	}

	var req createBlocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PageURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request"})
		return
	}

	b := &webbloc.WebBloc{
		Type:      chi.URLParam(r, "type"),
		UserID:    req.UserID,
		PageURL:   req.PageURL,
		Data:      req.Data,
		Metadata:  req.Metadata,
		ParentID:  req.ParentID,
		SortOrder: req.SortOrder,
	}
	if err := webbloc.Create(r.Context(), handle, b); err != nil {
		// A missing parent or user surfaces as an FK violation; that is a
		// caller mistake, not a server fault.
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			writeJSON(w, http.StatusUnprocessableEntity,
				map[string]string{"error": "unknown_parent_or_user"})
			return
		}
		h.tenants.ReportFailure(r.Context(), handle, err)
		h.log.Errorw("create webbloc", "tenant", handle.TenantID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *handlers) listBlocs(w http.ResponseWriter, r *http.Request) {
	handle := h.acquire(w, r)
	if handle == nil {
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	rows, err := webbloc.ListByPage(r.Context(), handle,
		q.Get("page_url"), chi.URLParam(r, "type"), limit, offset)
	if err != nil {
		h.tenants.ReportFailure(r.Context(), handle, err)
		h.log.Errorw("list webblocs", "tenant", handle.TenantID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}

func (h *handlers) getBloc(w http.ResponseWriter, r *http.Request) {
	handle := h.acquire(w, r)
	if handle == nil {
		return
	}

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_id"})
		return
	}
	b, err := webbloc.ByID(r.Context(), handle, id)
	if errors.Is(err, webbloc.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	}
	if err != nil {
		h.tenants.ReportFailure(r.Context(), handle, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	children, err := webbloc.Children(r.Context(), handle, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": b, "children": children})
}

func (h *handlers) deleteBloc(w http.ResponseWriter, r *http.Request) {
	handle := h.acquire(w, r)
	if handle == nil {
		return
	}

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_id"})
		return
	}
	if err := webbloc.Delete(r.Context(), handle, id); err != nil {
		h.tenants.ReportFailure(r.Context(), handle, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type registerUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handlers) registerUser(w http.ResponseWriter, r *http.Request) {
	handle := h.acquire(w, r)
	if handle == nil {
		return
	}

	var req registerUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request"})
		return
	}
	u, err := webbloc.RegisterUser(r.Context(), handle, req.Name, req.Email, req.Password)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email_taken"})
			return
		}
		h.tenants.ReportFailure(r.Context(), handle, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *handlers) tenantStats(w http.ResponseWriter, r *http.Request) {
	kc := middleware.KeyContext(r)
	st, err := h.tenants.StatsFor(r.Context(), kc.TenantID())
	if err != nil {
		h.log.Errorw("tenant stats", "tenant", kc.TenantID(), "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
