package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/threesixtyfive/server/internal/middleware"
	"github.com/threesixtyfive/server/internal/models"
	"github.com/threesixtyfive/server/internal/observability"
	"github.com/threesixtyfive/server/internal/repository"
	"github.com/threesixtyfive/server/internal/services"
)

// Reconciler runs the daily photo reconciliation
type Reconciler interface {
	Reconcile(ctx context.Context, accessToken string, year int) (*models.RunSummary, error)
	CurrentYear() int
}

// AccessTokenSource opens the access token held by a session
type AccessTokenSource interface {
	AccessToken(session *models.WebSession) (string, error)
}

// WorkHandler serves the maintenance pages under /work
type WorkHandler struct {
	reconciler Reconciler
	tokens     AccessTokenSource
	photoRepo  repository.PhotoRepo
	utcOffset  string
}

// NewWorkHandler creates a new WorkHandler. utcOffset is shown on the status page.
func NewWorkHandler(reconciler Reconciler, tokens AccessTokenSource, photoRepo repository.PhotoRepo, utcOffset string) *WorkHandler {
	return &WorkHandler{
		reconciler: reconciler,
		tokens:     tokens,
		photoRepo:  photoRepo,
		utcOffset:  utcOffset,
	}
}

// Status renders the work page
func (h *WorkHandler) Status(w http.ResponseWriter, r *http.Request) {
	count, err := h.photoRepo.GetCount(r.Context())
	if err != nil {
		observability.WithContext(r.Context()).WithError(err).Error("Failed to count photos")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	page := workPage{
		Connected:   middleware.GetSessionFromContext(r.Context()) != nil,
		PhotoCount:  count,
		CurrentYear: h.reconciler.CurrentYear(),
		UTCOffset:   h.utcOffset,
	}

	var buf bytes.Buffer
	if err := workTemplate.Execute(&buf, page); err != nil {
		observability.Errorf("Failed to render work page: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// Check reconciles the current year
func (h *WorkHandler) Check(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.reconciler.CurrentYear())
}

// CheckYear reconciles the year named in the path
func (h *WorkHandler) CheckYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year <= 0 {
		respondText(w, http.StatusBadRequest, "Year must be a positive number.")
		return
	}
	h.run(w, r, year)
}

func (h *WorkHandler) run(w http.ResponseWriter, r *http.Request, year int) {
	session := middleware.GetSessionFromContext(r.Context())
	token, err := h.tokens.AccessToken(session)
	if err != nil {
		middleware.ClearSessionCookie(w)
		http.Redirect(w, r, "/work", http.StatusFound)
		return
	}

	summary, err := h.reconciler.Reconcile(r.Context(), token, year)
	if err != nil {
		h.reconcileError(w, r, err)
		return
	}

	respondText(w, http.StatusOK, summary.Message())
}

func (h *WorkHandler) reconcileError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.WithContext(r.Context()).WithError(err)

	var apiErr *services.APIError
	switch {
	case errors.Is(err, services.ErrReconcileInProgress):
		respondText(w, http.StatusConflict, "A check is already running, try again in a moment.")
	case errors.Is(err, models.ErrNoAccessToken):
		middleware.ClearSessionCookie(w)
		http.Redirect(w, r, "/work", http.StatusFound)
	case errors.As(err, &apiErr):
		logger.Warn("Photo service request failed")
		if apiErr.Type == services.ErrorTypeAuth {
			// the token was revoked or expired remotely
			middleware.ClearSessionCookie(w)
			respondText(w, http.StatusBadGateway, "The photo service refused the access token, connect again at /work.")
			return
		}
		respondText(w, http.StatusBadGateway, "The photo service could not be read: "+apiErr.Message)
	case errors.Is(err, services.ErrPaginationLoop), errors.Is(err, context.DeadlineExceeded):
		logger.Warn("Photo feed could not be drained")
		respondText(w, http.StatusBadGateway, "The photo service could not be read completely.")
	default:
		logger.Error("Reconcile failed")
		respondText(w, http.StatusInternalServerError, "Internal error.")
	}
}

// Truncate deletes every saved photo
func (h *WorkHandler) Truncate(w http.ResponseWriter, r *http.Request) {
	if err := h.photoRepo.Truncate(r.Context()); err != nil {
		observability.WithContext(r.Context()).WithError(err).Error("Failed to truncate photos")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	observability.WithContext(r.Context()).Warn("All photos deleted")
	http.Redirect(w, r, "/work", http.StatusSeeOther)
}
