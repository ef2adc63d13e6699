// Package web is the HTTP driving adapter for the OAuth authorization flow
// and operational endpoints.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/akaul/splitgate/internal/domain/model"
)

// AuthFlow is the slice of the auth service the web handlers drive.
type AuthFlow interface {
	BeginAuth(ctx context.Context) (string, error)
	CompleteAuth(ctx context.Context, state, code string) (*model.Grant, error)
}

// Handler serves the browser-facing authorization pages.
type Handler struct {
	auth      AuthFlow
	publicURL string
	logger    *slog.Logger
}

// NewHandler creates a Handler. publicURL is the externally reachable base
// URL used to build the personal MCP endpoint shown after authorization.
func NewHandler(auth AuthFlow, publicURL string, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, publicURL: publicURL, logger: logger}
}

// NewServeMux creates an http.Handler with all web routes registered and
// wrapped with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Landing)
	mux.HandleFunc("GET /authorize", h.Authorize)
	mux.HandleFunc("GET /callback", h.Callback)
	mux.HandleFunc("GET /healthz", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Landing explains the gateway and links to /authorize.
func (h *Handler) Landing(w http.ResponseWriter, r *http.Request) {
	renderPage(w, http.StatusOK, landingTmpl, nil)
}

// Authorize starts the OAuth flow by redirecting the browser to Splitwise.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.auth.BeginAuth(r.Context())
	if err != nil {
		h.logger.Error("begin auth failed", "error", err)
		renderPage(w, http.StatusInternalServerError, errorTmpl, errorData{
			Message: "Could not start authorization. Please try again.",
		})
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback completes the OAuth flow: it validates the state, exchanges the
// code, and shows the user their personal MCP endpoint URL.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if denied := q.Get("error"); denied != "" {
		h.logger.Warn("authorization declined at provider", "error", denied)
		renderPage(w, http.StatusForbidden, errorTmpl, errorData{
			Message: "Authorization was declined. No access was granted.",
		})
		return
	}

	grant, err := h.auth.CompleteAuth(r.Context(), q.Get("state"), q.Get("code"))
	switch {
	case errors.Is(err, model.ErrInvalidState):
		renderPage(w, http.StatusBadRequest, errorTmpl, errorData{
			Message: "This authorization link is invalid or has expired. Start again from the home page.",
		})
		return
	case errors.Is(err, model.ErrAuthorizationDenied):
		renderPage(w, http.StatusForbidden, errorTmpl, errorData{
			Message: "Splitwise rejected the authorization. Start again from the home page.",
		})
		return
	case errors.Is(err, model.ErrUpstreamUnavailable):
		renderPage(w, http.StatusServiceUnavailable, errorTmpl, errorData{
			Message: "Splitwise is unreachable right now. Try again in a minute.",
		})
		return
	case err != nil:
		h.logger.Error("complete auth failed", "error", err)
		renderPage(w, http.StatusInternalServerError, errorTmpl, errorData{
			Message: "Something went wrong completing authorization. Please try again.",
		})
		return
	}

	renderPage(w, http.StatusOK, successTmpl, successData{
		UserName: grant.UserName,
		MCPURL:   h.publicURL + "/mcp?token=" + grant.Token,
	})
}

// Health reports liveness for container orchestration probes.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","time":"` + time.Now().UTC().Format(time.RFC3339) + `"}`))
}
