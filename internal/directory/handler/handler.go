// Package handler exposes the mail directory over the admin HTTP API.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"mailkeep/internal/directory/models"
	"mailkeep/internal/directory/service"
	dErrors "mailkeep/pkg/domain-errors"
	"mailkeep/pkg/platform/httputil"
	"mailkeep/pkg/requestcontext"
)

// Service defines the directory operations the handler needs.
type Service interface {
	CreateUser(ctx context.Context, email, password string, privs []string) (string, error)
	SetPassword(ctx context.Context, email, password string) error
	RemoveUser(ctx context.Context, email string) (string, error)
	Privileges(ctx context.Context, email string) ([]string, error)
	SetPrivilege(ctx context.Context, email, priv string, action service.PrivilegeAction) error
	AddAlias(ctx context.Context, source, destination string, updateIfExists, kick bool) (string, error)
	RemoveAlias(ctx context.Context, source string, kick bool) (string, error)
	ListDomainsWithUsers(ctx context.Context, withArchived, withSizes bool) ([]models.UserDomain, error)
	ListDomainsWithAliases(ctx context.Context) ([]models.AliasDomain, error)
	Reconcile(ctx context.Context, note string) (string, error)
}

// Handler wires directory endpoints to the directory service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a directory handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts directory endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/mail/users", h.HandleListUsers)
	r.Post("/mail/users/add", h.HandleAddUser)
	r.Post("/mail/users/password", h.HandleSetPassword)
	r.Post("/mail/users/remove", h.HandleRemoveUser)
	r.Get("/mail/users/privileges", h.HandleGetPrivileges)
	r.Post("/mail/users/privileges/add", h.HandleAddPrivilege)
	r.Post("/mail/users/privileges/remove", h.HandleRemovePrivilege)
	r.Get("/mail/aliases", h.HandleListAliases)
	r.Post("/mail/aliases/add", h.HandleAddAlias)
	r.Post("/mail/aliases/remove", h.HandleRemoveAlias)
	r.Post("/system/update", h.HandleSystemUpdate)
}

// HandleListUsers handles GET /mail/users requests. The default response is
// the plain list of account addresses; format=json returns the
// domain-grouped view including archived mailboxes.
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Query().Get("format") == "json" {
		withSizes := r.URL.Query().Get("show_sizes") == "1"
		domains, err := h.service.ListDomainsWithUsers(ctx, true, withSizes)
		if err != nil {
			h.logError(ctx, "user listing failed", err)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, domains)
		return
	}

	domains, err := h.service.ListDomainsWithUsers(ctx, false, false)
	if err != nil {
		h.logError(ctx, "user listing failed", err)
		httputil.WriteError(w, err)
		return
	}
	var emails []string
	for _, d := range domains {
		for _, u := range d.Users {
			emails = append(emails, u.Email)
		}
	}
	writeText(w, strings.Join(emails, "\n"))
}

// HandleAddUser handles POST /mail/users/add requests.
func (h *Handler) HandleAddUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[AddUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, err := h.service.CreateUser(ctx, req.Email, req.Password, req.Privileges)
	if err != nil {
		h.logger.ErrorContext(ctx, "user creation failed",
			"request_id", requestID,
			"email", req.Email,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user created",
		"request_id", requestID,
		"email", req.Email,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	writeText(w, report)
}

// HandleSetPassword handles POST /mail/users/password requests.
func (h *Handler) HandleSetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SetPasswordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.SetPassword(ctx, req.Email, req.Password); err != nil {
		h.logError(ctx, "password change failed", err, "email", req.Email)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "password changed", "request_id", requestID, "email", req.Email)
	writeText(w, "OK")
}

// HandleRemoveUser handles POST /mail/users/remove requests.
func (h *Handler) HandleRemoveUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RemoveUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, err := h.service.RemoveUser(ctx, req.Email)
	if err != nil {
		h.logError(ctx, "user removal failed", err, "email", req.Email)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user removed", "request_id", requestID, "email", req.Email)
	writeText(w, report)
}

// HandleGetPrivileges handles GET /mail/users/privileges requests.
func (h *Handler) HandleGetPrivileges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "email is required"))
		return
	}

	privs, err := h.service.Privileges(ctx, email)
	if err != nil {
		h.logError(ctx, "privilege lookup failed", err, "email", email)
		httputil.WriteError(w, err)
		return
	}
	writeText(w, strings.Join(privs, "\n"))
}

// HandleAddPrivilege handles POST /mail/users/privileges/add requests.
func (h *Handler) HandleAddPrivilege(w http.ResponseWriter, r *http.Request) {
	h.setPrivilege(w, r, service.PrivilegeAdd)
}

// HandleRemovePrivilege handles POST /mail/users/privileges/remove requests.
func (h *Handler) HandleRemovePrivilege(w http.ResponseWriter, r *http.Request) {
	h.setPrivilege(w, r, service.PrivilegeRemove)
}

func (h *Handler) setPrivilege(w http.ResponseWriter, r *http.Request, action service.PrivilegeAction) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PrivilegeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.SetPrivilege(ctx, req.Email, req.Privilege, action); err != nil {
		h.logError(ctx, "privilege change failed", err, "email", req.Email)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "privilege changed",
		"request_id", requestID,
		"email", req.Email,
		"privilege", req.Privilege,
		"action", string(action),
	)
	writeText(w, "OK")
}

// HandleListAliases handles GET /mail/aliases requests. The default
// response is the plain list of alias sources; format=json returns the
// domain-grouped view.
func (h *Handler) HandleListAliases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	domains, err := h.service.ListDomainsWithAliases(ctx)
	if err != nil {
		h.logError(ctx, "alias listing failed", err)
		httputil.WriteError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		httputil.WriteJSON(w, http.StatusOK, domains)
		return
	}
	var sources []string
	for _, d := range domains {
		for _, a := range d.Aliases {
			sources = append(sources, a.Source)
		}
	}
	writeText(w, strings.Join(sources, "\n"))
}

// HandleAddAlias handles POST /mail/aliases/add requests.
func (h *Handler) HandleAddAlias(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AddAliasRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, err := h.service.AddAlias(ctx, req.Source, req.Destination, req.UpdateIfExists, true)
	if err != nil {
		h.logError(ctx, "alias creation failed", err, "source", req.Source)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "alias saved", "request_id", requestID, "source", req.Source)
	writeText(w, report)
}

// HandleRemoveAlias handles POST /mail/aliases/remove requests.
func (h *Handler) HandleRemoveAlias(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RemoveAliasRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, err := h.service.RemoveAlias(ctx, req.Source, true)
	if err != nil {
		h.logError(ctx, "alias removal failed", err, "source", req.Source)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "alias removed", "request_id", requestID, "source", req.Source)
	writeText(w, report)
}

// HandleSystemUpdate handles POST /system/update requests: a manual
// reconciliation pass returning the full report.
func (h *Handler) HandleSystemUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	report, err := h.service.Reconcile(ctx, "")
	if err != nil {
		h.logError(ctx, "reconciliation failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "reconciliation run",
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	writeText(w, report)
}

func (h *Handler) logError(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "request_id", requestcontext.RequestID(ctx), "error", err)
	h.logger.ErrorContext(ctx, msg, args...)
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
