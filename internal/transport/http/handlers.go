// Copyright 2026 The TrainCore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/traincore/traincore/internal/assignment"
	"github.com/traincore/traincore/internal/audit"
	"github.com/traincore/traincore/internal/content"
	"github.com/traincore/traincore/internal/observability/metrics"
	"github.com/traincore/traincore/internal/principal"
	"github.com/traincore/traincore/internal/tenant"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	assignmentService *assignment.Service
	contentService    *content.Service
	contentResolver   *content.Resolver
	contentArchiver   *content.Archiver
	principalService  *principal.Service
	tenantService     *tenant.Service
	auditLogger       audit.Logger
	metrics           *metrics.Engine
	authConfig        AuthConfig
}

// AuthConfig holds bearer token validation settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	assignmentService *assignment.Service,
	contentService *content.Service,
	contentResolver *content.Resolver,
	contentArchiver *content.Archiver,
	principalService *principal.Service,
	tenantService *tenant.Service,
	auditLogger audit.Logger,
	engine *metrics.Engine,
	authConfig AuthConfig,
) *Handler {
	return &Handler{
		assignmentService: assignmentService,
		contentService:    contentService,
		contentResolver:   contentResolver,
		contentArchiver:   contentArchiver,
		principalService:  principalService,
		tenantService:     tenantService,
		auditLogger:       auditLogger,
		metrics:           engine,
		authConfig:        authConfig,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Route("/content", func(r chi.Router) {
			r.Get("/", h.ListContent)
			r.Post("/", h.CreateContent)
			r.Route("/{contentID}", func(r chi.Router) {
				r.Get("/", h.GetContent)
				r.Post("/archive", h.ArchiveContent)
				r.Post("/restore", h.RestoreContent)
				r.Delete("/children/{childID}", h.DetachChild)
			})
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Post("/", h.Grant)
			r.Post("/bulk", h.BulkApply)
			r.Post("/progress", h.UpdateProgress)
			r.Post("/remove-mode", h.RemoveMode)
			r.Post("/revoke", h.Revoke)
			r.Get("/principal/{principalID}", h.ListAssignments)
		})

		r.Route("/principals", func(r chi.Router) {
			r.Post("/", h.CreatePrincipal)
			r.Post("/{principalID}/extend-trial", h.ExtendTrial)
		})

		r.Route("/tenants", func(r chi.Router) {
			r.Post("/", h.CreateTenant)
			r.Get("/", h.ListTenants)
			r.Post("/{tenantID}/suspend", h.SuspendTenant)
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "traincore",
	})
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondDomainError maps service errors to HTTP statuses. Typed assignment
// errors carry their code and reason to the client; sentinel errors from the
// other domain packages map individually.
func respondDomainError(w http.ResponseWriter, err error) {
	if e, ok := assignment.AsError(err); ok {
		respondJSON(w, statusForCode(e.Code), map[string]string{
			"error":  string(e.Code),
			"reason": string(e.Reason),
			"detail": e.Detail,
		})
		return
	}

	switch {
	case errors.Is(err, content.ErrContentNotFound),
		errors.Is(err, principal.ErrPrincipalNotFound),
		errors.Is(err, tenant.ErrTenantNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, content.ErrNotCreator),
		errors.Is(err, content.ErrWrongTenant),
		errors.Is(err, content.ErrRoleInsufficient),
		errors.Is(err, principal.ErrRoleInsufficient),
		errors.Is(err, principal.ErrWrongTenant),
		errors.Is(err, tenant.ErrRoleInsufficient):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, content.ErrAlreadyArchived),
		errors.Is(err, content.ErrNotArchived):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, content.ErrInvalidKind),
		errors.Is(err, content.ErrInvalidVisibility),
		errors.Is(err, content.ErrKindMismatch),
		errors.Is(err, content.ErrScenarioNeedsMode),
		errors.Is(err, principal.ErrNotTrialAccount),
		errors.Is(err, principal.ErrInvalidRole),
		errors.Is(err, principal.ErrInvalidExtension),
		errors.Is(err, tenant.ErrInvalidParentKind),
		errors.Is(err, tenant.ErrTenantAlreadyExists):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func statusForCode(code assignment.Code) int {
	switch code {
	case assignment.CodeNotFound:
		return http.StatusNotFound
	case assignment.CodeForbidden:
		return http.StatusForbidden
	case assignment.CodeInvalidState:
		return http.StatusConflict
	case assignment.CodeValidation:
		return http.StatusBadRequest
	case assignment.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
