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
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/traincore/traincore/internal/content"
	"github.com/traincore/traincore/internal/observability/logger"
)

// ListContent returns the content visible to the acting principal
func (h *Handler) ListContent(w http.ResponseWriter, r *http.Request) {
	actor := GetActor(r.Context())

	items, err := h.contentResolver.AccessibleContent(r.Context(), actor)
	if err != nil {
		slog.ErrorContext(r.Context(), "content resolution failed",
			logger.Error(err),
			logger.PrincipalID(actor.ID),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"content": items,
	})
}

// CreateContent creates a course, module, or scenario node
func (h *Handler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var spec content.CreateSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if spec.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	actor := GetActor(r.Context())
	c, err := h.contentService.CreateContent(r.Context(), actor, spec)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, c)
}

// GetContent returns a single content node, subject to visibility rules
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "contentID")
	actor := GetActor(r.Context())

	c, err := h.contentService.GetContent(r.Context(), contentID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	visible, err := h.contentResolver.CanView(r.Context(), actor, c)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if !visible {
		// Invisible content is indistinguishable from absent content.
		respondError(w, http.StatusNotFound, content.ErrContentNotFound.Error())
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// ArchiveRequest carries the optional operator-supplied reason
type ArchiveRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ArchiveContent archives a content subtree and cascades to assignments
func (h *Handler) ArchiveContent(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "contentID")

	var req ArchiveRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	actor := GetActor(r.Context())
	archived, err := h.contentArchiver.ArchiveContent(r.Context(), actor, contentID, req.Reason)
	if err != nil {
		slog.ErrorContext(r.Context(), "content archive failed",
			logger.Error(err),
			logger.ContentID(contentID),
		)
		respondDomainError(w, err)
		return
	}

	h.metrics.Archivals.Add(r.Context(), 1)

	respondJSON(w, http.StatusOK, map[string]any{
		"assignments_archived": archived,
	})
}

// RestoreContent restores an archived content node and reactivates exactly
// the assignments its archival batch deactivated
func (h *Handler) RestoreContent(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "contentID")

	actor := GetActor(r.Context())
	restored, err := h.contentArchiver.RestoreContent(r.Context(), actor, contentID)
	if err != nil {
		slog.ErrorContext(r.Context(), "content restore failed",
			logger.Error(err),
			logger.ContentID(contentID),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"assignments_restored": restored,
	})
}

// DetachChild removes a child from its parent's ordered child list
func (h *Handler) DetachChild(w http.ResponseWriter, r *http.Request) {
	parentID := chi.URLParam(r, "contentID")
	childID := chi.URLParam(r, "childID")

	actor := GetActor(r.Context())
	if err := h.contentService.DetachChild(r.Context(), actor, parentID, childID); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "child detached",
	})
}
