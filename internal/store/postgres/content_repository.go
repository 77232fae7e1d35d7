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

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/traincore/traincore/internal/content"
)

// ContentRepository implements content.Repository
type ContentRepository struct {
	db *DB
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *DB) *ContentRepository {
	return &ContentRepository{db: db}
}

const contentColumns = `id, kind, title, owning_tenant_id, creator_id, visibility, archived, archive_batch_id, parent_id, child_ids, modes, created_at, updated_at`

func scanContent(row pgx.Row) (*content.Content, error) {
	var c content.Content
	var batchID, parentID sql.NullString
	if err := row.Scan(
		&c.ID, &c.Kind, &c.Title, &c.OwningTenantID, &c.CreatorID, &c.Visibility,
		&c.Archived, &batchID, &parentID, &c.ChildIDs, &c.Modes, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if batchID.Valid {
		c.ArchiveBatchID = &batchID.String
	}
	if parentID.Valid {
		c.ParentID = &parentID.String
	}
	return &c, nil
}

func (r *ContentRepository) queryMany(ctx context.Context, query string, args ...any) ([]*content.Content, error) {
	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*content.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// Create creates a new content node
func (r *ContentRepository) Create(ctx context.Context, c *content.Content) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO content (`+contentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, c.ID, c.Kind, c.Title, c.OwningTenantID, c.CreatorID, c.Visibility,
		c.Archived, c.ArchiveBatchID, c.ParentID, c.ChildIDs, c.Modes, c.CreatedAt, c.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create content: %w", err)
	}
	return nil
}

// GetByID retrieves a content node by ID
func (r *ContentRepository) GetByID(ctx context.Context, id string) (*content.Content, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+contentColumns+` FROM content WHERE id = $1
	`, id)

	c, err := scanContent(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, content.ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	return c, nil
}

// GetByIDs retrieves content nodes by ID set
func (r *ContentRepository) GetByIDs(ctx context.Context, ids []string) ([]*content.Content, error) {
	items, err := r.queryMany(ctx, `
		SELECT `+contentColumns+` FROM content WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get content by ids: %w", err)
	}
	return items, nil
}

// ListByTenant retrieves all content owned by a tenant
func (r *ContentRepository) ListByTenant(ctx context.Context, tenantID string) ([]*content.Content, error) {
	items, err := r.queryMany(ctx, `
		SELECT `+contentColumns+` FROM content WHERE owning_tenant_id = $1 ORDER BY created_at
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant content: %w", err)
	}
	return items, nil
}

// ListByParent retrieves the direct children of a node
func (r *ContentRepository) ListByParent(ctx context.Context, parentID string) ([]*content.Content, error) {
	items, err := r.queryMany(ctx, `
		SELECT `+contentColumns+` FROM content WHERE parent_id = $1
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	return items, nil
}

// ListGlobalRoot retrieves GLOBAL-visibility content owned by root tenants
func (r *ContentRepository) ListGlobalRoot(ctx context.Context) ([]*content.Content, error) {
	items, err := r.queryMany(ctx, `
		SELECT c.id, c.kind, c.title, c.owning_tenant_id, c.creator_id, c.visibility,
		       c.archived, c.archive_batch_id, c.parent_id, c.child_ids, c.modes, c.created_at, c.updated_at
		FROM content c
		JOIN tenants t ON t.id = c.owning_tenant_id
		WHERE c.visibility = 'global' AND t.kind = 'root'
		ORDER BY c.created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list global content: %w", err)
	}
	return items, nil
}

// ListAll retrieves all content with pagination
func (r *ContentRepository) ListAll(ctx context.Context, limit, offset int) ([]*content.Content, error) {
	items, err := r.queryMany(ctx, `
		SELECT `+contentColumns+` FROM content ORDER BY created_at LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	return items, nil
}

// AddChild appends childID to the parent's ordered child list. Add-to-set
// semantics: appending an already-present child is a no-op.
func (r *ContentRepository) AddChild(ctx context.Context, parentID, childID string) error {
	_, err := r.db.pool.Exec(ctx, `
		UPDATE content
		SET child_ids = array_append(child_ids, $2), updated_at = NOW()
		WHERE id = $1 AND NOT (child_ids @> ARRAY[$2])
	`, parentID, childID)

	if err != nil {
		return fmt.Errorf("failed to add child: %w", err)
	}
	return nil
}

// RemoveChild removes childID from the parent's child list
func (r *ContentRepository) RemoveChild(ctx context.Context, parentID, childID string) error {
	_, err := r.db.pool.Exec(ctx, `
		UPDATE content
		SET child_ids = array_remove(child_ids, $2), updated_at = NOW()
		WHERE id = $1
	`, parentID, childID)

	if err != nil {
		return fmt.Errorf("failed to remove child: %w", err)
	}
	return nil
}

// SetArchived flips the archived flag and the archive batch marker
func (r *ContentRepository) SetArchived(ctx context.Context, id string, archived bool, batchID *string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE content
		SET archived = $2, archive_batch_id = $3, updated_at = NOW()
		WHERE id = $1
	`, id, archived, batchID)

	if err != nil {
		return fmt.Errorf("failed to set archived: %w", err)
	}
	if result.RowsAffected() == 0 {
		return content.ErrContentNotFound
	}
	return nil
}
