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
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/traincore/traincore/internal/assignment"
)

// AssignmentRepository implements assignment.Repository
type AssignmentRepository struct {
	db *DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, principal_id, content_id, content_kind, course_id, module_id, scenario_id,
	granted_by, granted_by_tenant, source_tenant, context, active, archived_reason, archive_batch_id,
	completed, completed_at, assigned_modes, mode_progress, created_at, updated_at`

func scanAssignment(row pgx.Row) (*assignment.Assignment, error) {
	var a assignment.Assignment
	var moduleID, scenarioID, archivedReason, batchID sql.NullString
	var completedAt sql.NullTime
	var progress []byte

	if err := row.Scan(
		&a.ID, &a.PrincipalID, &a.ContentID, &a.ContentKind, &a.CourseID, &moduleID, &scenarioID,
		&a.GrantedBy, &a.GrantedByTenant, &a.SourceTenant, &a.Context, &a.Active, &archivedReason, &batchID,
		&a.Completed, &completedAt, &a.AssignedModes, &progress, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if moduleID.Valid {
		a.ModuleID = &moduleID.String
	}
	if scenarioID.Valid {
		a.ScenarioID = &scenarioID.String
	}
	if archivedReason.Valid {
		a.ArchivedReason = &archivedReason.String
	}
	if batchID.Valid {
		a.ArchiveBatchID = &batchID.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	if len(progress) > 0 {
		if err := json.Unmarshal(progress, &a.ModeProgress); err != nil {
			return nil, fmt.Errorf("failed to decode mode progress: %w", err)
		}
	}
	return &a, nil
}

func encodeProgress(a *assignment.Assignment) ([]byte, error) {
	if a.ModeProgress == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a.ModeProgress)
}

// Create creates a new assignment record
func (r *AssignmentRepository) Create(ctx context.Context, a *assignment.Assignment) error {
	progress, err := encodeProgress(a)
	if err != nil {
		return err
	}

	_, err = r.db.pool.Exec(ctx, `
		INSERT INTO assignments (`+assignmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`, a.ID, a.PrincipalID, a.ContentID, a.ContentKind, a.CourseID, a.ModuleID, a.ScenarioID,
		a.GrantedBy, a.GrantedByTenant, a.SourceTenant, a.Context, a.Active, a.ArchivedReason, a.ArchiveBatchID,
		a.Completed, a.CompletedAt, a.AssignedModes, progress, a.CreatedAt, a.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

// GetByPair retrieves the record for (principal, content) in any lifecycle
// state. Returns (nil, nil) when no record exists.
func (r *AssignmentRepository) GetByPair(ctx context.Context, principalID, contentID string) (*assignment.Assignment, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE principal_id = $1 AND content_id = $2
	`, principalID, contentID)

	a, err := scanAssignment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// GetActiveByPair retrieves the record only while active. Returns
// (nil, nil) when no active record exists.
func (r *AssignmentRepository) GetActiveByPair(ctx context.Context, principalID, contentID string) (*assignment.Assignment, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE principal_id = $1 AND content_id = $2 AND active
	`, principalID, contentID)

	a, err := scanAssignment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active assignment: %w", err)
	}
	return a, nil
}

// Update persists the full mutable state of a record
func (r *AssignmentRepository) Update(ctx context.Context, a *assignment.Assignment) error {
	progress, err := encodeProgress(a)
	if err != nil {
		return err
	}

	result, err := r.db.pool.Exec(ctx, `
		UPDATE assignments
		SET granted_by = $2, granted_by_tenant = $3, source_tenant = $4, context = $5,
		    active = $6, archived_reason = $7, archive_batch_id = $8,
		    completed = $9, completed_at = $10, assigned_modes = $11, mode_progress = $12,
		    updated_at = $13
		WHERE id = $1
	`, a.ID, a.GrantedBy, a.GrantedByTenant, a.SourceTenant, a.Context,
		a.Active, a.ArchivedReason, a.ArchiveBatchID,
		a.Completed, a.CompletedAt, a.AssignedModes, progress, a.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("assignment %s not found", a.ID)
	}
	return nil
}

func (r *AssignmentRepository) queryMany(ctx context.Context, query string, args ...any) ([]*assignment.Assignment, error) {
	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*assignment.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// ListActiveByPrincipal retrieves all active assignments of a principal
func (r *AssignmentRepository) ListActiveByPrincipal(ctx context.Context, principalID string) ([]*assignment.Assignment, error) {
	items, err := r.queryMany(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE principal_id = $1 AND active
		ORDER BY created_at
	`, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return items, nil
}

// ListActiveChildren retrieves the principal's active assignments whose
// direct parent in the content chain is parentContentID: scenario
// assignments under a module, or module assignments under a course.
func (r *AssignmentRepository) ListActiveChildren(ctx context.Context, principalID, parentContentID string) ([]*assignment.Assignment, error) {
	items, err := r.queryMany(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE principal_id = $1 AND active
		  AND ((content_kind = 'scenario' AND module_id = $2)
		    OR (content_kind = 'module' AND course_id = $2))
	`, principalID, parentContentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child assignments: %w", err)
	}
	return items, nil
}

// ArchiveSubtree archives the principal's active assignments for the
// content node and everything below it in the chain
func (r *AssignmentRepository) ArchiveSubtree(ctx context.Context, principalID, contentID, reason string) (int64, error) {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE assignments
		SET active = FALSE, archived_reason = $3, archive_batch_id = NULL, updated_at = NOW()
		WHERE principal_id = $1 AND active
		  AND (content_id = $2 OR course_id = $2 OR module_id = $2 OR scenario_id = $2)
	`, principalID, contentID, reason)

	if err != nil {
		return 0, fmt.Errorf("failed to archive assignment subtree: %w", err)
	}
	return result.RowsAffected(), nil
}

// ArchiveByContent archives every active assignment touching the given
// content ids, stamping the batch id and cascade reason
func (r *AssignmentRepository) ArchiveByContent(ctx context.Context, contentIDs []string, batchID, reason string) (int64, error) {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE assignments
		SET active = FALSE, archived_reason = $2, archive_batch_id = $3, updated_at = NOW()
		WHERE active AND content_id = ANY($1)
	`, contentIDs, reason, batchID)

	if err != nil {
		return 0, fmt.Errorf("failed to archive assignments by content: %w", err)
	}
	return result.RowsAffected(), nil
}

// ReactivateByBatch reactivates exactly the assignments archived under the
// given batch id
func (r *AssignmentRepository) ReactivateByBatch(ctx context.Context, batchID string) (int64, error) {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE assignments
		SET active = TRUE, archived_reason = NULL, archive_batch_id = NULL, updated_at = NOW()
		WHERE NOT active AND archive_batch_id = $1
	`, batchID)

	if err != nil {
		return 0, fmt.Errorf("failed to reactivate assignments: %w", err)
	}
	return result.RowsAffected(), nil
}

// ActiveContentIDs retrieves the content ids of a principal's active
// assignments
func (r *AssignmentRepository) ActiveContentIDs(ctx context.Context, principalID string) ([]string, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT content_id FROM assignments WHERE principal_id = $1 AND active
	`, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active content ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan content id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
