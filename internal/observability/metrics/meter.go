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

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Engine holds the engine-level instruments recorded by the write paths.
type Engine struct {
	Grants      metric.Int64Counter
	Revocations metric.Int64Counter
	Archivals   metric.Int64Counter
	BulkItems   metric.Int64Counter
}

// New builds the engine instruments against the global meter provider.
func New(ctx context.Context, serviceName string) (*Engine, error) {
	meter := otel.Meter(serviceName)

	grants, err := meter.Int64Counter("traincore.assignments.granted",
		metric.WithDescription("Assignments granted or reactivated"))
	if err != nil {
		return nil, fmt.Errorf("failed to create grants counter: %w", err)
	}
	revocations, err := meter.Int64Counter("traincore.assignments.revoked",
		metric.WithDescription("Assignments archived by revocation"))
	if err != nil {
		return nil, fmt.Errorf("failed to create revocations counter: %w", err)
	}
	archivals, err := meter.Int64Counter("traincore.content.archived",
		metric.WithDescription("Content archival cascades executed"))
	if err != nil {
		return nil, fmt.Errorf("failed to create archivals counter: %w", err)
	}
	bulkItems, err := meter.Int64Counter("traincore.bulk.items",
		metric.WithDescription("Bulk operation items processed, by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create bulk items counter: %w", err)
	}

	return &Engine{
		Grants:      grants,
		Revocations: revocations,
		Archivals:   archivals,
		BulkItems:   bulkItems,
	}, nil
}

// RecordBulkItem counts one processed bulk item by outcome.
func (e *Engine) RecordBulkItem(ctx context.Context, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	e.BulkItems.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
