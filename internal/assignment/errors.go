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

package assignment

import (
	"errors"
	"fmt"
)

// Code classifies an engine error for callers.
type Code string

const (
	CodeNotFound         Code = "not_found"
	CodeForbidden        Code = "forbidden"
	CodeInvalidState     Code = "invalid_state"
	CodeValidation       Code = "validation_error"
	CodeStoreUnavailable Code = "store_unavailable"
)

// Reason is a machine-readable refinement of the code.
type Reason string

const (
	ReasonNotCreator        Reason = "not_creator"
	ReasonWrongTenant       Reason = "wrong_tenant"
	ReasonRoleInsufficient  Reason = "role_insufficient"
	ReasonParentNotAssigned Reason = "parent_not_assigned"
	ReasonChainMismatch     Reason = "chain_mismatch"
	ReasonContentArchived   Reason = "content_archived"
	ReasonOnlyModeRemaining Reason = "only_mode_remaining"
	ReasonInvalidGrant      Reason = "invalid_grant"
	ReasonUnknownMode       Reason = "unknown_mode"
)

// Error is the typed engine error surfaced to callers. Authorization and
// state errors pass through verbatim; they are never downgraded on the way
// out.
type Error struct {
	Code   Code   `json:"code"`
	Reason Reason `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Reason, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// NewError creates a new engine error
func NewError(code Code, reason Reason, detail string) *Error {
	return &Error{Code: code, Reason: reason, Detail: detail}
}

// NotFound reports a missing content, principal, or assignment record.
func NotFound(detail string) *Error {
	return &Error{Code: CodeNotFound, Detail: detail}
}

// Forbidden reports an authorization failure with its reason.
func Forbidden(reason Reason, detail string) *Error {
	return &Error{Code: CodeForbidden, Reason: reason, Detail: detail}
}

// InvalidState reports a state-machine violation.
func InvalidState(reason Reason, detail string) *Error {
	return &Error{Code: CodeInvalidState, Reason: reason, Detail: detail}
}

// Validation reports malformed input.
func Validation(reason Reason, detail string) *Error {
	return &Error{Code: CodeValidation, Reason: reason, Detail: detail}
}

// StoreUnavailable wraps an external-store failure as a retryable error.
func StoreUnavailable(err error) *Error {
	return &Error{Code: CodeStoreUnavailable, Detail: err.Error()}
}

// AsError extracts a typed engine error, if err carries one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
