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

// Package id generates entity identifiers. All identifiers are UUIDv7
// strings so they sort by creation time and stay opaque to the store.
package id

import "github.com/google/uuid"

// NewUUIDv7 returns a new time-ordered UUID string. Falls back to UUIDv4
// if the monotonic source fails, which only happens when the system clock
// is unreadable.
func NewUUIDv7() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v7.String()
}
