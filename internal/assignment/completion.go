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

import "time"

// Completion is recomputed by exactly one pure function per level so that
// every mutation path that can change a leaf flows through the same AND.

// modesComplete reports whether every assigned mode of a scenario
// assignment is completed. An empty assigned set is never complete.
func modesComplete(a *Assignment) bool {
	if len(a.AssignedModes) == 0 {
		return false
	}
	for _, mode := range a.AssignedModes {
		if !a.ModeProgress[mode].Completed {
			return false
		}
	}
	return true
}

// childrenComplete reports whether every active child assignment is
// completed. Archived assignments never reach this function; an empty
// child set is never complete.
func childrenComplete(children []*Assignment) bool {
	if len(children) == 0 {
		return false
	}
	for _, child := range children {
		if !child.Completed {
			return false
		}
	}
	return true
}

// applyCompletion moves an assignment to the given completion state,
// stamping CompletedAt when the AND first becomes true and clearing it
// when it turns false. Returns whether the record changed.
func applyCompletion(a *Assignment, complete bool, at time.Time) bool {
	if a.Completed == complete {
		return false
	}
	a.Completed = complete
	if complete {
		t := at
		a.CompletedAt = &t
	} else {
		a.CompletedAt = nil
	}
	return true
}
