// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package placement

import "fmt"

// FailureReason classifies why a single job could not be placed. A failed
// job is expected control flow, not a Go error — the scheduler collects one
// of these per failed job and moves on to the next.
type FailureReason string

const (
	ReasonSourcesNotInSingleDomain    FailureReason = "sources-not-in-single-domain"
	ReasonInsufficientResourceSources FailureReason = "insufficient-resource-for-sources"
	ReasonSlotsNotEnough              FailureReason = "slots-not-enough"
	ReasonNoAvailableHost             FailureReason = "no-available-host"
	ReasonDomainConstraintViolation   FailureReason = "domain-constraint-violation"
)

func (r FailureReason) String() string { return string(r) }

// FatalError marks an internal invariant violation — a malformed scenario,
// a cut-option generator that failed to terminate, a provisioning tree stuck
// past its watchdog. Unlike FailureReason, this always indicates a bug in
// the caller's input or this package, never a legitimate placement failure.
type FatalError struct {
	Op   string // the operation that detected the violation
	Job  string // offending job uuid, if any
	Dump string // diagnostic snapshot (cut chain, tree state, ...)
}

func (e *FatalError) Error() string {
	if e.Job != "" {
		return fmt.Sprintf("placement: fatal: %s (job %s): %s", e.Op, e.Job, e.Dump)
	}
	return fmt.Sprintf("placement: fatal: %s: %s", e.Op, e.Dump)
}
