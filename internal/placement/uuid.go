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

import (
	"crypto/rand"
	"encoding/hex"
)

// NewUUID returns a short random identifier (8 hex characters). Sub-graphs
// split off a job are named from the job's own uuid instead.
func NewUUID() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(&FatalError{Op: "placement.NewUUID", Dump: err.Error()})
	}
	return hex.EncodeToString(b[:])
}
