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

package flow

import (
	"fmt"
	"sort"

	"streamplace/internal/placement"
)

// maxCutOptionIterations bounds the shrinking-chain loop in GenerateCutOptions.
// Each iteration strictly shrinks the s-cut by at least one vertex, so a job
// with a finite vertex count always terminates well under this; a hit means
// the min-cut/shrink loop itself is broken, not that the job is unusually
// large.
const maxCutOptionIterations = 100

// CutOption is one candidate split of a job across the edge/cloud boundary.
type CutOption struct {
	SCut map[string]bool
	TCut map[string]bool
	Flow int64
}

// GenerateCutOptions returns every candidate edge/cloud split for job g, from
// g's own min-cut down to progressively smaller s-cuts, by re-running
// min-cut on the shrinking s-side sub-graph each round. Each option's flow
// is recomputed against the full job, not the shrunken sub-graph. Callers
// sort by Flow themselves.
func GenerateCutOptions(g *placement.Job) []CutOption {
	all := map[string]bool{}
	for _, v := range g.Vertices() {
		all[v.ID] = true
	}

	cut := MinCut(g)
	options := []CutOption{{SCut: cut.SCut, TCut: cut.TCut, Flow: cut.Flow}}

	sCut := cut.SCut
	iterations := 0
	for len(sCut) > 1 {
		iterations++
		if iterations > maxCutOptionIterations {
			panic(&placement.FatalError{
				Op:   "flow.GenerateCutOptions",
				Job:  g.UUID,
				Dump: fmt.Sprintf("cut-option chain exceeded %d iterations without shrinking to a single vertex", maxCutOptionIterations),
			})
		}
		sub := g.SubGraph(sCut, g.UUID+"-shrink")
		subCut := MinCut(sub)
		sCut = subCut.SCut

		tCut := map[string]bool{}
		for id := range all {
			if !sCut[id] {
				tCut[id] = true
			}
		}
		options = append(options, CutOption{
			SCut: sCut,
			TCut: tCut,
			Flow: crossBandwidth(g, sCut, tCut),
		})
	}
	return options
}

// SortByFlow sorts options ascending by crossing bandwidth, the order the
// scheduler prefers them in (smallest cross-boundary flow first).
func SortByFlow(options []CutOption) {
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Flow < options[j].Flow
	})
}
