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
	"sort"

	"streamplace/internal/placement"
)

const (
	fakeSource = "\x00fsource"
	fakeSink   = "\x00fsink"
)

// buildNetwork constructs the residual flow network for job g: one edge per
// dataflow edge (capacity = bandwidth), a fake source feeding every
// zero-in-degree vertex at infinite capacity, and a fake sink fed by every
// zero-out-degree vertex. True sinks always drain at infinite capacity, so
// every sink ends up on the t-side of the cut. Operators that are merely
// out-degree-0 (the s-side boundary of a previous cut, seen again while
// shrinking) drain at their own downstream bandwidth instead — except the
// one with the smallest upstream bandwidth, which keeps infinite capacity.
// This heterogeneous-capacity rule biases the cut toward keeping
// high-traffic boundary operators on the s-side rather than trivially
// re-severing whichever boundary carries the least upstream traffic.
func buildNetwork(g *placement.Job) *Graph {
	net := NewGraph()
	for _, v := range g.Vertices() {
		net.AddNode(v.ID)
	}
	for _, e := range g.Edges() {
		net.AddEdge(e.From, e.To, e.Bandwidth())
	}

	net.AddNode(fakeSource)
	for _, v := range g.InVertices() {
		net.AddEdge(fakeSource, v.ID, MaxEdgeCapacity)
	}

	net.AddNode(fakeSink)
	outVertices := g.OutVertices()
	sort.Slice(outVertices, func(i, j int) bool {
		return outVertices[i].UpstreamBD < outVertices[j].UpstreamBD
	})
	for i, v := range outVertices {
		cap := MaxEdgeCapacity
		if i > 0 && v.Role != placement.RoleSink {
			cap = v.DownstreamBD
		}
		net.AddEdge(v.ID, fakeSink, cap)
	}
	return net
}

// Cut is the result of a min-cut pass over a job: the vertex ids left on the
// source side, the vertex ids on the sink side, and the bandwidth crossing
// between them.
type Cut struct {
	SCut map[string]bool
	TCut map[string]bool
	Flow int64
}

// MinCut partitions g's vertices into an edge-resident side (SCut) and a
// cloud-resident side (TCut) by min s-t cut, s and t being synthetic nodes
// wired to g's sources and sinks.
func MinCut(g *placement.Job) Cut {
	net := buildNetwork(g)
	net.MaxFlow(fakeSource, fakeSink)

	reached := net.Reachable(fakeSource)
	sCut := map[string]bool{}
	for id := range reached {
		if id != fakeSource && id != fakeSink {
			sCut[id] = true
		}
	}
	tCut := map[string]bool{}
	for _, v := range g.Vertices() {
		if !sCut[v.ID] {
			tCut[v.ID] = true
		}
	}
	return Cut{SCut: sCut, TCut: tCut, Flow: crossBandwidth(g, sCut, tCut)}
}

// crossBandwidth sums the bandwidth of every edge running from the s-side to
// the t-side of a cut.
func crossBandwidth(g *placement.Job, sCut, tCut map[string]bool) int64 {
	var total int64
	for _, e := range g.Edges() {
		if sCut[e.From] && tCut[e.To] {
			total += e.Bandwidth()
		}
	}
	return total
}
