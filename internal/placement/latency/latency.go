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

// Package latency estimates, for an already-placed job, the end-to-end
// latency reaching each vertex and how often the transmission time on an
// edge would exceed the producer's emission interval (back-pressure). It is
// a one-shot boundary computation run after placement, not a continuously
// updated stream metric.
package latency

import (
	"streamplace/internal/placement"
	"streamplace/internal/placement/topology"
)

// scheduledGraph pairs a placed job with the node assignment that placed it.
type scheduledGraph struct {
	job    *placement.Job
	result *placement.SchedulingResult
}

// Calculator estimates per-vertex latency and back-pressure across a set of
// already-scheduled jobs sharing one physical topology.
type Calculator struct {
	graph  *topology.Graph
	graphs []scheduledGraph
}

// New builds a calculator over the given physical topology (typically
// Scenario.FullGraph, so cross-domain host pairs are reachable).
func New(graph *topology.Graph) *Calculator {
	return &Calculator{graph: graph}
}

// AddScheduledGraph registers a fully-placed job and occupies, on the
// topology's links, the bandwidth every one of its edges now routes across
// its assigned nodes' shortest path. A job that isn't fully assigned is
// rejected rather than silently scored.
func (c *Calculator) AddScheduledGraph(g *placement.Job, result *placement.SchedulingResult) bool {
	if !result.CheckComplete(g) {
		return false
	}
	c.graphs = append(c.graphs, scheduledGraph{job: g, result: result})
	for _, e := range g.Edges() {
		from, _ := result.GetScheduledNode(e.From)
		to, _ := result.GetScheduledNode(e.To)
		c.occupyPath(from, to, e.Bandwidth())
	}
	return true
}

func (c *Calculator) occupyPath(from, to string, bd int64) {
	if from == to {
		return
	}
	for _, l := range c.graph.ShortestPath(from, to) {
		l.Occupy(bd)
	}
}

// Result holds one job's computed tail latency (ms, reaching its last
// topologically-ordered vertex) and its fraction of edges exhibiting
// back-pressure.
type Result struct {
	JobUUID      string
	LatencyMS    float64
	BackPressure float64
}

// Compute returns one Result per job registered via AddScheduledGraph.
func (c *Calculator) Compute() []Result {
	out := make([]Result, 0, len(c.graphs))
	for _, sg := range c.graphs {
		lat, bpCount := c.jobLatency(sg)
		numEdges := len(sg.job.Edges())
		bpRate := 0.0
		if numEdges > 0 {
			bpRate = float64(bpCount) / float64(numEdges)
		}
		out = append(out, Result{JobUUID: sg.job.UUID, LatencyMS: lat, BackPressure: bpRate})
	}
	return out
}

// jobLatency walks sg's vertices in topological order, at each vertex
// averaging (predecessor-latency + intrinsic link latency + transmission
// latency) over every incoming edge, then adding that vertex's own
// computation latency.
// FIXME: averaging over incoming edges under-weights the slowest producer
// at true fan-in vertices; per-path maxima would need queueing state this
// calculator doesn't model.
func (c *Calculator) jobLatency(sg scheduledGraph) (float64, int) {
	order, err := sg.job.TopologicalOrder()
	if err != nil {
		return 0, 0
	}

	latencyByVertex := map[string]float64{}
	backPressure := 0
	var lastID string

	for _, v := range order {
		ups := sg.job.UpVertices(v.ID)
		vNode, _ := sg.result.GetScheduledNode(v.ID)

		var sum float64
		for _, u := range ups {
			uNode, _ := sg.result.GetScheduledNode(u.ID)
			edge, _ := sg.job.Edge(u.ID, v.ID)

			intrinsic := c.intrinsicLatency(uNode, vNode)
			transmission := c.transmissionLatency(uNode, vNode, edge.UnitSize, edge.Bandwidth())
			sum += latencyByVertex[u.ID] + intrinsic + transmission

			if edge.PerSec > 0 && (1000.0/float64(edge.PerSec)) < transmission {
				backPressure++
			}
		}

		upLatency := 0.0
		if len(ups) > 0 {
			upLatency = sum / float64(len(ups))
		}
		latencyByVertex[v.ID] = upLatency + c.computationLatency(vNode, v.MI)
		lastID = v.ID
	}

	if lastID == "" {
		return 0, backPressure
	}
	return latencyByVertex[lastID], backPressure
}

// intrinsicLatency sums the propagation delay of every link on the
// shortest path between two scheduled nodes; 0 for same-node edges.
func (c *Calculator) intrinsicLatency(n1, n2 string) float64 {
	if n1 == n2 {
		return 0
	}
	var total int64
	for _, l := range c.graph.ShortestPath(n1, n2) {
		total += l.DelayMS
	}
	return float64(total)
}

// transmissionLatency estimates, in ms, how long unitSize bytes take to
// cross from n1 to n2 at bandwidth requestBD, under the capacity-share
// model: each link on the path grants this flow a share of its capacity
// proportional to requestBD against the link's total accumulated occupied
// bandwidth. Same-node edges use the fixed LocalBandwidth constant instead
// of a path lookup.
func (c *Calculator) transmissionLatency(n1, n2 string, unitSize, requestBD int64) float64 {
	if n1 == n2 {
		return float64(unitSize) / float64(topology.LocalBandwidth) * 1000
	}
	var totalMS float64
	for _, l := range c.graph.ShortestPath(n1, n2) {
		occupied := l.Occupied()
		if occupied <= 0 {
			occupied = requestBD
		}
		share := float64(l.BD) / float64(occupied) * float64(requestBD)
		if share <= 0 {
			continue
		}
		totalMS += float64(unitSize) / share * 1000
	}
	return totalMS
}

// computationLatency estimates, in ms, how long an mi-instruction vertex
// takes on its assigned node, assuming single-threaded execution and that
// the node's current slot occupancy approximates concurrently-competing
// work sharing its cores.
func (c *Calculator) computationLatency(nodeID string, mi int64) float64 {
	n, ok := c.graph.Node(nodeID)
	if !ok || n.MIPS == 0 {
		return 0
	}
	occupied := n.Occupied()
	if occupied < 1 {
		occupied = 1
	}
	share := float64(n.Cores) / float64(occupied)
	if share > 1 {
		share = 1
	}
	if share <= 0 {
		return 0
	}
	return float64(mi) / (share * float64(n.MIPS)) * 1000
}
