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

// Package flow computes min edge/cloud cuts over a job's dataflow graph
// using a residual max-flow network (Edmonds-Karp, BFS augmenting paths).
package flow

// MaxEdgeCapacity stands in for "infinite" capacity on the fake-source and
// best-sink edges of the flow network.
const MaxEdgeCapacity = int64(1e18)

// Graph is a residual flow network stored as a flat edge list with each
// forward edge immediately followed by its reverse at the next index (the
// "paired-index" trick: edge i's reverse is always i^1). Residual capacity
// lives directly in cap, mutated on augmentation, with no separate
// flow/disabled bookkeeping.
type Graph struct {
	outEdges map[string][]int
	from     []string
	to       []string
	cap      []int64
}

// NewGraph returns an empty residual network.
func NewGraph() *Graph {
	return &Graph{outEdges: map[string][]int{}}
}

// AddNode registers a node id with no edges yet, so it appears in traversals
// even if it ends up edgeless.
func (g *Graph) AddNode(id string) {
	if _, ok := g.outEdges[id]; !ok {
		g.outEdges[id] = nil
	}
}

// AddEdge inserts a forward edge of the given capacity and its zero-capacity
// reverse, returning the forward edge's index.
func (g *Graph) AddEdge(from, to string, capacity int64) int {
	g.AddNode(from)
	g.AddNode(to)

	fwd := len(g.from)
	g.from = append(g.from, from)
	g.to = append(g.to, to)
	g.cap = append(g.cap, capacity)
	g.outEdges[from] = append(g.outEdges[from], fwd)

	rev := len(g.from)
	g.from = append(g.from, to)
	g.to = append(g.to, from)
	g.cap = append(g.cap, 0)
	g.outEdges[to] = append(g.outEdges[to], rev)

	return fwd
}

func reverseOf(edge int) int { return edge ^ 1 }

// shortestPath runs a BFS from s to t over edges with positive residual
// capacity, returning the sequence of edge indices on the path, or nil if
// t is unreachable.
func (g *Graph) shortestPath(s, t string) []int {
	type queued struct {
		node  string
		edges []int
	}
	visited := map[string]bool{s: true}
	queue := []queued{{s, nil}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.node == t {
			return cur.edges
		}
		for _, e := range g.outEdges[cur.node] {
			if g.cap[e] <= 0 || visited[g.to[e]] {
				continue
			}
			visited[g.to[e]] = true
			path := make([]int, len(cur.edges), len(cur.edges)+1)
			copy(path, cur.edges)
			path = append(path, e)
			queue = append(queue, queued{g.to[e], path})
		}
	}
	return nil
}

// MaxFlow runs Edmonds-Karp from s to t, mutating the network's residual
// capacities in place, and returns the total flow pushed.
func (g *Graph) MaxFlow(s, t string) int64 {
	var total int64
	for {
		path := g.shortestPath(s, t)
		if len(path) == 0 {
			break
		}
		bottleneck := g.cap[path[0]]
		for _, e := range path[1:] {
			if g.cap[e] < bottleneck {
				bottleneck = g.cap[e]
			}
		}
		for _, e := range path {
			g.cap[e] -= bottleneck
			g.cap[reverseOf(e)] += bottleneck
		}
		total += bottleneck
	}
	return total
}

// Reachable returns every node reachable from s along edges with positive
// residual capacity — the S-side of the min-cut once MaxFlow has saturated
// the network.
func (g *Graph) Reachable(s string) map[string]bool {
	reached := map[string]bool{s: true}
	queue := []string{s}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.outEdges[cur] {
			if g.cap[e] <= 0 || reached[g.to[e]] {
				continue
			}
			reached[g.to[e]] = true
			queue = append(queue, g.to[e])
		}
	}
	return reached
}

// Nodes returns every node id registered in the graph.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.outEdges))
	for id := range g.outEdges {
		out = append(out, id)
	}
	return out
}
