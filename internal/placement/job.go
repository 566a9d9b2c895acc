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
	"fmt"
	"sort"
)

// Job is a directed acyclic graph of source/operator/sink vertices (a
// dataflow graph). It is mutated only by construction, sub-graph extraction,
// and vertex removal (used by the provisioner as it places vertices).
type Job struct {
	UUID string

	vertices map[string]*Vertex
	outEdges map[string][]Edge
	inEdges  map[string][]Edge
}

// NewJob creates an empty job with the given identifier.
func NewJob(uuid string) *Job {
	return &Job{
		UUID:     uuid,
		vertices: map[string]*Vertex{},
		outEdges: map[string][]Edge{},
		inEdges:  map[string][]Edge{},
	}
}

// AddVertex inserts v (by value) into the job. Re-adding an existing id
// overwrites the vertex's attributes; edges already touching it are kept.
func (j *Job) AddVertex(v Vertex) {
	c := v.clone()
	j.vertices[v.ID] = &c
	if _, ok := j.outEdges[v.ID]; !ok {
		j.outEdges[v.ID] = nil
	}
	if _, ok := j.inEdges[v.ID]; !ok {
		j.inEdges[v.ID] = nil
	}
}

// Connect adds a directed edge and updates the endpoints' aggregate
// bandwidth counters.
func (j *Job) Connect(from, to string, unitSize, perSecond int64) error {
	fv, ok := j.vertices[from]
	if !ok {
		return fmt.Errorf("placement: connect: unknown vertex %q", from)
	}
	tv, ok := j.vertices[to]
	if !ok {
		return fmt.Errorf("placement: connect: unknown vertex %q", to)
	}
	e := Edge{From: from, To: to, UnitSize: unitSize, PerSec: perSecond}
	j.outEdges[from] = append(j.outEdges[from], e)
	j.inEdges[to] = append(j.inEdges[to], e)
	bd := e.Bandwidth()
	fv.DownstreamBD += bd
	tv.UpstreamBD += bd
	return nil
}

// RemoveVertex deletes a vertex and every edge touching it, adjusting the
// upstream/downstream aggregates of its former neighbors.
func (j *Job) RemoveVertex(id string) {
	if _, ok := j.vertices[id]; !ok {
		return
	}
	for _, e := range j.outEdges[id] {
		if tv, ok := j.vertices[e.To]; ok {
			tv.UpstreamBD -= e.Bandwidth()
			j.inEdges[e.To] = removeEdge(j.inEdges[e.To], e)
		}
	}
	for _, e := range j.inEdges[id] {
		if fv, ok := j.vertices[e.From]; ok {
			fv.DownstreamBD -= e.Bandwidth()
			j.outEdges[e.From] = removeEdge(j.outEdges[e.From], e)
		}
	}
	delete(j.vertices, id)
	delete(j.outEdges, id)
	delete(j.inEdges, id)
}

func removeEdge(edges []Edge, target Edge) []Edge {
	out := edges[:0]
	for _, e := range edges {
		if e.From == target.From && e.To == target.To {
			continue
		}
		out = append(out, e)
	}
	return out
}

// NumVertices returns the number of vertices still in the job.
func (j *Job) NumVertices() int { return len(j.vertices) }

// Vertex returns a copy of the vertex with the given id.
func (j *Job) Vertex(id string) (Vertex, bool) {
	v, ok := j.vertices[id]
	if !ok {
		return Vertex{}, false
	}
	return v.clone(), true
}

// Vertices returns a stable-ordered copy of every vertex in the job.
func (j *Job) Vertices() []Vertex {
	ids := j.vertexIDs()
	out := make([]Vertex, 0, len(ids))
	for _, id := range ids {
		out = append(out, j.vertices[id].clone())
	}
	return out
}

func (j *Job) vertexIDs() []string {
	ids := make([]string, 0, len(j.vertices))
	for id := range j.vertices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Edges returns every edge in the job.
func (j *Job) Edges() []Edge {
	var out []Edge
	for _, id := range j.vertexIDs() {
		out = append(out, j.outEdges[id]...)
	}
	return out
}

// Edge returns the edge from -> to, if present.
func (j *Job) Edge(from, to string) (Edge, bool) {
	for _, e := range j.outEdges[from] {
		if e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

func (j *Job) filterByRole(r Role) []Vertex {
	var out []Vertex
	for _, id := range j.vertexIDs() {
		if v := j.vertices[id]; v.Role == r {
			out = append(out, v.clone())
		}
	}
	return out
}

// Sources returns every source vertex.
func (j *Job) Sources() []Vertex { return j.filterByRole(RoleSource) }

// Sinks returns every sink vertex.
func (j *Job) Sinks() []Vertex { return j.filterByRole(RoleSink) }

// Operators returns every operator vertex.
func (j *Job) Operators() []Vertex { return j.filterByRole(RoleOperator) }

// InVertices returns vertices with in-degree 0 (the graph's local sources,
// post-removal — may differ from Sources() once the provisioner has peeled
// vertices off).
func (j *Job) InVertices() []Vertex {
	var out []Vertex
	for _, id := range j.vertexIDs() {
		if len(j.inEdges[id]) == 0 {
			out = append(out, j.vertices[id].clone())
		}
	}
	return out
}

// OutVertices returns vertices with out-degree 0.
func (j *Job) OutVertices() []Vertex {
	var out []Vertex
	for _, id := range j.vertexIDs() {
		if len(j.outEdges[id]) == 0 {
			out = append(out, j.vertices[id].clone())
		}
	}
	return out
}

// UpVertices returns the immediate predecessors of vid.
func (j *Job) UpVertices(vid string) []Vertex {
	var out []Vertex
	for _, e := range j.inEdges[vid] {
		out = append(out, j.vertices[e.From].clone())
	}
	return out
}

// DownVertices returns the immediate successors of vid.
func (j *Job) DownVertices(vid string) []Vertex {
	var out []Vertex
	for _, e := range j.outEdges[vid] {
		out = append(out, j.vertices[e.To].clone())
	}
	return out
}

// TopologicalOrder returns vertices in a Kahn's-algorithm topological order,
// breaking ties by vertex id for determinism.
func (j *Job) TopologicalOrder() ([]Vertex, error) {
	indeg := map[string]int{}
	for _, id := range j.vertexIDs() {
		indeg[id] = len(j.inEdges[id])
	}
	var ready []string
	for _, id := range j.vertexIDs() {
		if indeg[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	var order []Vertex
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, j.vertices[id].clone())
		var next []string
		for _, e := range j.outEdges[id] {
			indeg[e.To]--
			if indeg[e.To] == 0 {
				next = append(next, e.To)
			}
		}
		sort.Strings(next)
		ready = append(ready, next...)
		sort.Strings(ready)
	}
	if len(order) != len(j.vertices) {
		return nil, fmt.Errorf("placement: job %s is not acyclic", j.UUID)
	}
	return order, nil
}

// TopologicalOrderByUpstreamBD returns a topological order that, among
// vertices whose predecessors are all already emitted, always picks the one
// with the highest UpstreamBD next. It is used to build the provisioner's
// knapsack "keep the first k vertices" prefix groups (§4.5 Phase A(c)).
func (j *Job) TopologicalOrderByUpstreamBD() []Vertex {
	indeg := map[string]int{}
	ids := j.vertexIDs()
	for _, id := range ids {
		indeg[id] = len(j.inEdges[id])
	}
	remaining := map[string]bool{}
	for _, id := range ids {
		remaining[id] = true
	}

	var order []Vertex
	for len(remaining) > 0 {
		var bestID string
		var bestBD int64 = -1
		for _, id := range ids {
			if !remaining[id] || indeg[id] != 0 {
				continue
			}
			bd := j.vertices[id].UpstreamBD
			if bd > bestBD || (bd == bestBD && (bestID == "" || id < bestID)) {
				bestBD = bd
				bestID = id
			}
		}
		order = append(order, j.vertices[bestID].clone())
		delete(remaining, bestID)
		for _, e := range j.outEdges[bestID] {
			indeg[e.To]--
		}
	}
	return order
}

// SubGraph extracts the induced sub-graph on ids into a new Job. Edges with
// either endpoint outside ids are dropped, and the surviving vertices'
// bandwidth aggregates are rebuilt from the surviving edges alone, keeping
// the upstream/downstream counters consistent with the new edge set.
func (j *Job) SubGraph(ids map[string]bool, uuid string) *Job {
	sub := NewJob(uuid)
	for _, id := range j.vertexIDs() {
		if ids[id] {
			v := j.vertices[id].clone()
			v.UpstreamBD = 0
			v.DownstreamBD = 0
			sub.AddVertex(v)
		}
	}
	for _, e := range j.Edges() {
		if ids[e.From] && ids[e.To] {
			_ = sub.Connect(e.From, e.To, e.UnitSize, e.PerSec)
		}
	}
	return sub
}

// MergeJobs unions several jobs' vertices and edges into one, so a batch of
// chosen s-cuts can share a single topological sort. Aggregates are rebuilt
// from the merged edge set.
func MergeJobs(jobs []*Job, uuid string) *Job {
	merged := NewJob(uuid)
	for _, j := range jobs {
		for _, v := range j.Vertices() {
			v.UpstreamBD = 0
			v.DownstreamBD = 0
			merged.AddVertex(v)
		}
	}
	for _, j := range jobs {
		for _, e := range j.Edges() {
			_ = merged.Connect(e.From, e.To, e.UnitSize, e.PerSec)
		}
	}
	return merged
}

// ConnectedComponents splits the job into independent jobs, one per
// connected component of its undirected projection. Removing a vertex can
// disconnect what remains; the provisioner calls this after every placement
// pass ("rearrange", §4.5) so each component can be scheduled/escalated on
// its own.
func (j *Job) ConnectedComponents(nextUUID func() string) []*Job {
	if len(j.vertices) == 0 {
		return nil
	}
	adj := map[string][]string{}
	for _, e := range j.Edges() {
		adj[e.From] = append(adj[e.From], e.To)
		adj[e.To] = append(adj[e.To], e.From)
	}
	seen := map[string]bool{}
	var components []*Job
	for _, id := range j.vertexIDs() {
		if seen[id] {
			continue
		}
		group := map[string]bool{}
		queue := []string{id}
		seen[id] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			group[cur] = true
			for _, nb := range adj[cur] {
				if !seen[nb] {
					seen[nb] = true
					queue = append(queue, nb)
				}
			}
		}
		components = append(components, j.SubGraph(group, nextUUID()))
	}
	return components
}

// Validate checks the §3 Job invariants: exactly one role per vertex (by
// construction), sources have in-degree 0 and a host label, sinks have
// out-degree 0 and a host label, operators carry no host label, and the
// graph is acyclic.
func (j *Job) Validate() error {
	if _, err := j.TopologicalOrder(); err != nil {
		return err
	}
	for _, id := range j.vertexIDs() {
		v := j.vertices[id]
		_, hasHost := v.Host()
		switch v.Role {
		case RoleSource:
			if len(j.inEdges[id]) != 0 {
				return fmt.Errorf("placement: source %s has incoming edges", id)
			}
			if !hasHost {
				return fmt.Errorf("placement: source %s missing host label", id)
			}
		case RoleSink:
			if len(j.outEdges[id]) != 0 {
				return fmt.Errorf("placement: sink %s has outgoing edges", id)
			}
			if !hasHost {
				return fmt.Errorf("placement: sink %s missing host label", id)
			}
		case RoleOperator:
			if hasHost {
				return fmt.Errorf("placement: operator %s carries a host label", id)
			}
		}
	}
	return nil
}

// Copy returns a deep copy of the job under a new uuid.
func (j *Job) Copy(uuid string) *Job {
	all := map[string]bool{}
	for _, id := range j.vertexIDs() {
		all[id] = true
	}
	return j.SubGraph(all, uuid)
}
