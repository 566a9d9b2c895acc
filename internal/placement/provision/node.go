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

// Package provision implements the recursive provisioning tree: a
// placement engine mirroring a physical domain's router/switch/host
// topology that redistributes jobs and free slots between tiers via
// scatter/gather messages until every vertex has a home.
package provision

import (
	"container/heap"
	"sort"
	"strconv"

	"streamplace/internal/placement"
	"streamplace/internal/placement/knapsack"
	"streamplace/internal/placement/topology"
)

// Scatter is the message exchanged between a node and its parent/children.
// SlotDiff is always a delta since the last step, never an absolute slot
// count — the field only carries a signed delta by construction, so a
// caller cannot accidentally treat it as a snapshot.
type Scatter struct {
	Graphs      []*placement.Job
	SlotDiff    int64
	HasSlotDiff bool
}

// Empty reports whether the scatter carries neither graphs nor a slot delta.
func (s Scatter) Empty() bool { return s.Graphs == nil && !s.HasSlotDiff }

// Node mirrors one physical node (router, switch, or host) inside a
// provisioning tree.
type Node struct {
	Name string
	Phys *topology.Node

	LocalSlots int64
	SlotDiff   int64

	Parent        *Node
	Children      []*Node
	ChildrenSlots []int64

	ScheduledVertices []placement.Vertex
	UnscheduledGraphs []*placement.Job
}

// NewNode wraps a physical node as a provisioning tree node. LocalSlots
// snapshots the physical node's total slot capacity; SlotDiff starts equal
// to it, since the whole capacity is "new" free capacity to report upward
// on the tree's first step.
func NewNode(phys *topology.Node) *Node {
	return &Node{
		Name:       phys.ID,
		Phys:       phys,
		LocalSlots: phys.Slots(),
		SlotDiff:   phys.Slots(),
	}
}

// AddChild registers child as a child of n, with zero advertised capacity
// until the tree's first step propagates it.
func (n *Node) AddChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
	n.ChildrenSlots = append(n.ChildrenSlots, 0)
}

// AddUnscheduledGraph queues g for placement at this node.
func (n *Node) AddUnscheduledGraph(g *placement.Job) {
	n.UnscheduledGraphs = append(n.UnscheduledGraphs, g)
}

// GatherFromParent absorbs a scatter delivered from the parent: queued jobs
// are added to our held set, and the parent's slot delta is folded into our
// local SlotDiff. The parent already decremented its bookkeeping of this
// subtree when it handed the jobs down, and the delta it sends is the
// positive mirror of the decrement we are about to incur placing them, so
// the two cancel and the consumption is never re-reported upward.
func (n *Node) GatherFromParent(s Scatter) {
	n.UnscheduledGraphs = append(n.UnscheduledGraphs, s.Graphs...)
	if s.HasSlotDiff {
		n.SlotDiff += s.SlotDiff
	}
}

// GatherFromChild absorbs a scatter delivered from one of our children: its
// slot delta updates both our view of that child's advertised capacity and
// propagates into our own SlotDiff toward the root; any returned jobs are
// escalations we now hold ourselves.
func (n *Node) GatherFromChild(childName string, s Scatter) {
	for i, c := range n.Children {
		if c.Name != childName {
			continue
		}
		if s.HasSlotDiff {
			n.ChildrenSlots[i] += s.SlotDiff
			n.SlotDiff += s.SlotDiff
		}
		n.UnscheduledGraphs = append(n.UnscheduledGraphs, s.Graphs...)
		return
	}
}

// Step runs one round of this node's state machine: Phase A local
// scheduling, Phase B pass-to-children, Phase C scatter construction. It
// returns false (no scatters) if there is nothing to do this round.
func (n *Node) Step() (progressed bool, toParent Scatter, toChildren []Scatter) {
	if len(n.UnscheduledGraphs) == 0 && n.SlotDiff == 0 {
		return false, Scatter{}, nil
	}

	if free := n.LocalSlots - n.Phys.Occupied(); free > 0 {
		n.scheduleGraphWithLimit(free)
		n.rearrangeGraphs()
	}

	var passed [][]*placement.Job
	if len(n.UnscheduledGraphs) > 0 {
		passed = n.passGraphToChildren()
		n.rearrangeGraphs()
	} else {
		passed = make([][]*placement.Job, len(n.Children))
	}

	toChildren = make([]Scatter, len(n.Children))
	for i, graphs := range passed {
		toChildren[i] = Scatter{Graphs: graphs}
		if graphs != nil {
			// The positive delta offsets the decrement the child will report
			// once it places (or forwards) these vertices. We already charged
			// our own view of the child's capacity above, so without this
			// offset the child's report would decrement it a second time.
			var total int64
			for _, g := range graphs {
				total += int64(g.NumVertices())
			}
			toChildren[i].SlotDiff = total
			toChildren[i].HasSlotDiff = true
		}
	}

	if len(n.UnscheduledGraphs) > 0 {
		toParent.Graphs = n.UnscheduledGraphs
		n.UnscheduledGraphs = nil
	}
	if n.SlotDiff != 0 {
		toParent.SlotDiff = n.SlotDiff
		toParent.HasSlotDiff = true
		n.SlotDiff = 0
	}

	return true, toParent, toChildren
}

// scheduleGraphWithLimit runs the three local-scheduling sub-phases: pin
// sources to this node, place everything if it all fits, otherwise run the
// exact-fill prefix knapsack across the held jobs' topological orders.
func (n *Node) scheduleGraphWithLimit(nSlot int64) {
	for _, g := range n.UnscheduledGraphs {
		for _, s := range g.Sources() {
			host, ok := s.Host()
			if !ok || host != n.Name {
				continue
			}
			if nSlot <= 0 || !n.Phys.Occupy(1) {
				panic(&placement.FatalError{Op: "provision.scheduleGraphWithLimit", Job: g.UUID, Dump: "source placement exceeded local capacity"})
			}
			n.ScheduledVertices = append(n.ScheduledVertices, s)
			n.SlotDiff--
			nSlot--
			g.RemoveVertex(s.ID)
		}
	}
	n.rearrangeGraphs()

	var totalVertices int64
	for _, g := range n.UnscheduledGraphs {
		totalVertices += int64(g.NumVertices())
	}
	if totalVertices <= nSlot {
		for _, g := range n.UnscheduledGraphs {
			for _, v := range g.Vertices() {
				if !n.Phys.Occupy(1) {
					panic(&placement.FatalError{Op: "provision.scheduleGraphWithLimit", Job: g.UUID, Dump: "whole-job placement exceeded local capacity"})
				}
				n.ScheduledVertices = append(n.ScheduledVertices, v)
				n.SlotDiff--
			}
		}
		n.UnscheduledGraphs = nil
		return
	}

	orders := make([][]placement.Vertex, len(n.UnscheduledGraphs))
	groups := make([]knapsack.Group, len(n.UnscheduledGraphs))
	for i, g := range n.UnscheduledGraphs {
		vs := g.TopologicalOrderByUpstreamBD()
		orders[i] = vs
		groups[i] = prefixGroup(vs)
	}
	solution, _, ok := knapsack.SolveExactFill(int(nSlot), groups)
	if !ok {
		return
	}
	for gIdx, choiceIdx := range solution {
		vCount := groups[gIdx][choiceIdx].Volume
		g := n.UnscheduledGraphs[gIdx]
		for i := 0; i < vCount; i++ {
			v := orders[gIdx][i]
			if !n.Phys.Occupy(1) {
				panic(&placement.FatalError{Op: "provision.scheduleGraphWithLimit", Job: g.UUID, Dump: "prefix placement exceeded local capacity"})
			}
			n.ScheduledVertices = append(n.ScheduledVertices, v)
			n.SlotDiff--
			g.RemoveVertex(v.ID)
		}
	}
}

// prefixGroup builds the knapsack group for "keep the first k vertices of
// this topological order": choosing k costs k slots and contributes the
// boundary bandwidth cut right after the k-th vertex (upstream_bd of vertex
// k, or downstream_bd of the last vertex when k spans the whole job).
func prefixGroup(vs []placement.Vertex) knapsack.Group {
	group := make(knapsack.Group, 0, len(vs)+1)
	for k, v := range vs {
		group = append(group, knapsack.Item{Volume: k, Value: v.UpstreamBD})
	}
	last := vs[len(vs)-1]
	group = append(group, knapsack.Item{Volume: len(vs), Value: last.DownstreamBD})
	return group
}

type childSlot struct {
	idx, slots int
}

type childHeap []childSlot

func (h childHeap) Len() int { return len(h) }

// Max-heap on slots; ties resolve to the earlier-declared child so packing
// order is deterministic.
func (h childHeap) Less(i, j int) bool {
	if h[i].slots != h[j].slots {
		return h[i].slots > h[j].slots
	}
	return h[i].idx < h[j].idx
}
func (h childHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *childHeap) Push(x interface{}) { *h = append(*h, x.(childSlot)) }
func (h *childHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// passGraphToChildren packs whole graphs into the largest-capacity children
// first (Section A), then runs the exact-fill prefix knapsack against each
// remaining child's capacity, largest first, for whatever doesn't fit whole
// (Section B).
func (n *Node) passGraphToChildren() [][]*placement.Job {
	passed := make([][]*placement.Job, len(n.Children))

	h := &childHeap{}
	for i, slots := range n.ChildrenSlots {
		heap.Push(h, childSlot{idx: i, slots: int(slots)})
	}

	type sized struct {
		count int
		graph *placement.Job
	}
	var remaining []sized
	for _, g := range n.UnscheduledGraphs {
		remaining = append(remaining, sized{count: g.NumVertices(), graph: g})
	}
	sort.SliceStable(remaining, func(i, j int) bool { return remaining[i].count > remaining[j].count })

	placedWhole := map[string]bool{}
	for h.Len() > 0 {
		cs := heap.Pop(h).(childSlot)
		matchIdx := -1
		for i, r := range remaining {
			if placedWhole[r.graph.UUID] {
				continue
			}
			if r.count > cs.slots {
				continue
			}
			matchIdx = i
			break
		}
		if matchIdx < 0 {
			continue
		}
		r := remaining[matchIdx]
		passed[cs.idx] = append(passed[cs.idx], r.graph.Copy(r.graph.UUID))
		placedWhole[r.graph.UUID] = true
		n.ChildrenSlots[cs.idx] -= int64(r.count)
		n.SlotDiff -= int64(r.count)
		remainingSlots := cs.slots - r.count
		if remainingSlots > 0 {
			heap.Push(h, childSlot{idx: cs.idx, slots: remainingSlots})
		}
	}
	for id := range placedWhole {
		for _, g := range n.UnscheduledGraphs {
			if g.UUID == id {
				for _, v := range g.Vertices() {
					g.RemoveVertex(v.ID)
				}
			}
		}
	}
	n.rearrangeGraphs()

	type childCap struct {
		idx   int
		slots int64
	}
	var byCap []childCap
	for i, s := range n.ChildrenSlots {
		byCap = append(byCap, childCap{idx: i, slots: s})
	}
	sort.SliceStable(byCap, func(i, j int) bool { return byCap[i].slots > byCap[j].slots })

	for _, cc := range byCap {
		if cc.slots == 0 {
			continue
		}
		orders := make([][]placement.Vertex, len(n.UnscheduledGraphs))
		groups := make([]knapsack.Group, len(n.UnscheduledGraphs))
		for i, g := range n.UnscheduledGraphs {
			vs := g.TopologicalOrderByUpstreamBD()
			orders[i] = vs
			if len(vs) == 0 {
				groups[i] = knapsack.Group{{Volume: 0, Value: 0}}
				continue
			}
			groups[i] = prefixGroup(vs)
		}
		solution, _, ok := knapsack.SolveExactFill(int(cc.slots), groups)
		if !ok {
			continue
		}
		for gIdx, choiceIdx := range solution {
			vCount := groups[gIdx][choiceIdx].Volume
			if vCount == 0 {
				continue
			}
			g := n.UnscheduledGraphs[gIdx]
			cut := map[string]bool{}
			for i := 0; i < vCount; i++ {
				cut[orders[gIdx][i].ID] = true
			}
			sub := g.SubGraph(cut, g.UUID+"-child")
			passed[cc.idx] = append(passed[cc.idx], sub)
			for id := range cut {
				g.RemoveVertex(id)
			}
			n.ChildrenSlots[cc.idx] -= int64(vCount)
			n.SlotDiff -= int64(vCount)
		}
		n.rearrangeGraphs()
	}

	return passed
}

// rearrangeGraphs splits every held job into its connected components:
// removing vertices during local/child scheduling can disconnect what
// remains, and each surviving component becomes an independent job.
func (n *Node) rearrangeGraphs() {
	var next []*placement.Job
	for _, g := range n.UnscheduledGraphs {
		if g.NumVertices() == 0 {
			continue
		}
		base := g.UUID
		counter := 0
		comps := g.ConnectedComponents(func() string {
			counter++
			if counter == 1 {
				return base
			}
			return base + "-cc" + strconv.Itoa(counter)
		})
		next = append(next, comps...)
	}
	n.UnscheduledGraphs = next
}

// Traversal walks this node and every descendant, depth-first.
func (n *Node) Traversal(f func(*Node)) {
	f(n)
	for _, c := range n.Children {
		c.Traversal(f)
	}
}
