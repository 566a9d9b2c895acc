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

package provision

import (
	"math/rand"

	"streamplace/internal/placement"
	"streamplace/internal/placement/topology"
	"streamplace/internal/telemetry"
)

// Provisioner owns one domain's provisioning tree and drives jobs through
// it to completion.
type Provisioner struct {
	Domain *topology.Domain
	Tree   *Tree

	rng *rand.Rand
}

// NewProvisioner builds a provisioning tree mirroring domain's router ->
// switch -> host topology and runs an initial rebalance so every node's
// advertised slot capacity has propagated before the first job arrives.
func NewProvisioner(domain *topology.Domain) *Provisioner {
	root := NewNode(domain.Router)
	for _, hrg := range domain.HRGs {
		switchNode := NewNode(hrg.Switch)
		root.AddChild(switchNode)
		for _, host := range hrg.Hosts {
			switchNode.AddChild(NewNode(host))
		}
	}
	p := &Provisioner{Domain: domain, Tree: NewTree(root), rng: rand.New(rand.NewSource(1))}
	telemetry.ObserveProvisionRounds(p.Tree.Rebalance())
	return p
}

// Schedule places a single job's vertices within this domain.
func (p *Provisioner) Schedule(g *placement.Job) *placement.SchedulingResult {
	p.initialPlacement(g)
	telemetry.ObserveProvisionRounds(p.Tree.Rebalance())
	return p.gatherResult(g)
}

// ScheduleMultiple places several jobs in one rebalance pass, letting them
// compete for slots in the same tree-step loop rather than serializing one
// job's full placement before the next begins.
func (p *Provisioner) ScheduleMultiple(graphs []*placement.Job) []*placement.SchedulingResult {
	for _, g := range graphs {
		p.initialPlacement(g)
	}
	telemetry.ObserveProvisionRounds(p.Tree.Rebalance())
	results := make([]*placement.SchedulingResult, len(graphs))
	for i, g := range graphs {
		results[i] = p.gatherResult(g)
	}
	return results
}

func (p *Provisioner) initialPlacement(g *placement.Job) {
	var hostName string
	var found bool
	for _, s := range g.Sources() {
		h, ok := s.Host()
		if !ok {
			panic(&placement.FatalError{Op: "provision.initialPlacement", Job: g.UUID, Dump: "source missing host label"})
		}
		if found && h != hostName {
			panic(&placement.FatalError{Op: "provision.initialPlacement", Job: g.UUID, Dump: "sources span multiple hosts reaching one domain's provisioner"})
		}
		hostName = h
		found = true
	}

	var node *Node
	if !found {
		node = p.Tree.lookup[p.Tree.order[p.rng.Intn(len(p.Tree.order))]]
	} else {
		host, ok := p.Domain.FindHost(hostName)
		if !ok {
			panic(&placement.FatalError{Op: "provision.initialPlacement", Job: g.UUID, Dump: "named host not found in domain: " + hostName})
		}
		n, ok := p.Tree.GetNode(host.ID)
		if !ok {
			panic(&placement.FatalError{Op: "provision.initialPlacement", Job: g.UUID, Dump: "host has no provisioning node: " + host.ID})
		}
		node = n
	}
	node.AddUnscheduledGraph(g.Copy(g.UUID))
}

// gatherResult walks the tree looking for each vertex's scheduled home.
func (p *Provisioner) gatherResult(g *placement.Job) *placement.SchedulingResult {
	result := placement.NewResult(g.UUID)
	for _, v := range g.Vertices() {
		var nodeID string
		var hit bool
		p.Tree.Traversal(func(n *Node) {
			if hit {
				return
			}
			for _, sv := range n.ScheduledVertices {
				if sv.ID == v.ID {
					nodeID = n.Phys.ID
					hit = true
					return
				}
			}
		})
		if !hit {
			panic(&placement.FatalError{Op: "provision.gatherResult", Job: g.UUID, Dump: "vertex never reached a scheduled home: " + v.ID})
		}
		result.Assign(v.ID, nodeID)
	}
	result.Succeed()
	return result
}

// PinVertex places v directly on the named physical node's provisioning
// node, occupying one slot there. Used for vertices whose host label names a
// specific host (the scheduler pins these on the cloud side) so they never
// ride the capacity-driven tree redistribution at all. Returns false if the
// node is unknown or out of capacity; the caller decides whether that is a
// hard failure or a reason to fail just the one job.
func (p *Provisioner) PinVertex(nodeID string, v placement.Vertex) bool {
	n, ok := p.Tree.GetNode(nodeID)
	if !ok {
		return false
	}
	if !n.Phys.Occupy(1) {
		return false
	}
	n.ScheduledVertices = append(n.ScheduledVertices, v)
	n.SlotDiff--
	return true
}

// UnpinVertex reverses a successful PinVertex, releasing the slot and
// crediting it back to the tree's bookkeeping.
func (p *Provisioner) UnpinVertex(nodeID, vertexID string) {
	n, ok := p.Tree.GetNode(nodeID)
	if !ok {
		return
	}
	kept := n.ScheduledVertices[:0]
	removed := false
	for _, sv := range n.ScheduledVertices {
		if !removed && sv.ID == vertexID {
			removed = true
			continue
		}
		kept = append(kept, sv)
	}
	n.ScheduledVertices = kept
	if removed {
		n.Phys.Release(1)
		n.SlotDiff++
	}
}

// DeleteGraph removes every vertex of graph from wherever it landed,
// crediting the freed slots back up the tree on the next rebalance.
func (p *Provisioner) DeleteGraph(g *placement.Job) {
	ids := map[string]bool{}
	for _, v := range g.Vertices() {
		ids[v.ID] = true
	}
	p.Tree.Traversal(func(n *Node) {
		before := len(n.ScheduledVertices)
		kept := n.ScheduledVertices[:0]
		for _, v := range n.ScheduledVertices {
			if !ids[v.ID] {
				kept = append(kept, v)
			}
		}
		n.ScheduledVertices = kept
		freed := before - len(kept)
		if freed > 0 {
			n.Phys.Release(int64(freed))
			n.SlotDiff += int64(freed)
		}
	})
}
