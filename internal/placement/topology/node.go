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

// Package topology models the physical compute fabric: nodes (router,
// switch, host), links between them, Host-Rack Groups, domains, and the
// inter-domain scenario mesh.
package topology

import (
	"sync/atomic"

	"streamplace/internal/placement/slots"
)

// NodeKind is a physical node's position in the router -> switch -> host
// hierarchy.
type NodeKind int

const (
	KindRouter NodeKind = iota
	KindSwitch
	KindHost
)

func (k NodeKind) String() string {
	switch k {
	case KindRouter:
		return "router"
	case KindSwitch:
		return "switch"
	case KindHost:
		return "host"
	default:
		return "unknown"
	}
}

// SlotMemorySize is the fixed number of bytes one placement slot represents;
// a host's slot capacity is memory_total / SlotMemorySize.
const SlotMemorySize = int64(5e8)

// LocalBandwidth stands in for a same-node edge's transmission bandwidth in
// the latency calculator's capacity-share model.
const LocalBandwidth = int64(1e8)

// Node is one physical node: a router, switch, or host. Only hosts carry
// non-zero slot capacity; routers and switches exist purely for topology and
// have a nil Bank.
type Node struct {
	ID     string
	Kind   NodeKind
	MIPS   int64
	Cores  int64
	Memory int64
	Labels map[string]string

	Bank *slots.Bank
}

// NewHostNode returns a host node with slot capacity derived from memory.
func NewHostNode(id string, mips, cores, memory int64, labels map[string]string) *Node {
	return &Node{
		ID:     id,
		Kind:   KindHost,
		MIPS:   mips,
		Cores:  cores,
		Memory: memory,
		Labels: labels,
		Bank:   slots.NewBank(memory / SlotMemorySize),
	}
}

// NewTopologyNode returns a router or switch node (zero capacity, no Bank).
func NewTopologyNode(id string, kind NodeKind) *Node {
	return &Node{ID: id, Kind: kind, Labels: map[string]string{}}
}

// Host returns the node's `host` label, used as its placement identity.
func (n *Node) Host() (string, bool) {
	h, ok := n.Labels["host"]
	return h, ok
}

// Slots returns the host's total slot capacity (0 for routers/switches).
func (n *Node) Slots() int64 {
	if n.Bank == nil {
		return 0
	}
	return n.Bank.Capacity()
}

// Occupied returns the host's currently-occupied slot count.
func (n *Node) Occupied() int64 {
	if n.Bank == nil {
		return 0
	}
	return n.Bank.Occupied()
}

// Occupy reserves n slots on this node, returning false if it has no Bank or
// insufficient free capacity.
func (n *Node) Occupy(n2 int64) bool {
	if n.Bank == nil {
		return false
	}
	return n.Bank.Occupy(n2)
}

// Release gives back n previously-occupied slots.
func (n *Node) Release(n2 int64) {
	if n.Bank != nil {
		n.Bank.Release(n2)
	}
}

// Link is an undirected physical connection between two nodes, carrying
// bandwidth and propagation delay. Occupied accumulates the aggregate
// bandwidth of every flow routed across it so far, the denominator in the
// latency calculator's capacity-share transmission model.
type Link struct {
	ID      string
	A, B    string
	BD      int64
	DelayMS int64

	occupied int64
}

// Occupy adds bd to the link's accumulated occupied bandwidth.
func (l *Link) Occupy(bd int64) {
	atomic.AddInt64(&l.occupied, bd)
}

// Occupied returns the link's current accumulated occupied bandwidth.
func (l *Link) Occupied() int64 {
	return atomic.LoadInt64(&l.occupied)
}
