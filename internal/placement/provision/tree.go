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
	"fmt"

	"streamplace/internal/placement"
)

// Tree is a domain's provisioning tree: root is the domain's router node,
// children are switches, grandchildren are hosts.
type Tree struct {
	Root *Node

	lookup map[string]*Node
	// order fixes iteration to depth-first declaration order, so stepping
	// and scatter delivery are deterministic across runs.
	order     []string
	stepCount int
}

// NewTree wraps root as a provisioning tree and indexes every descendant by
// name for O(1) scatter delivery.
func NewTree(root *Node) *Tree {
	t := &Tree{Root: root, lookup: map[string]*Node{}}
	root.Traversal(func(n *Node) {
		t.lookup[n.Name] = n
		t.order = append(t.order, n.Name)
	})
	return t
}

// GetNode looks up a node by name.
func (t *Tree) GetNode(name string) (*Node, bool) {
	n, ok := t.lookup[name]
	return n, ok
}

// Step runs one round: every node steps, then every resulting scatter is
// delivered to its destination. No node observes a half-completed round —
// gathers only happen after every node in the round has already stepped.
// Returns false once no node in the round reported progress (quiescence).
func (t *Tree) Step() bool {
	t.stepCount++

	type result struct {
		progressed bool
		toParent   Scatter
		toChildren []Scatter
	}
	results := make(map[string]result, len(t.lookup))
	for _, name := range t.order {
		progressed, toParent, toChildren := t.lookup[name].Step()
		results[name] = result{progressed, toParent, toChildren}
	}

	var anyProgress bool
	for _, r := range results {
		anyProgress = anyProgress || r.progressed
	}
	if !anyProgress {
		return false
	}

	for _, name := range t.order {
		r := results[name]
		if !r.progressed {
			continue
		}
		node := t.lookup[name]
		if node.Parent != nil {
			node.Parent.GatherFromChild(node.Name, r.toParent)
		} else if len(r.toParent.Graphs) > 0 {
			// The root has nowhere to send leftover graphs. The scheduler only
			// ever hands a domain's provisioner graphs that fit within its
			// reported free slots, so this means that invariant was violated
			// somewhere upstream rather than that the domain is merely full.
			panic(&placement.FatalError{
				Op:   "provision.Tree.Step",
				Job:  r.toParent.Graphs[0].UUID,
				Dump: "root node exhausted domain capacity without placing every graph",
			})
		}
		for i, child := range node.Children {
			if i < len(r.toChildren) && !r.toChildren[i].Empty() {
				child.GatherFromParent(r.toChildren[i])
			}
		}
	}
	return true
}

// Traversal walks every node in the tree.
func (t *Tree) Traversal(f func(*Node)) {
	t.Root.Traversal(f)
}

// maxRebalanceRounds bounds how many rounds Rebalance will run before
// treating non-quiescence as an internal invariant violation. Every step
// strictly drains some unscheduled work or slot delta somewhere in the
// tree, so a healthy domain always settles in far fewer rounds than this.
const maxRebalanceRounds = 20

// Rebalance steps the tree to quiescence, panicking with a FatalError if it
// hasn't settled within maxRebalanceRounds. A tree still churning past the
// watchdog means the step logic is broken, not that the domain needs more
// patience, and a caller has no other signal that placement is stuck.
// Returns the number of rounds it took to settle.
func (t *Tree) Rebalance() int {
	for round := 0; ; round++ {
		if !t.Step() {
			return round
		}
		if round >= maxRebalanceRounds {
			panic(&placement.FatalError{
				Op:   "provision.Rebalance",
				Dump: fmt.Sprintf("tree did not reach quiescence within %d rounds", maxRebalanceRounds),
			})
		}
	}
}
