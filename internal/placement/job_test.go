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

package placement_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"streamplace/internal/placement"
)

func chainJob(uuid string) *placement.Job {
	g := placement.NewJob(uuid)
	g.AddVertex(placement.Vertex{ID: "src", Role: placement.RoleSource, Label: map[string]string{"host": "rasp1"}})
	g.AddVertex(placement.Vertex{ID: "op", Role: placement.RoleOperator})
	g.AddVertex(placement.Vertex{ID: "snk", Role: placement.RoleSink, Label: map[string]string{"host": "vm1"}})
	_ = g.Connect("src", "op", 1, 1000)
	_ = g.Connect("op", "snk", 1, 1000)
	return g
}

func TestJobValidateAcceptsWellFormedChain(t *testing.T) {
	require.NoError(t, chainJob("g1").Validate())
}

func TestJobValidateRejectsOperatorWithHostLabel(t *testing.T) {
	g := placement.NewJob("g1")
	g.AddVertex(placement.Vertex{ID: "src", Role: placement.RoleSource, Label: map[string]string{"host": "rasp1"}})
	g.AddVertex(placement.Vertex{ID: "op", Role: placement.RoleOperator, Label: map[string]string{"host": "rasp1"}})
	require.NoError(t, g.Connect("src", "op", 1, 1000))

	require.Error(t, g.Validate())
}

func TestJobValidateRejectsSourceMissingHostLabel(t *testing.T) {
	g := placement.NewJob("g1")
	g.AddVertex(placement.Vertex{ID: "src", Role: placement.RoleSource})
	g.AddVertex(placement.Vertex{ID: "op", Role: placement.RoleOperator})
	require.NoError(t, g.Connect("src", "op", 1, 1000))

	require.Error(t, g.Validate())
}

func TestJobValidateAcceptsJobWithNoSink(t *testing.T) {
	g := placement.NewJob("g1")
	g.AddVertex(placement.Vertex{ID: "src", Role: placement.RoleSource, Label: map[string]string{"host": "rasp1"}})
	g.AddVertex(placement.Vertex{ID: "op", Role: placement.RoleOperator})
	require.NoError(t, g.Connect("src", "op", 1, 1000))

	require.NoError(t, g.Validate())
}

func TestSubGraphDropsEdgesCrossingTheBoundary(t *testing.T) {
	g := chainJob("g1")
	sub := g.SubGraph(map[string]bool{"src": true, "op": true}, "g1-edge")

	require.Equal(t, 2, sub.NumVertices())
	_, ok := sub.Edge("op", "snk")
	require.False(t, ok, "edge to a vertex outside the cut set must not survive")
	_, ok = sub.Edge("src", "op")
	require.True(t, ok)
}

func TestSubGraphPreservesOriginalRoles(t *testing.T) {
	g := chainJob("g1")
	// op has zero in-degree within this cut set, but SubGraph must not
	// promote it to RoleSource: role reassignment across a cut boundary is
	// the scheduler's job, not the graph primitive's.
	sub := g.SubGraph(map[string]bool{"op": true, "snk": true}, "g1-cloud")

	v, ok := sub.Vertex("op")
	require.True(t, ok)
	require.Equal(t, placement.RoleOperator, v.Role)
}

func TestSubGraphRebuildsBandwidthAggregates(t *testing.T) {
	g := chainJob("g1")
	// op's upstream is fed only by src; cutting snk away must leave op's
	// downstream at zero, and taking the full vertex set must reproduce the
	// same aggregates, not double them.
	sub := g.SubGraph(map[string]bool{"src": true, "op": true}, "g1-edge")
	op, ok := sub.Vertex("op")
	require.True(t, ok)
	require.Equal(t, int64(1000), op.UpstreamBD)
	require.Zero(t, op.DownstreamBD)

	full := g.SubGraph(map[string]bool{"src": true, "op": true, "snk": true}, "g1-copy")
	opFull, _ := full.Vertex("op")
	orig, _ := g.Vertex("op")
	require.Equal(t, orig.UpstreamBD, opFull.UpstreamBD)
	require.Equal(t, orig.DownstreamBD, opFull.DownstreamBD)
}

func TestMergeJobsUnionsVerticesAndEdges(t *testing.T) {
	a := placement.NewJob("a")
	a.AddVertex(placement.Vertex{ID: "v1", Role: placement.RoleSource, Label: map[string]string{"host": "rasp1"}})
	a.AddVertex(placement.Vertex{ID: "v2", Role: placement.RoleOperator})
	require.NoError(t, a.Connect("v1", "v2", 1, 100))

	b := placement.NewJob("b")
	b.AddVertex(placement.Vertex{ID: "v3", Role: placement.RoleOperator})
	b.AddVertex(placement.Vertex{ID: "v4", Role: placement.RoleSink, Label: map[string]string{"host": "vm1"}})
	require.NoError(t, b.Connect("v3", "v4", 1, 100))

	merged := placement.MergeJobs([]*placement.Job{a, b}, "merged")
	require.Equal(t, 4, merged.NumVertices())
	require.Len(t, merged.Edges(), 2)
}

func TestConnectedComponentsSplitsDisconnectedVertices(t *testing.T) {
	g := placement.NewJob("g1")
	g.AddVertex(placement.Vertex{ID: "v1", Role: placement.RoleSource, Label: map[string]string{"host": "rasp1"}})
	g.AddVertex(placement.Vertex{ID: "v2", Role: placement.RoleOperator})
	g.AddVertex(placement.Vertex{ID: "v3", Role: placement.RoleOperator})
	require.NoError(t, g.Connect("v1", "v2", 1, 100))
	// v3 has no edge at all: it forms its own component once v1/v2 are
	// grouped, the way a lone operator would after losing its neighbors to
	// a prior placement pass.

	n := 0
	components := g.ConnectedComponents(func() string {
		n++
		return "component" + string(rune('0'+n))
	})

	require.Len(t, components, 2)
	sizes := map[int]int{}
	for _, c := range components {
		sizes[c.NumVertices()]++
	}
	require.Equal(t, map[int]int{2: 1, 1: 1}, sizes)
}

func TestConnectedComponentsOnFullyConnectedJobReturnsOne(t *testing.T) {
	g := chainJob("g1")
	components := g.ConnectedComponents(func() string { return "only" })
	require.Len(t, components, 1)
	require.Equal(t, 3, components[0].NumVertices())
}

func TestTopologicalOrderRespectsEdgeDirection(t *testing.T) {
	g := chainJob("g1")
	order, err := g.TopologicalOrder()
	require.NoError(t, err)

	index := map[string]int{}
	for i, v := range order {
		index[v.ID] = i
	}
	require.Less(t, index["src"], index["op"])
	require.Less(t, index["op"], index["snk"])
}

func TestCopyProducesAnIndependentJob(t *testing.T) {
	g := chainJob("g1")
	dup := g.Copy("g1-copy")

	dup.RemoveVertex("op")
	require.Equal(t, 2, dup.NumVertices())
	require.Equal(t, 3, g.NumVertices(), "mutating the copy must not affect the original")
}
