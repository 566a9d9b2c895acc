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

package provision_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"streamplace/internal/placement"
	"streamplace/internal/placement/provision"
	"streamplace/internal/placement/topology"
)

func singleHostDomain(t *testing.T, hostName string, slots int64) *topology.Domain {
	t.Helper()
	host := topology.NewHostNode(hostName, 1000, 4, slots*topology.SlotMemorySize, map[string]string{"host": hostName})
	hrg := topology.NewHRG(hostName+"-switch", 1e9, 1, []*topology.Node{host})
	router := topology.NewTopologyNode(hostName+"-router", topology.KindRouter)
	return topology.NewDomain(topology.DomainEdge, "edge", router, []*topology.HRG{hrg}, 1e9, 1)
}

func TestProvisionerPlacesSmallJobEntirelyOnOneHost(t *testing.T) {
	domain := singleHostDomain(t, "rasp1", 10)
	p := provision.NewProvisioner(domain)

	g := placement.NewJob("g1")
	g.AddVertex(placement.Vertex{ID: "v1", Role: placement.RoleSource, Label: map[string]string{"host": "rasp1"}})
	g.AddVertex(placement.Vertex{ID: "v2", Role: placement.RoleOperator})
	require.NoError(t, g.Connect("v1", "v2", 1, 1000))

	result := p.Schedule(g)
	require.Equal(t, placement.StatusSucceeded, result.Status)
	node, ok := result.GetScheduledNode("v1")
	require.True(t, ok)
	require.Equal(t, "rasp1", node)
	node2, ok := result.GetScheduledNode("v2")
	require.True(t, ok)
	require.Equal(t, "rasp1", node2)
}

func TestProvisionerEscalatesWhenHostIsFull(t *testing.T) {
	domain := twoHostDomain(t, "rasp1", "rasp2", 1, 5)
	p := provision.NewProvisioner(domain)

	g := placement.NewJob("g1")
	g.AddVertex(placement.Vertex{ID: "v1", Role: placement.RoleSource, Label: map[string]string{"host": "rasp1"}})
	g.AddVertex(placement.Vertex{ID: "v2", Role: placement.RoleOperator})
	require.NoError(t, g.Connect("v1", "v2", 1, 1000))

	result := p.Schedule(g)
	require.Equal(t, placement.StatusSucceeded, result.Status)
	require.True(t, result.CheckComplete(g))
	n1, _ := result.GetScheduledNode("v1")
	n2, _ := result.GetScheduledNode("v2")
	require.Equal(t, "rasp1", n1)
	require.NotEqual(t, "rasp1", n2, "v2 should have escalated off the full host")
}

func TestProvisionerFillsHostExactlyToCapacity(t *testing.T) {
	domain := singleHostDomain(t, "rasp1", 3)
	p := provision.NewProvisioner(domain)

	g := placement.NewJob("g1")
	g.AddVertex(placement.Vertex{ID: "v1", Role: placement.RoleSource, Label: map[string]string{"host": "rasp1"}})
	g.AddVertex(placement.Vertex{ID: "v2", Role: placement.RoleOperator})
	g.AddVertex(placement.Vertex{ID: "v3", Role: placement.RoleOperator})
	require.NoError(t, g.Connect("v1", "v2", 1, 1000))
	require.NoError(t, g.Connect("v2", "v3", 1, 1000))

	result := p.Schedule(g)
	require.True(t, result.CheckComplete(g))

	host, _ := domain.FindHost("rasp1")
	require.Equal(t, host.Slots(), host.Occupied())
}

// Handing a provisioner more vertices than its whole domain can seat
// violates the scheduler's pre-check contract, and the tree treats it as an
// invariant breach rather than quietly dropping the remainder.
func TestProvisionerPanicsWhenDomainCannotSeatJob(t *testing.T) {
	domain := singleHostDomain(t, "rasp1", 2)
	p := provision.NewProvisioner(domain)

	g := placement.NewJob("g1")
	g.AddVertex(placement.Vertex{ID: "v1", Role: placement.RoleSource, Label: map[string]string{"host": "rasp1"}})
	g.AddVertex(placement.Vertex{ID: "v2", Role: placement.RoleOperator})
	g.AddVertex(placement.Vertex{ID: "v3", Role: placement.RoleOperator})
	require.NoError(t, g.Connect("v1", "v2", 1, 1000))
	require.NoError(t, g.Connect("v2", "v3", 1, 1000))

	require.Panics(t, func() { p.Schedule(g) })
}
