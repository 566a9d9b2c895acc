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

//go:build e2e

// Package e2e drives whole scenario+job documents through the external JSON
// surface (topology.DecodeScenario, document.JobDoc) and the scheduler
// façade, the way a real deployment's scenario and job files would be
// consumed. End to end here means "the full decode -> schedule -> result
// pipeline": the scheduler is an embeddable library and CLI, not a service
// whose behavior depends on process boundaries, so no subprocess is
// launched.
package e2e

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"streamplace/internal/document"
	"streamplace/internal/placement"
	"streamplace/internal/placement/scheduler"
	"streamplace/internal/placement/topology"
)

const twoDomainScenario = `{
  "domains": [
    {
      "type": "edge",
      "name": "edge1",
      "router": {"bd": 1000, "delay": 1},
      "hrgs": [
        {
          "replica": 2,
          "switch": {"bd": 1000, "delay": 1},
          "spec": {"prefix": "rasp", "mips": 2000, "cores": 4, "memory": 2, "labels": {}}
        }
      ]
    },
    {
      "type": "cloud",
      "name": "cloud1",
      "router": {"bd": 10000, "delay": 1},
      "hrgs": [
        {
          "replica": 1,
          "switch": {"bd": 10000, "delay": 1},
          "spec": {"prefix": "vm", "mips": 8000, "cores": 16, "memory": 64, "labels": {}}
        }
      ]
    }
  ],
  "interdomain": {"bd": 500, "delay": 10}
}`

// threeDomainScenario adds a second, independent edge domain so a job whose
// sources live in two different edge domains can actually be constructed —
// twoDomainScenario's single edge domain only ever yields sibling hosts
// within the same domain.
const threeDomainScenario = `{
  "domains": [
    {
      "type": "edge",
      "name": "edge1",
      "router": {"bd": 1000, "delay": 1},
      "hrgs": [
        {
          "replica": 1,
          "switch": {"bd": 1000, "delay": 1},
          "spec": {"prefix": "rasp", "mips": 2000, "cores": 4, "memory": 2, "labels": {}}
        }
      ]
    },
    {
      "type": "edge",
      "name": "edge2",
      "router": {"bd": 1000, "delay": 1},
      "hrgs": [
        {
          "replica": 1,
          "switch": {"bd": 1000, "delay": 1},
          "spec": {"prefix": "nano", "mips": 2000, "cores": 4, "memory": 2, "labels": {}}
        }
      ]
    },
    {
      "type": "cloud",
      "name": "cloud1",
      "router": {"bd": 10000, "delay": 1},
      "hrgs": [
        {
          "replica": 1,
          "switch": {"bd": 10000, "delay": 1},
          "spec": {"prefix": "vm", "mips": 8000, "cores": 16, "memory": 64, "labels": {}}
        }
      ]
    }
  ],
  "interdomain": {"bd": 500, "delay": 10}
}`

func decodeScenario(t *testing.T) *topology.Scenario {
	t.Helper()
	s, err := topology.DecodeScenario([]byte(twoDomainScenario))
	require.NoError(t, err)
	return s
}

func decodeThreeDomainScenario(t *testing.T) *topology.Scenario {
	t.Helper()
	s, err := topology.DecodeScenario([]byte(threeDomainScenario))
	require.NoError(t, err)
	return s
}

func linearJobDoc(uuid, sourceHost, sinkHost string) document.JobDoc {
	return document.JobDoc{
		UUID: uuid,
		Vertices: map[string]document.VertexDoc{
			"src": {Type: "source", DomainConstraint: map[string]string{"host": sourceHost}, MI: 100},
			"op":  {Type: "operator", MI: 500},
			"snk": {Type: "sink", DomainConstraint: map[string]string{"host": sinkHost}},
		},
		Edges: []document.EdgeDoc{
			{From: "src", To: "op", Data: document.EdgeData{UnitSize: 1, PerSecond: 1000}},
			{From: "op", To: "snk", Data: document.EdgeData{UnitSize: 1, PerSecond: 1000}},
		},
	}
}

// TestSingleJobEndToEnd exercises S1: a job whose source lands on an edge
// host and whose sink escalates to the cloud, decoded from JSON documents
// exactly as the CLI and API entry points would receive them.
func TestSingleJobEndToEnd(t *testing.T) {
	scenario := decodeScenario(t)
	sched := scheduler.New(scenario)

	doc := linearJobDoc("j1", "rasp1", "vm1")
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var roundTripped document.JobDoc
	require.NoError(t, json.Unmarshal(raw, &roundTripped))

	g, err := roundTripped.ToJob()
	require.NoError(t, err)

	result := sched.Schedule(g)
	require.Equal(t, placement.StatusSucceeded, result.Status)
	require.True(t, result.CheckComplete(g))

	src, _ := result.GetScheduledNode("src")
	snk, _ := result.GetScheduledNode("snk")
	require.Equal(t, "rasp1", src)
	require.Equal(t, "vm1", snk)
}

// TestSourcesSpanningDomainsFailsEndToEnd exercises S5 through the document
// layer: a job whose sources live in two different edge domains can never
// be placed, however it arrives.
func TestSourcesSpanningDomainsFailsEndToEnd(t *testing.T) {
	scenario := decodeThreeDomainScenario(t)
	sched := scheduler.New(scenario)

	doc := document.JobDoc{
		UUID: "j2",
		Vertices: map[string]document.VertexDoc{
			"s1":  {Type: "source", DomainConstraint: map[string]string{"host": "rasp1"}},
			"s2":  {Type: "source", DomainConstraint: map[string]string{"host": "nano1"}},
			"snk": {Type: "sink", DomainConstraint: map[string]string{"host": "vm1"}},
		},
		Edges: []document.EdgeDoc{
			{From: "s1", To: "snk", Data: document.EdgeData{UnitSize: 1, PerSecond: 100}},
			{From: "s2", To: "snk", Data: document.EdgeData{UnitSize: 1, PerSecond: 100}},
		},
	}
	g, err := doc.ToJob()
	require.NoError(t, err)

	result := sched.Schedule(g)
	require.Equal(t, placement.StatusFailed, result.Status)
	require.Equal(t, placement.ReasonSourcesNotInSingleDomain, result.Reason)
}

// tightEdgeScenario builds a scenario (outside the JSON surface, since a
// single HRG spec can't express asymmetric host capacities) with one edge
// host barely big enough for a source and nothing else, and a roomier
// sibling under the same switch to absorb whatever doesn't fit.
func tightEdgeScenario() *topology.Scenario {
	small := topology.NewHostNode("rasp1", 1000, 4, topology.SlotMemorySize, map[string]string{"host": "rasp1"})
	big := topology.NewHostNode("rasp2", 1000, 4, 5*topology.SlotMemorySize, map[string]string{"host": "rasp2"})
	hrg := topology.NewHRG("edge3-switch", 1e9, 1, []*topology.Node{small, big})
	edgeRouter := topology.NewTopologyNode("edge3-router", topology.KindRouter)
	edge := topology.NewDomain(topology.DomainEdge, "edge3", edgeRouter, []*topology.HRG{hrg}, 1e9, 1)

	vm := topology.NewHostNode("vm1", 8000, 16, 64*topology.SlotMemorySize, map[string]string{"host": "vm1"})
	cloudHRG := topology.NewHRG("cloud3-switch", 1e10, 1, []*topology.Node{vm})
	cloudRouter := topology.NewTopologyNode("cloud3-router", topology.KindRouter)
	cloud := topology.NewDomain(topology.DomainCloud, "cloud3", cloudRouter, []*topology.HRG{cloudHRG}, 1e10, 1)

	return topology.NewScenario([]*topology.Domain{edge, cloud}, 5e8, 10)
}

// TestDisconnectedOperatorSubgraphRehomed exercises S6 at the document layer:
// the min-cut keeps src and op1 together on the edge side (the src->op1 link
// carries far more bandwidth than op1->op2, so cutting between op1 and op2
// is cheaper than cutting right after src), op2 escalates to the cloud on
// its own, and — the part this test is actually after — op1 itself then has
// to rehome off of src's own, already-full host onto its sibling once it
// arrives at the edge domain's provisioner. The provisioner mechanics
// themselves are traced in more detail in
// internal/placement/provision/rearrange_test.go; this test only confirms
// the same behavior survives the document decode and scheduler façade.
func TestDisconnectedOperatorSubgraphRehomed(t *testing.T) {
	sched := scheduler.New(tightEdgeScenario())

	doc := document.JobDoc{
		UUID: "j3",
		Vertices: map[string]document.VertexDoc{
			"src": {Type: "source", DomainConstraint: map[string]string{"host": "rasp1"}, MI: 100},
			"op1": {Type: "operator", MI: 500},
			"op2": {Type: "operator", MI: 500},
		},
		Edges: []document.EdgeDoc{
			{From: "src", To: "op1", Data: document.EdgeData{UnitSize: 1, PerSecond: 100000}},
			{From: "op1", To: "op2", Data: document.EdgeData{UnitSize: 1, PerSecond: 10}},
		},
	}
	g, err := doc.ToJob()
	require.NoError(t, err)

	result := sched.Schedule(g)
	require.Equal(t, placement.StatusSucceeded, result.Status)
	require.True(t, result.CheckComplete(g))

	src, _ := result.GetScheduledNode("src")
	require.Equal(t, "rasp1", src)
	op1, _ := result.GetScheduledNode("op1")
	require.Equal(t, "rasp2", op1, "op1 lost its path back to rasp1 once src's host filled up and should have re-homed onto the sibling host")
	op2, _ := result.GetScheduledNode("op2")
	require.Equal(t, "vm1", op2, "op2 crossed the min-cut boundary onto the cloud domain")
}
