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

package topology_test

import (
	"testing"

	"streamplace/internal/placement/topology"
)

const testScenarioDoc = `
{
  "domains": [
    {
      "type": "edge",
      "name": "edge1",
      "router": {"bd": 1000, "delay": 1},
      "hrgs": [
        {
          "replica": 1,
          "switch": {"bd": 1000, "delay": 1},
          "spec": {"prefix": "rasp", "mips": 1000, "cores": 4, "memory": 5, "labels": {}}
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
          "spec": {"prefix": "cloud", "mips": 5000, "cores": 32, "memory": 10, "labels": {}}
        }
      ]
    }
  ],
  "interdomain": {"bd": 5000, "delay": 10}
}`

func TestDecodeScenarioBuildsDomainsAndHosts(t *testing.T) {
	sc, err := topology.DecodeScenario([]byte(testScenarioDoc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sc.EdgeDomains()) != 1 || len(sc.CloudDomains()) != 1 {
		t.Fatalf("want 1 edge + 1 cloud domain, got %d edge, %d cloud", len(sc.EdgeDomains()), len(sc.CloudDomains()))
	}

	edge, ok := sc.FindDomain("edge1")
	if !ok {
		t.Fatal("edge1 domain missing")
	}
	host, ok := edge.FindHost("rasp1")
	if !ok {
		t.Fatal("rasp1 host missing")
	}
	// 5 GB memory / 5e8 bytes per slot = 10 slots.
	if host.Slots() != 10 {
		t.Fatalf("slots = %d, want 10", host.Slots())
	}
}

func TestScenarioMeshConnectsRouters(t *testing.T) {
	sc, err := topology.DecodeScenario([]byte(testScenarioDoc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	edge, _ := sc.FindDomain("edge1")
	cloud, _ := sc.FindDomain("cloud1")

	path := edge.Graph.ShortestPath(edge.Router.ID, cloud.Router.ID)
	if len(path) == 0 {
		t.Fatal("expected a mesh path between edge and cloud routers")
	}
}

func TestDomainFreeSlots(t *testing.T) {
	sc, err := topology.DecodeScenario([]byte(testScenarioDoc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	edge, _ := sc.FindDomain("edge1")
	if got := edge.FreeSlots(); got != 10 {
		t.Fatalf("free slots = %d, want 10", got)
	}
	host, _ := edge.FindHost("rasp1")
	host.Occupy(3)
	if got := edge.FreeSlots(); got != 7 {
		t.Fatalf("free slots after occupy = %d, want 7", got)
	}
}
