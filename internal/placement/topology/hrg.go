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

package topology

import "fmt"

// HRG is a Host-Rack Group: one switch plus the hosts directly connected to
// it, the smallest subtree of the physical topology.
type HRG struct {
	Switch *Node
	Hosts  []*Node

	switchLinkBD    int64
	switchLinkDelay int64
}

// NewHRG builds an HRG with switchID and the given hosts, linking every host
// to the switch at (bd, delayMS).
func NewHRG(switchID string, bd, delayMS int64, hosts []*Node) *HRG {
	return &HRG{
		Switch:          NewTopologyNode(switchID, KindSwitch),
		Hosts:           hosts,
		switchLinkBD:    bd,
		switchLinkDelay: delayMS,
	}
}

// linkInto registers the HRG's switch and hosts into g and connects each
// host to the switch.
func (h *HRG) linkInto(g *Graph) {
	g.AddNode(h.Switch)
	for i, host := range h.Hosts {
		g.AddNode(host)
		g.Connect(h.Switch, host, fmt.Sprintf("%s-link%d", h.Switch.ID, i), h.switchLinkBD, h.switchLinkDelay)
	}
}
