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

import (
	"encoding/json"
	"fmt"
)

// mbpsToBps converts a bandwidth given in Mbps to bps, the unit every
// internal capacity is tracked in.
func mbpsToBps(mbps float64) int64 { return int64(mbps * 1e6) }

// gbToBytes converts memory given in GB to bytes.
func gbToBytes(gb float64) int64 { return int64(gb * 1e9) }

type linkSpec struct {
	BD    float64 `json:"bd"`
	Delay int64   `json:"delay"`
}

type hostSpec struct {
	Prefix string            `json:"prefix"`
	MIPS   int64             `json:"mips"`
	Cores  int64             `json:"cores"`
	Memory float64           `json:"memory"`
	Labels map[string]string `json:"labels"`
}

type hrgDoc struct {
	Replica int      `json:"replica"`
	Switch  linkSpec `json:"switch"`
	Spec    hostSpec `json:"spec"`
}

type domainDoc struct {
	Type   string   `json:"type"`
	Name   string   `json:"name"`
	Router linkSpec `json:"router"`
	HRGs   []hrgDoc `json:"hrgs"`
}

type scenarioDoc struct {
	Domains     []domainDoc `json:"domains"`
	Interdomain linkSpec    `json:"interdomain"`
}

// DecodeScenario parses a scenario document (§6 external interface: top
// level `domains` and `interdomain`) into a wired Scenario.
func DecodeScenario(data []byte) (*Scenario, error) {
	var doc scenarioDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("topology: decode scenario: %w", err)
	}

	domains := make([]*Domain, 0, len(doc.Domains))
	for _, dd := range doc.Domains {
		kind := DomainEdge
		switch dd.Type {
		case "edge":
			kind = DomainEdge
		case "cloud":
			kind = DomainCloud
		default:
			return nil, fmt.Errorf("topology: domain %q: unknown type %q", dd.Name, dd.Type)
		}

		hrgs := make([]*HRG, 0, len(dd.HRGs))
		for hi, hd := range dd.HRGs {
			hosts := make([]*Node, 0, hd.Replica)
			for n := 1; n <= hd.Replica; n++ {
				// The host's name doubles as its node id, so placement output
				// speaks the same names job documents pin against.
				name := fmt.Sprintf("%s%d", hd.Spec.Prefix, n)
				labels := map[string]string{"host": name}
				for k, v := range hd.Spec.Labels {
					labels[k] = v
				}
				hosts = append(hosts, NewHostNode(name, hd.Spec.MIPS, hd.Spec.Cores, gbToBytes(hd.Spec.Memory), labels))
			}
			switchID := fmt.Sprintf("%s-hrg%d-switch", dd.Name, hi)
			hrgs = append(hrgs, NewHRG(switchID, mbpsToBps(hd.Switch.BD), hd.Switch.Delay, hosts))
		}

		router := NewTopologyNode(dd.Name+"-router", KindRouter)
		domains = append(domains, NewDomain(kind, dd.Name, router, hrgs, mbpsToBps(dd.Router.BD), dd.Router.Delay))
	}

	return NewScenario(domains, mbpsToBps(doc.Interdomain.BD), doc.Interdomain.Delay), nil
}
