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

// Scenario is the full compute fabric: a set of domains plus a full mesh of
// inter-domain router links.
type Scenario struct {
	Domains []*Domain

	domainLookup map[string]*Domain
}

// NewScenario links every domain pair's routers with a (bd, delayMS) mesh
// link and builds the domain lookup table.
func NewScenario(domains []*Domain, interdomainBD, interdomainDelay int64) *Scenario {
	s := &Scenario{Domains: domains, domainLookup: map[string]*Domain{}}
	for _, d := range domains {
		s.domainLookup[d.Name] = d
	}
	for i := 0; i < len(domains); i++ {
		for j := i + 1; j < len(domains); j++ {
			a, b := domains[i], domains[j]
			// One shared Link registered into both domains' graphs, so either
			// side's shortest-path search sees it and occupied-bandwidth
			// accounting stays on a single counter.
			l := &Link{
				ID: fmt.Sprintf("mesh-%s-%s", a.Name, b.Name),
				A:  a.Router.ID, B: b.Router.ID,
				BD: interdomainBD, DelayMS: interdomainDelay,
			}
			a.Graph.AddNode(b.Router)
			a.Graph.AddLink(l)
			b.Graph.AddNode(a.Router)
			b.Graph.AddLink(l)
		}
	}
	return s
}

// EdgeDomains returns every domain of kind edge.
func (s *Scenario) EdgeDomains() []*Domain {
	var out []*Domain
	for _, d := range s.Domains {
		if d.Kind == DomainEdge {
			out = append(out, d)
		}
	}
	return out
}

// CloudDomains returns every domain of kind cloud.
func (s *Scenario) CloudDomains() []*Domain {
	var out []*Domain
	for _, d := range s.Domains {
		if d.Kind == DomainCloud {
			out = append(out, d)
		}
	}
	return out
}

// FindDomain looks up a domain by name.
func (s *Scenario) FindDomain(name string) (*Domain, bool) {
	d, ok := s.domainLookup[name]
	return d, ok
}

// FullGraph unions every domain's topology graph into one, so a shortest
// path between hosts in two different domains can be found by crossing the
// inter-domain mesh link NewScenario wired into both sides. Used by the
// latency calculator, which otherwise only ever sees one domain's graph at
// a time.
func (s *Scenario) FullGraph() *Graph {
	full := NewGraph()
	for _, d := range s.Domains {
		for _, n := range d.Graph.Nodes() {
			full.AddNode(n)
		}
	}
	for _, d := range s.Domains {
		for _, l := range d.Graph.Links() {
			if _, ok := full.links[l.ID]; ok {
				continue
			}
			full.AddLink(l)
		}
	}
	return full
}
