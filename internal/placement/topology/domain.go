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

import "strconv"

// DomainKind distinguishes bandwidth-constrained edge sites from
// resource-rich cloud sites.
type DomainKind int

const (
	DomainEdge DomainKind = iota
	DomainCloud
)

func (k DomainKind) String() string {
	if k == DomainCloud {
		return "cloud"
	}
	return "edge"
}

// Domain is one site: a router, one or more HRGs, and the composed
// topology graph of that subtree.
type Domain struct {
	Kind   DomainKind
	Name   string
	Router *Node
	HRGs   []*HRG
	Graph  *Graph

	hostLookup map[string]*Node
}

// NewDomain builds a domain's topology by linking its router to every HRG's
// switch.
func NewDomain(kind DomainKind, name string, router *Node, hrgs []*HRG, routerLinkBD, routerLinkDelay int64) *Domain {
	d := &Domain{Kind: kind, Name: name, Router: router, HRGs: hrgs, Graph: NewGraph(), hostLookup: map[string]*Node{}}
	d.Graph.AddNode(router)
	for i, hrg := range hrgs {
		hrg.linkInto(d.Graph)
		d.Graph.Connect(router, hrg.Switch, name+"-router-link"+strconv.Itoa(i), routerLinkBD, routerLinkDelay)
		for _, host := range hrg.Hosts {
			if h, ok := host.Host(); ok {
				d.hostLookup[h] = host
			}
		}
	}
	return d
}

// FindHost looks up a host node by its `host` label.
func (d *Domain) FindHost(hostname string) (*Node, bool) {
	h, ok := d.hostLookup[hostname]
	return h, ok
}

// FreeSlots sums free slot capacity across every host in the domain.
func (d *Domain) FreeSlots() int64 {
	var total int64
	for _, hrg := range d.HRGs {
		for _, host := range hrg.Hosts {
			total += host.Slots() - host.Occupied()
		}
	}
	return total
}

// Hosts returns every host node in the domain.
func (d *Domain) Hosts() []*Node {
	var out []*Node
	for _, hrg := range d.HRGs {
		out = append(out, hrg.Hosts...)
	}
	return out
}
