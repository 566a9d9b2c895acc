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

// Package scheduler wires the flow/cut, knapsack, and provisioning-tree
// components into the end-to-end placement pipeline: classify a job,
// min-cut it across the edge/cloud boundary, and hand each side to the
// domain that will actually hold it.
package scheduler

import (
	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"

	"streamplace/internal/placement/topology"
)

// CloudSelector picks which cloud domain a job's t-cut (or a whole
// zero-source job) lands in, by rendezvous-hashing the job's UUID over the
// set of cloud domain names: the same job always lands on the same cloud
// domain, and adding or removing a cloud domain only reshuffles the jobs
// hashed to it, not every job in flight.
type CloudSelector struct {
	rv      *rendezvous.Rendezvous
	domains map[string]*topology.Domain
}

// NewCloudSelector builds a selector over the scenario's cloud domains.
func NewCloudSelector(domains []*topology.Domain) *CloudSelector {
	names := make([]string, len(domains))
	lookup := make(map[string]*topology.Domain, len(domains))
	for i, d := range domains {
		names[i] = d.Name
		lookup[d.Name] = d
	}
	return &CloudSelector{
		rv:      rendezvous.New(names, xxhash.Sum64String),
		domains: lookup,
	}
}

// Select returns the cloud domain jobUUID hashes to.
func (c *CloudSelector) Select(jobUUID string) *topology.Domain {
	return c.domains[c.rv.Lookup(jobUUID)]
}

// Add registers a newly-joined cloud domain with the selector.
func (c *CloudSelector) Add(d *topology.Domain) {
	c.domains[d.Name] = d
	c.rv.Add(d.Name)
}
