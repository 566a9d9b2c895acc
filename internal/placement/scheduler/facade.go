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

package scheduler

import (
	"log"

	"streamplace/internal/placement"
	"streamplace/internal/placement/flow"
	"streamplace/internal/placement/knapsack"
	"streamplace/internal/placement/provision"
	"streamplace/internal/placement/topology"
	"streamplace/internal/telemetry"
)

// Scheduler is the placement façade: it classifies every incoming job,
// splits it across the edge/cloud boundary by min-cut, and places each side
// with the provisioning tree of whichever domain ends up holding it.
type Scheduler struct {
	Scenario *topology.Scenario

	cloud *CloudSelector
	prov  map[string]*provision.Provisioner // domain name -> its tree
}

// New builds a scheduler over scenario, instantiating one provisioning tree
// per domain (edge and cloud alike) up front.
func New(scenario *topology.Scenario) *Scheduler {
	s := &Scheduler{
		Scenario: scenario,
		cloud:    NewCloudSelector(scenario.CloudDomains()),
		prov:     map[string]*provision.Provisioner{},
	}
	for _, d := range scenario.Domains {
		s.prov[d.Name] = provision.NewProvisioner(d)
	}
	return s
}

func (s *Scheduler) provisionerFor(d *topology.Domain) *provision.Provisioner {
	return s.prov[d.Name]
}

// Schedule runs the full pipeline for one job: reject jobs whose sources
// don't share a single edge domain or don't fit it, min-cut the rest across
// the edge/cloud boundary, then place the s-cut on the edge domain's tree
// and the t-cut on a rendezvous-selected cloud domain's tree.
func (s *Scheduler) Schedule(g *placement.Job) *placement.SchedulingResult {
	if len(g.Sources()) == 0 {
		result, reason, ok := s.placeInCloud(g)
		if !ok {
			return failResult(g.UUID, reason)
		}
		result.Succeed()
		telemetry.ObservePlacement("succeeded", "")
		return result
	}

	edgeDomain, ok := s.sourceDomain(g)
	if !ok {
		return failResult(g.UUID, placement.ReasonSourcesNotInSingleDomain)
	}
	if !s.sourcesFit(g, edgeDomain) {
		return failResult(g.UUID, placement.ReasonInsufficientResourceSources)
	}

	freeSlots := edgeDomain.FreeSlots()
	telemetry.SetFreeEdgeSlots(edgeDomain.Name, freeSlots)
	options := flow.GenerateCutOptions(g)
	flow.SortByFlow(options)

	var choice *flow.CutOption
	for i := range options {
		if int64(len(options[i].SCut)) <= freeSlots {
			choice = &options[i]
			break
		}
	}
	if choice == nil {
		return failResult(g.UUID, placement.ReasonSlotsNotEnough)
	}
	telemetry.ObserveCrossBoundaryFlow(choice.Flow)

	result := s.placeSplit(g, choice.SCut, choice.TCut, edgeDomain)
	telemetry.SetFreeEdgeSlots(edgeDomain.Name, edgeDomain.FreeSlots())
	return result
}

// placeSplit schedules the s-cut sub-graph on edgeDomain and the t-cut
// sub-graph on the cloud side, merging the two results. If the cloud side
// fails, every slot the edge side already occupied is given back so a failed
// job leaves no residue behind.
func (s *Scheduler) placeSplit(g *placement.Job, sCut, tCut map[string]bool, edgeDomain *topology.Domain) *placement.SchedulingResult {
	edgeProv := s.provisionerFor(edgeDomain)
	sGraph := g.SubGraph(sCut, g.UUID+"-s")
	sResult := edgeProv.Schedule(sGraph)
	if sResult.Status == placement.StatusFailed {
		return failResult(g.UUID, sResult.Reason)
	}

	tGraph := g.SubGraph(tCut, g.UUID+"-t")
	tResult, reason, ok := s.placeInCloud(tGraph)
	if !ok {
		edgeProv.DeleteGraph(sGraph)
		return failResult(g.UUID, reason)
	}

	merged := placement.NewResult(g.UUID)
	merged.Merge(sResult)
	merged.Merge(tResult)
	merged.Succeed()
	telemetry.ObservePlacement("succeeded", "")
	return merged
}

// placeInCloud places g's host-pinned vertices (sinks, typically) directly
// on their named hosts — wherever in the scenario those hosts live — then
// hands whatever is left to the cloud domain g's uuid hashes to. On any
// failure every pin taken so far is released before returning, so the
// caller sees either a complete partial-result or untouched counters.
func (s *Scheduler) placeInCloud(g *placement.Job) (*placement.SchedulingResult, placement.FailureReason, bool) {
	result := placement.NewResult(g.UUID)
	work := g.Copy(g.UUID)

	type pin struct {
		prov     *provision.Provisioner
		nodeID   string
		vertexID string
	}
	var pins []pin
	rollback := func() {
		for _, p := range pins {
			p.prov.UnpinVertex(p.nodeID, p.vertexID)
		}
	}

	for _, v := range work.Vertices() {
		host, ok := v.Host()
		if !ok {
			continue
		}
		domain, node, found := s.findHost(host)
		if !found {
			rollback()
			return nil, placement.ReasonDomainConstraintViolation, false
		}
		prov := s.prov[domain.Name]
		if !prov.PinVertex(node.ID, v) {
			rollback()
			return nil, placement.ReasonNoAvailableHost, false
		}
		pins = append(pins, pin{prov: prov, nodeID: node.ID, vertexID: v.ID})
		result.Assign(v.ID, node.ID)
		work.RemoveVertex(v.ID)
	}

	if work.NumVertices() > 0 {
		cloudDomain := s.cloud.Select(g.UUID)
		if int64(work.NumVertices()) > cloudDomain.FreeSlots() {
			rollback()
			return nil, placement.ReasonSlotsNotEnough, false
		}
		sub := s.provisionerFor(cloudDomain).Schedule(work)
		if sub.Status == placement.StatusFailed {
			rollback()
			return nil, sub.Reason, false
		}
		result.Merge(sub)
	}
	return result, "", true
}

// findHost locates the domain owning the host with the given `host` label.
func (s *Scheduler) findHost(hostname string) (*topology.Domain, *topology.Node, bool) {
	for _, d := range s.Scenario.Domains {
		if n, ok := d.FindHost(hostname); ok {
			return d, n, true
		}
	}
	return nil, nil, false
}

// sourcedJob pairs a job with its index in the caller's input slice, so
// ScheduleMultiple can report results back in the original order once the
// domain-grouped batches below have been processed out of order.
type sourcedJob struct {
	idx int
	g   *placement.Job
}

// ScheduleMultiple places several jobs together, grouping sourced jobs by
// their shared edge domain and, within each group, choosing every job's cut
// option with one combined knapsack pass instead of scheduling jobs one at
// a time — so a cheap job doesn't starve a slightly more expensive one of
// the edge slots it would have fit in.
func (s *Scheduler) ScheduleMultiple(graphs []*placement.Job) []*placement.SchedulingResult {
	results := make([]*placement.SchedulingResult, len(graphs))

	var sourced []sourcedJob
	for i, g := range graphs {
		if len(g.Sources()) == 0 {
			result, reason, ok := s.placeInCloud(g)
			if !ok {
				results[i] = failResult(g.UUID, reason)
				continue
			}
			result.Succeed()
			telemetry.ObservePlacement("succeeded", "")
			results[i] = result
			continue
		}
		sourced = append(sourced, sourcedJob{idx: i, g: g})
	}

	byDomain := map[string][]sourcedJob{}
	for _, sj := range sourced {
		edgeDomain, ok := s.sourceDomain(sj.g)
		if !ok {
			results[sj.idx] = failResult(sj.g.UUID, placement.ReasonSourcesNotInSingleDomain)
			continue
		}
		byDomain[edgeDomain.Name] = append(byDomain[edgeDomain.Name], sj)
	}

	for domainName, group := range byDomain {
		edgeDomain, ok := s.Scenario.FindDomain(domainName)
		if !ok {
			continue
		}
		s.scheduleGroup(group, edgeDomain, results)
	}
	return results
}

// scheduleGroup resolves cut options for every job in group, then either
// places each job's cheapest option directly (if the edge domain has room
// for all of them at once) or runs a grouped knapsack over every job's
// candidate options to choose, in one combined decision, the cheapest
// combination that still fits.
func (s *Scheduler) scheduleGroup(group []sourcedJob, edgeDomain *topology.Domain, results []*placement.SchedulingResult) {
	group = s.filterSourceOverload(group, edgeDomain, results)
	if len(group) == 0 {
		return
	}

	var allOptions [][]flow.CutOption
	kept := group[:0]
	for _, sj := range group {
		options := flow.GenerateCutOptions(sj.g)
		flow.SortByFlow(options)
		if len(options) == 0 {
			results[sj.idx] = failResult(sj.g.UUID, placement.ReasonSlotsNotEnough)
			continue
		}
		allOptions = append(allOptions, options)
		kept = append(kept, sj)
	}
	group = kept

	freeSlots := int(edgeDomain.FreeSlots())
	telemetry.SetFreeEdgeSlots(edgeDomain.Name, int64(freeSlots))

	// Fast path: if every job's cheapest-flow cut fits the edge at once,
	// there is nothing to trade off between jobs.
	var cheapestSum int
	for i := range group {
		cheapestSum += len(allOptions[i][0].SCut)
	}

	if cheapestSum <= freeSlots {
		for i, sj := range group {
			best := allOptions[i][0]
			results[sj.idx] = s.placeSplit(sj.g, best.SCut, best.TCut, edgeDomain)
		}
		return
	}

	groups := make([]knapsack.Group, len(group))
	for i := range group {
		items := make(knapsack.Group, len(allOptions[i]))
		for oi, opt := range allOptions[i] {
			items[oi] = knapsack.Item{Volume: len(opt.SCut), Value: opt.Flow}
		}
		groups[i] = items
	}

	choice, _, ok := knapsack.SolveMinValue(freeSlots, groups)
	if !ok {
		for _, sj := range group {
			if results[sj.idx] == nil {
				results[sj.idx] = failResult(sj.g.UUID, placement.ReasonSlotsNotEnough)
			}
		}
		return
	}

	for i, sj := range group {
		opt := allOptions[i][choice[i]]
		results[sj.idx] = s.placeSplit(sj.g, opt.SCut, opt.TCut, edgeDomain)
	}
}

// sourceDomain finds the single edge domain containing every source
// vertex's host label, or (false) if the sources span more than one.
func (s *Scheduler) sourceDomain(g *placement.Job) (*topology.Domain, bool) {
	var found *topology.Domain
	for _, v := range g.Sources() {
		host, ok := v.Host()
		if !ok {
			return nil, false
		}
		var owner *topology.Domain
		for _, d := range s.Scenario.EdgeDomains() {
			if _, ok := d.FindHost(host); ok {
				owner = d
				break
			}
		}
		if owner == nil {
			return nil, false
		}
		if found != nil && found.Name != owner.Name {
			return nil, false
		}
		found = owner
	}
	if found == nil {
		return nil, false
	}
	return found, true
}

// sourcesFit checks that every host a job's sources are pinned to still has
// enough free slots for the sources pinned there, before the min-cut
// pipeline bothers running at all.
func (s *Scheduler) sourcesFit(g *placement.Job, d *topology.Domain) bool {
	demand := map[string]int64{}
	for _, v := range g.Sources() {
		host, _ := v.Host()
		demand[host]++
	}
	for host, count := range demand {
		n, ok := d.FindHost(host)
		if !ok || n.Slots()-n.Occupied() < count {
			return false
		}
	}
	return true
}

// filterSourceOverload aggregates source counts per pinned host across the
// whole group and fails every job whose requested host cannot seat the
// combined demand. Checking per job would let two jobs that individually fit
// race into the same last slot and trip a capacity invariant deep inside the
// provisioning tree instead of failing cleanly up here.
func (s *Scheduler) filterSourceOverload(group []sourcedJob, edgeDomain *topology.Domain, results []*placement.SchedulingResult) []sourcedJob {
	demand := map[string]int64{}
	for _, sj := range group {
		for _, v := range sj.g.Sources() {
			host, _ := v.Host()
			demand[host]++
		}
	}
	overloaded := map[string]bool{}
	for host, count := range demand {
		n, ok := edgeDomain.FindHost(host)
		if !ok || n.Slots()-n.Occupied() < count {
			overloaded[host] = true
		}
	}
	if len(overloaded) == 0 {
		return group
	}

	kept := group[:0]
	for _, sj := range group {
		hitsOverload := false
		for _, v := range sj.g.Sources() {
			host, _ := v.Host()
			if overloaded[host] {
				hitsOverload = true
				break
			}
		}
		if hitsOverload {
			results[sj.idx] = failResult(sj.g.UUID, placement.ReasonInsufficientResourceSources)
			continue
		}
		kept = append(kept, sj)
	}
	return kept
}

func failResult(jobUUID string, reason placement.FailureReason) *placement.SchedulingResult {
	r := placement.NewResult(jobUUID)
	r.Fail(reason)
	telemetry.ObservePlacement("failed", string(reason))
	log.Printf("scheduler: job %s rejected: %s", jobUUID, reason)
	return r
}
