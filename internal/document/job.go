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

// Package document defines the on-the-wire job/scenario document shapes and
// the archives that persist streams of them.
package document

import (
	"fmt"

	"streamplace/internal/placement"
)

// VertexDoc is one vertex's entry in a JobDoc's vertices map.
type VertexDoc struct {
	Type             string            `json:"type"`
	DomainConstraint map[string]string `json:"domain_constraint,omitempty"`
	OutUnitSize      int64             `json:"out_unit_size,omitempty"`
	OutUnitRate      int64             `json:"out_unit_rate,omitempty"`
	MI               int64             `json:"mi,omitempty"`
	Memory           int64             `json:"memory,omitempty"`
	UpstreamBD       int64             `json:"upstream_bd,omitempty"`
	DownstreamBD     int64             `json:"downstream_bd,omitempty"`
}

// EdgeData carries one edge's bandwidth parameters.
type EdgeData struct {
	UnitSize  int64 `json:"unit_size"`
	PerSecond int64 `json:"per_second"`
}

// EdgeDoc is one entry in a JobDoc's edges list.
type EdgeDoc struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Data EdgeData `json:"data"`
}

// JobDoc is the external, serialized shape of a job: a uuid, a map of
// vertex id to its attributes, and a list of edges between them.
type JobDoc struct {
	UUID     string               `json:"uuid"`
	Vertices map[string]VertexDoc `json:"vertices"`
	Edges    []EdgeDoc            `json:"edges"`
}

func roleFromType(t string) (placement.Role, error) {
	switch t {
	case "source":
		return placement.RoleSource, nil
	case "operator":
		return placement.RoleOperator, nil
	case "sink":
		return placement.RoleSink, nil
	default:
		return 0, fmt.Errorf("document: unknown vertex type %q", t)
	}
}

// ToJob decodes a JobDoc into a placement.Job, wiring every edge via
// Job.Connect (which derives UpstreamBD/DownstreamBD itself — the doc's own
// upstream_bd/downstream_bd fields, written by FromJob, are ignored here and
// never trusted over the edge list).
func (d *JobDoc) ToJob() (*placement.Job, error) {
	g := placement.NewJob(d.UUID)
	for id, vd := range d.Vertices {
		role, err := roleFromType(vd.Type)
		if err != nil {
			return nil, fmt.Errorf("document: vertex %s: %w", id, err)
		}
		g.AddVertex(placement.Vertex{
			ID:     id,
			Role:   role,
			Label:  vd.DomainConstraint,
			MI:     vd.MI,
			Memory: vd.Memory,
		})
	}
	for _, ed := range d.Edges {
		if err := g.Connect(ed.From, ed.To, ed.Data.UnitSize, ed.Data.PerSecond); err != nil {
			return nil, fmt.Errorf("document: job %s: %w", d.UUID, err)
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// FromJob encodes a placement.Job back into its document form.
func FromJob(g *placement.Job) *JobDoc {
	doc := &JobDoc{UUID: g.UUID, Vertices: map[string]VertexDoc{}}
	for _, v := range g.Vertices() {
		doc.Vertices[v.ID] = VertexDoc{
			Type:             v.Role.String(),
			DomainConstraint: v.Label,
			MI:               v.MI,
			Memory:           v.Memory,
			UpstreamBD:       v.UpstreamBD,
			DownstreamBD:     v.DownstreamBD,
		}
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeDoc{
			From: e.From,
			To:   e.To,
			Data: EdgeData{UnitSize: e.UnitSize, PerSecond: e.PerSec},
		})
	}
	return doc
}
