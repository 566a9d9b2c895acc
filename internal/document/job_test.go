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

package document_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"streamplace/internal/document"
	"streamplace/internal/placement"
)

func sampleJob(uuid string) *placement.Job {
	g := placement.NewJob(uuid)
	g.AddVertex(placement.Vertex{ID: "v1", Role: placement.RoleSource, Label: map[string]string{"host": "rasp1"}, MI: 100})
	g.AddVertex(placement.Vertex{ID: "v2", Role: placement.RoleOperator, MI: 200})
	g.AddVertex(placement.Vertex{ID: "v3", Role: placement.RoleSink, Label: map[string]string{"host": "cloud1"}})
	_ = g.Connect("v1", "v2", 10, 100)
	_ = g.Connect("v2", "v3", 10, 100)
	return g
}

func TestJobDocRoundTrip(t *testing.T) {
	g := sampleJob("j1")
	doc := document.FromJob(g)
	require.Equal(t, "j1", doc.UUID)
	require.Len(t, doc.Vertices, 3)
	require.Len(t, doc.Edges, 2)

	back, err := doc.ToJob()
	require.NoError(t, err)
	require.Equal(t, g.NumVertices(), back.NumVertices())

	v1, ok := back.Vertex("v1")
	require.True(t, ok)
	require.Equal(t, placement.RoleSource, v1.Role)
	host, ok := v1.Host()
	require.True(t, ok)
	require.Equal(t, "rasp1", host)
}

func TestJobDocRejectsUnknownVertexType(t *testing.T) {
	doc := &document.JobDoc{
		UUID: "bad",
		Vertices: map[string]document.VertexDoc{
			"v1": {Type: "nonsense"},
		},
	}
	_, err := doc.ToJob()
	require.Error(t, err)
}

func TestMemoryArchiveSaveAndLoad(t *testing.T) {
	a := document.NewMemoryArchive()
	doc := document.FromJob(sampleJob("j1"))
	require.NoError(t, a.SaveAll([]*document.JobDoc{doc}))

	loaded, err := a.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "j1", loaded[0].UUID)
}

func TestFileArchiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.jsonl")
	a, err := document.NewFileArchive(path)
	require.NoError(t, err)
	defer a.Close()

	docs := []*document.JobDoc{
		document.FromJob(sampleJob("j1")),
		document.FromJob(sampleJob("j2")),
	}
	require.NoError(t, a.SaveAll(docs))

	loaded, err := a.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	ids := map[string]bool{}
	for _, d := range loaded {
		ids[d.UUID] = true
	}
	require.True(t, ids["j1"])
	require.True(t, ids["j2"])
}

func TestBuildArchiveRejectsUnknownAdapter(t *testing.T) {
	_, err := document.BuildArchive("carrier-pigeon", document.Options{})
	require.Error(t, err)
}

func TestBuildArchiveDefaultsToMemory(t *testing.T) {
	a, err := document.BuildArchive("", document.Options{})
	require.NoError(t, err)
	_, ok := a.(*document.MemoryArchive)
	require.True(t, ok)
}
