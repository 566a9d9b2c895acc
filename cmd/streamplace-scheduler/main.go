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

// Package main provides a one-shot CLI entry point: read a scenario document
// and a batch of job documents from disk, schedule every job, and print the
// resulting assignments as JSON. It exists for offline experimentation and
// scripted batch placement, the CLI counterpart to cmd/streamplace-api.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"streamplace/internal/document"
	"streamplace/internal/placement"
	"streamplace/internal/placement/scheduler"
	"streamplace/internal/placement/topology"
	"streamplace/internal/telemetry"
)

func main() {
	scenarioPath := flag.String("scenario", "", "path to a scenario JSON document (required)")
	jobsPath := flag.String("jobs", "", "path to a job document or a JSON array of job documents (required)")
	archiveAdapter := flag.String("archive", "", "where to persist scheduled job documents: \"\"/memory, file, redis")
	archiveFile := flag.String("archive_file", "", "file path when -archive=file")
	redisAddr := flag.String("redis_addr", "", "redis address when -archive=redis")
	redisKey := flag.String("redis_key", "", "redis list key when -archive=redis")
	metricsAddr := flag.String("metrics_addr", "", "if non-empty, expose Prometheus /metrics on this address while running")
	flag.Parse()

	if *scenarioPath == "" || *jobsPath == "" {
		fmt.Fprintln(os.Stderr, "usage: streamplace-scheduler -scenario scenario.json -jobs jobs.json")
		os.Exit(2)
	}

	if *metricsAddr != "" {
		telemetry.ServeMetrics(*metricsAddr)
	}

	scenarioData, err := os.ReadFile(*scenarioPath)
	if err != nil {
		log.Fatalf("reading scenario: %v", err)
	}
	scenario, err := topology.DecodeScenario(scenarioData)
	if err != nil {
		log.Fatalf("decoding scenario: %v", err)
	}

	docs, err := loadJobDocs(*jobsPath)
	if err != nil {
		log.Fatalf("reading jobs: %v", err)
	}

	graphs := make([]*placement.Job, len(docs))
	for i, doc := range docs {
		g, err := doc.ToJob()
		if err != nil {
			log.Fatalf("job %q: %v", doc.UUID, err)
		}
		graphs[i] = g
	}

	sched := scheduler.New(scenario)
	results := sched.ScheduleMultiple(graphs)

	archive, err := document.BuildArchive(*archiveAdapter, document.Options{
		FilePath:  *archiveFile,
		RedisAddr: *redisAddr,
		RedisKey:  *redisKey,
	})
	if err != nil {
		log.Fatalf("building archive: %v", err)
	}
	if err := archive.SaveAll(docs); err != nil {
		log.Fatalf("saving job documents: %v", err)
	}

	out := make([]outcome, len(results))
	for i, r := range results {
		out[i] = toOutcome(r)
	}
	if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
		log.Fatalf("encoding results: %v", err)
	}
}

// outcome is the CLI's JSON output shape for one job's scheduling result.
type outcome struct {
	JobUUID     string            `json:"job_uuid"`
	Status      string            `json:"status"`
	Reason      string            `json:"reason,omitempty"`
	Assignments map[string]string `json:"assignments,omitempty"`
}

func toOutcome(r *placement.SchedulingResult) outcome {
	o := outcome{JobUUID: r.JobUUID, Status: r.Status.String()}
	if r.Status == placement.StatusFailed {
		o.Reason = string(r.Reason)
		return o
	}
	o.Assignments = r.GetAssignments()
	return o
}

// loadJobDocs accepts either a single job document or a JSON array of them.
func loadJobDocs(path string) ([]*document.JobDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var docs []*document.JobDoc
	if err := json.Unmarshal(data, &docs); err == nil {
		return docs, nil
	}

	var single document.JobDoc
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("not a job document or an array of job documents: %w", err)
	}
	return []*document.JobDoc{&single}, nil
}
