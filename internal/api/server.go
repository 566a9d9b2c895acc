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

// Package api implements the public-facing HTTP server for the placement
// scheduler. It decodes job documents, runs them through a Scheduler, and
// returns the resulting vertex -> node assignments or failure reason.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"streamplace/internal/document"
	"streamplace/internal/placement"
	"streamplace/internal/placement/scheduler"
)

// Server handles placement requests for a single scenario's scheduler.
type Server struct {
	sched   *scheduler.Scheduler
	archive document.Archive // optional; nil disables persistence
}

// NewServer creates and configures a new API server around an already-built
// scheduler. archive may be nil, in which case scheduled job documents are
// not persisted anywhere.
func NewServer(sched *scheduler.Scheduler, archive document.Archive) *Server {
	return &Server{sched: sched, archive: archive}
}

func (s *Server) persist(docs ...*document.JobDoc) {
	if s.archive == nil {
		return
	}
	if err := s.archive.SaveAll(docs); err != nil {
		log.Printf("api: failed to persist job document(s): %v", err)
	}
}

// RegisterRoutes sets up the HTTP routes for the server on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/schedule", s.handleSchedule)
	mux.HandleFunc("/v1/schedule/batch", s.handleScheduleBatch)
}

// scheduleResponse is the wire shape of a single job's outcome.
type scheduleResponse struct {
	JobUUID     string            `json:"job_uuid"`
	Status      string            `json:"status"`
	Reason      string            `json:"reason,omitempty"`
	Assignments map[string]string `json:"assignments,omitempty"`
}

func toResponse(r *placement.SchedulingResult) scheduleResponse {
	resp := scheduleResponse{
		JobUUID: r.JobUUID,
		Status:  r.Status.String(),
	}
	if r.Status == placement.StatusFailed {
		resp.Reason = string(r.Reason)
		return resp
	}
	resp.Assignments = r.GetAssignments()
	return resp
}

// handleSchedule decodes one job document from the request body and
// schedules it.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var doc document.JobDoc
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, "invalid job document: "+err.Error(), http.StatusBadRequest)
		return
	}

	g, err := doc.ToJob()
	if err != nil {
		http.Error(w, "invalid job document: "+err.Error(), http.StatusBadRequest)
		return
	}

	result := s.sched.Schedule(g)
	s.persist(&doc)
	writeJSON(w, http.StatusOK, toResponse(result))
}

// handleScheduleBatch decodes several job documents and schedules them
// together, so competing jobs share one knapsack pass per edge domain
// instead of being placed one request at a time.
func (s *Server) handleScheduleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var docs []document.JobDoc
	if err := json.NewDecoder(r.Body).Decode(&docs); err != nil {
		http.Error(w, "invalid job documents: "+err.Error(), http.StatusBadRequest)
		return
	}

	graphs := make([]*placement.Job, len(docs))
	for i, doc := range docs {
		g, err := doc.ToJob()
		if err != nil {
			http.Error(w, "invalid job document: "+err.Error(), http.StatusBadRequest)
			return
		}
		graphs[i] = g
	}

	results := s.sched.ScheduleMultiple(graphs)
	docPtrs := make([]*document.JobDoc, len(docs))
	for i := range docs {
		docPtrs[i] = &docs[i]
	}
	s.persist(docPtrs...)
	resp := make([]scheduleResponse, len(results))
	for i, r := range results {
		resp[i] = toResponse(r)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe starts the HTTP server on the specified address.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return httpServer.ListenAndServe()
}
