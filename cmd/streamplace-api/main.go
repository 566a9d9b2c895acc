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

// Package main is the entry point for the placement scheduler's HTTP API
// service. It loads a scenario document, builds a Scheduler over it, and
// serves placement requests until told to shut down.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streamplace/internal/api"
	"streamplace/internal/document"
	"streamplace/internal/placement/scheduler"
	"streamplace/internal/placement/topology"
	"streamplace/internal/telemetry"
)

func main() {
	scenarioPath := flag.String("scenario", "", "path to a scenario JSON document (required)")
	httpAddr := flag.String("http_addr", ":8080", "HTTP listen address (e.g., :8080)")
	metricsAddr := flag.String("metrics_addr", "", "if non-empty, expose Prometheus /metrics on this address")
	archiveAdapter := flag.String("archive", "", "where to persist scheduled job documents: \"\"/memory, file, redis")
	archiveFile := flag.String("archive_file", "", "file path when -archive=file")
	redisAddr := flag.String("redis_addr", "", "redis address when -archive=redis")
	redisKey := flag.String("redis_key", "", "redis list key when -archive=redis")
	flag.Parse()

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "usage: streamplace-api -scenario scenario.json [-http_addr :8080]")
		os.Exit(2)
	}

	scenarioData, err := os.ReadFile(*scenarioPath)
	if err != nil {
		log.Fatalf("reading scenario: %v", err)
	}
	scenario, err := topology.DecodeScenario(scenarioData)
	if err != nil {
		log.Fatalf("decoding scenario: %v", err)
	}

	archive, err := document.BuildArchive(*archiveAdapter, document.Options{
		FilePath:  *archiveFile,
		RedisAddr: *redisAddr,
		RedisKey:  *redisKey,
	})
	if err != nil {
		log.Fatalf("building archive: %v", err)
	}

	if *metricsAddr != "" {
		telemetry.ServeMetrics(*metricsAddr)
	}

	sched := scheduler.New(scenario)
	apiServer := api.NewServer(sched, archive)

	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:         *httpAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Placement API server listening on %s\n", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("could not listen on %s: %v\n", *httpAddr, err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("\nShutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}
	fmt.Println("Server gracefully stopped.")
}
