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

package document

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
)

// Archive persists a stream of job documents. SaveAll/LoadAll operate on
// the whole stream rather than one document at a time, matching the
// save_all/load_all entry points the external interface calls for.
type Archive interface {
	SaveAll(docs []*JobDoc) error
	LoadAll() ([]*JobDoc, error)
}

// MemoryArchive keeps documents in process memory; used by tests and by
// callers that never intend to persist across restarts.
type MemoryArchive struct {
	mu   sync.Mutex
	docs []*JobDoc
}

// NewMemoryArchive returns an empty in-memory archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{}
}

// SaveAll appends docs to the in-memory store.
func (a *MemoryArchive) SaveAll(docs []*JobDoc) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.docs = append(a.docs, docs...)
	return nil
}

// LoadAll returns a copy of every document stored so far.
func (a *MemoryArchive) LoadAll() ([]*JobDoc, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*JobDoc, len(a.docs))
	copy(out, a.docs)
	return out, nil
}

// FileArchive is a buffered, append-only JSONL file archive: one job
// document per line. Safe for concurrent use.
type FileArchive struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
}

// NewFileArchive opens (or creates) the file at path in append mode.
func NewFileArchive(path string) (*FileArchive, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileArchive{f: f, w: bufio.NewWriterSize(f, 1<<20), path: path}, nil
}

// SaveAll appends docs as JSON lines and flushes before returning.
func (a *FileArchive) SaveAll(docs []*JobDoc) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	enc := json.NewEncoder(a.w)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return err
		}
	}
	return a.w.Flush()
}

// LoadAll reads every document currently in the file, from the start.
func (a *FileArchive) LoadAll() ([]*JobDoc, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.w.Flush(); err != nil {
		return nil, err
	}
	f, err := os.Open(a.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []*JobDoc
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 1<<20)
	scanner.Buffer(buf, 1<<26)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var d JobDoc
		if err := json.Unmarshal(line, &d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, scanner.Err()
}

// Close flushes and closes the underlying file.
func (a *FileArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.w.Flush()
	return a.f.Close()
}
