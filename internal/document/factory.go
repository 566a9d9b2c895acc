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

import "fmt"

// Options configures the archives BuildArchive knows how to construct.
type Options struct {
	FilePath  string
	RedisAddr string
	RedisKey  string
}

// BuildArchive constructs an Archive by a string selector, the same
// swap-the-backend-by-name shape the persistence layer elsewhere in this
// stack uses for its own adapters.
//
//   - "memory" (default): in-process, lost on restart.
//   - "file": append-only JSONL at opts.FilePath.
//   - "redis": a Redis list at opts.RedisAddr / opts.RedisKey.
func BuildArchive(adapter string, opts Options) (Archive, error) {
	switch adapter {
	case "", "memory":
		return NewMemoryArchive(), nil
	case "file":
		if opts.FilePath == "" {
			return nil, fmt.Errorf("document: file archive requires FilePath")
		}
		return NewFileArchive(opts.FilePath)
	case "redis":
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("document: redis archive requires RedisAddr")
		}
		key := opts.RedisKey
		if key == "" {
			key = "streamplace:jobs"
		}
		return NewRedisArchive(opts.RedisAddr, key), nil
	default:
		return nil, fmt.Errorf("document: unknown archive adapter %q", adapter)
	}
}
