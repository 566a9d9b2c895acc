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
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// RedisArchive stores job documents in a single Redis list, one JSON-encoded
// document per element, keyed by the archive's name. Appends with RPUSH and
// reads back the whole list with LRANGE — a plain, non-transactional shared
// archive; nothing here needs Lua-scripted atomicity across calls.
type RedisArchive struct {
	client *redis.Client
	key    string
}

// NewRedisArchive connects to addr and stores documents under the list key
// named key.
func NewRedisArchive(addr, key string) *RedisArchive {
	return &RedisArchive{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    key,
	}
}

// SaveAll RPUSHes every document's JSON encoding onto the archive's list.
func (a *RedisArchive) SaveAll(docs []*JobDoc) error {
	if len(docs) == 0 {
		return nil
	}
	ctx := context.Background()
	values := make([]interface{}, len(docs))
	for i, d := range docs {
		b, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("document: encode job %s: %w", d.UUID, err)
		}
		values[i] = b
	}
	return a.client.RPush(ctx, a.key, values...).Err()
}

// LoadAll reads back every document currently stored under the archive's
// key, in append order.
func (a *RedisArchive) LoadAll() ([]*JobDoc, error) {
	ctx := context.Background()
	raw, err := a.client.LRange(ctx, a.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*JobDoc, 0, len(raw))
	for _, s := range raw {
		var d JobDoc
		if err := json.Unmarshal([]byte(s), &d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, nil
}

// Close releases the underlying Redis connection pool.
func (a *RedisArchive) Close() error {
	return a.client.Close()
}
