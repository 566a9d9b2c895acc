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

// Package slots tracks a physical host's slot capacity with a striped-atomic
// accumulator in the vector-scalar style: capacity is the fixed scalar,
// occupied slots are a vector of per-stripe counters, and Occupy/Release are
// the consume/refund pair. Concurrent placement requests hammering one
// host's counter land on different cache lines instead of one hot word.
package slots

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const padSize = 128 - 8

type stripe struct {
	val atomic.Int64
	_   [padSize]byte
}

// Bank is a host's slot accounting: a fixed Capacity and a striped-atomic
// occupied counter. The common single-request scheduling path (§5:
// "the scheduler is single-threaded and can bypass the lock") degrades to a
// handful of uncontended atomic adds; concurrent requests against the same
// host contend only within Occupy/Release's small critical section.
type Bank struct {
	capacity atomic.Int64

	stripes []stripe
	mask    int
	// rr is a round-robin counter used only under tryMu, so it needs no
	// atomic of its own.
	rr uint64

	tryMu sync.Mutex

	useCachedGate bool
	cacheInterval time.Duration
	cachedNet     atomic.Int64
	stopCh        chan struct{}
	closeOnce     sync.Once
}

// Options configures a Bank. The zero value is the common case: no cached
// gate, default stripe count.
type Options struct {
	Stripes       int
	UseCachedGate bool
	CacheInterval time.Duration
}

// NewBank returns a Bank with the given slot capacity and default options.
func NewBank(capacity int64) *Bank {
	return NewBankWithOptions(capacity, Options{})
}

// NewBankWithOptions returns a Bank with explicit options.
func NewBankWithOptions(capacity int64, opts Options) *Bank {
	n := opts.Stripes
	if n <= 0 {
		n = nextPow2(clamp(runtime.GOMAXPROCS(0), 8, 64))
	} else {
		n = nextPow2(clamp(n, 8, 64))
	}
	b := &Bank{stripes: make([]stripe, n), mask: n - 1}
	b.capacity.Store(capacity)

	b.useCachedGate = opts.UseCachedGate
	if b.useCachedGate {
		b.cacheInterval = opts.CacheInterval
		if b.cacheInterval <= 0 {
			b.cacheInterval = 100 * time.Microsecond
		}
		b.stopCh = make(chan struct{})
		go b.runAggregator()
	}
	return b
}

// Capacity returns the host's total slot count.
func (b *Bank) Capacity() int64 { return b.capacity.Load() }

// Occupied returns the number of slots currently in use.
func (b *Bank) Occupied() int64 { return b.currentVector() }

// Free returns Capacity - Occupied.
func (b *Bank) Free() int64 { return b.capacity.Load() - b.currentVector() }

// Occupy atomically checks whether at least n slots are free and, if so,
// reserves them, returning true.
func (b *Bank) Occupy(n int64) bool {
	if n <= 0 {
		return false
	}
	b.tryMu.Lock()
	defer b.tryMu.Unlock()

	var free int64
	if b.useCachedGate {
		free = b.capacity.Load() - b.cachedNet.Load()
	} else {
		free = b.capacity.Load() - b.currentVector()
	}
	if free < n {
		free = b.capacity.Load() - b.currentVector()
		if free < n {
			return false
		}
	}

	idx := int(b.rr) & b.mask
	b.rr++
	b.stripes[idx].val.Add(n)
	return true
}

// Release gives back up to n previously-occupied slots, clamped so the
// occupied count never goes negative. Used both for ordinary teardown and
// for rolling back a job's slots (§7) when its placement pipeline fails
// partway through.
func (b *Bank) Release(n int64) {
	if n <= 0 {
		return
	}
	b.tryMu.Lock()
	defer b.tryMu.Unlock()

	occupied := b.currentVector()
	if occupied <= 0 {
		return
	}
	if n > occupied {
		n = occupied
	}
	idx := int(b.rr) & b.mask
	b.rr++
	b.stripes[idx].val.Add(-n)
}

func (b *Bank) currentVector() int64 {
	var sum int64
	for i := range b.stripes {
		sum += b.stripes[i].val.Load()
	}
	return sum
}

func (b *Bank) runAggregator() {
	t := time.NewTicker(b.cacheInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			b.cachedNet.Store(b.currentVector())
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the background cache refresher, if one was started. Safe to
// call multiple times or on a Bank that never enabled the cached gate.
func (b *Bank) Close() {
	b.closeOnce.Do(func() {
		if b.stopCh != nil {
			close(b.stopCh)
		}
	})
}

func nextPow2(x int) int {
	if x <= 1 {
		return 1
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	return x + 1
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
