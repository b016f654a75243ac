// Copyright 2025 Agentic World, LLC (Sherin Thomas)
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

package linksnake

import (
	"context"
	"sync"
)

// WorkerPool runs a fixed number of goroutines draining a queue of work
// items. Resolution runs are slow (tens of seconds of polling), so bounding
// concurrency here keeps a burst of requests from opening hundreds of
// sessions against the same hosting front-ends.
type WorkerPool struct {
	workQueue chan func()
	wg        sync.WaitGroup
	ctx       context.Context
}

// NewWorkerPool starts maxWorkers goroutines. Submissions beyond queueSize
// block, which is the backpressure callers rely on.
func NewWorkerPool(ctx context.Context, maxWorkers, queueSize int) *WorkerPool {
	wp := &WorkerPool{
		workQueue: make(chan func(), queueSize),
		ctx:       ctx,
	}
	for i := 0; i < maxWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for {
		select {
		case work, ok := <-wp.workQueue:
			if !ok {
				return
			}
			work()
		case <-wp.ctx.Done():
			return
		}
	}
}

// Submit queues a work item, blocking while the queue is full. Returns the
// context's error if the pool was canceled before the item could be queued.
func (wp *WorkerPool) Submit(work func()) error {
	select {
	case wp.workQueue <- work:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Close stops accepting work and waits for in-flight items to finish.
func (wp *WorkerPool) Close() {
	close(wp.workQueue)
	wp.wg.Wait()
}
