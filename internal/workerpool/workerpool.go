// Copyright 2024 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package workerpool is a bounded goroutine pool for dispatching
// callbacks off a caller's own goroutine, generalized from
// concurrency/gopool's GoPool. It backs mux's optional async-dispatch
// mode, where poll-readiness callbacks run on pool workers instead of
// the poller goroutine itself, so one slow callback cannot stall the
// whole Poll loop.
package workerpool

import (
	"context"
	"log"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Logger is the minimal logging surface workerpool and mux depend on,
// satisfied directly by the standard library's *log.Logger.
type Logger interface {
	Printf(format string, args ...interface{})
}

type stdLogger struct{}

func (stdLogger) Printf(format string, args ...interface{}) {
	log.Printf(format, args...)
}

// Option configures a Pool.
type Option struct {
	// MaxIdleWorkers is the max number of workers kept around blocking
	// on the task queue; a worker started while this many are already
	// live runs whatever is queued and exits as soon as the queue is
	// empty.
	MaxIdleWorkers int

	// WorkerMaxAge bounds how long a worker within MaxIdleWorkers
	// keeps picking up tasks: it exits after the first task it finishes
	// once it is older than this.
	WorkerMaxAge time.Duration

	// TaskChanBuffer sizes the task queue. If it is full, Go/CtxGo
	// fall back to spawning a bare goroutine rather than blocking.
	TaskChanBuffer int

	// Logger receives panic reports from tasks when no per-call
	// PanicHandler is set via SetPanicHandler. Defaults to the
	// standard library logger.
	Logger Logger
}

// DefaultOption returns the default Option values.
func DefaultOption() *Option {
	return &Option{
		MaxIdleWorkers: 1000,
		WorkerMaxAge:   time.Minute,
		TaskChanBuffer: 1000,
		Logger:         stdLogger{},
	}
}

type task struct {
	ctx context.Context
	f   func()
}

// Pool is a bounded worker pool for background task dispatch.
type Pool struct {
	name string

	workers int32
	maxIdle int32
	maxage  int64 // milliseconds

	panicHandler func(ctx context.Context, r interface{})
	logger       Logger

	tasks     chan task
	unixMilli int64

	createWorker func()
}

// New creates a Pool. A nil Option uses DefaultOption.
func New(name string, o *Option) *Pool {
	if o == nil {
		o = DefaultOption()
	}
	logger := o.Logger
	if logger == nil {
		logger = stdLogger{}
	}
	p := &Pool{
		name:    name,
		tasks:   make(chan task, o.TaskChanBuffer),
		maxage:  o.WorkerMaxAge.Milliseconds(),
		maxIdle: int32(o.MaxIdleWorkers),
		logger:  logger,
	}
	// fix: func literal escapes to heap
	p.createWorker = func() {
		p.runWorker()
	}
	return p
}

// Go runs f on a pool worker.
func (p *Pool) Go(f func()) {
	p.CtxGo(context.Background(), f)
}

// CtxGo runs f on a pool worker, passing ctx to the panic handler if f panics.
func (p *Pool) CtxGo(ctx context.Context, f func()) {
	select {
	case p.tasks <- task{ctx: ctx, f: f}:
	default:
		// queue full: fall back to a bare goroutine rather than block the caller.
		go p.runTask(ctx, f)
		return
	}
	if len(p.tasks) == 0 {
		return
	}
	// all workers busy, spin up another
	go p.createWorker()
}

// SetPanicHandler sets a func for handling panics from tasks run by p.
//
// The handler receives the ctx passed to CtxGo (or context.Background
// for Go) and the value returned by recover(). Without a handler, p
// logs the panic and stack trace through its Logger.
func (p *Pool) SetPanicHandler(f func(ctx context.Context, r interface{})) {
	p.panicHandler = f
}

func (p *Pool) runTask(ctx context.Context, f func()) {
	defer func(p *Pool, ctx context.Context) {
		if r := recover(); r != nil {
			if p.panicHandler != nil {
				p.panicHandler(ctx, r)
			} else {
				p.logger.Printf("workerpool: panic in pool %s: %v: %s", p.name, r, debug.Stack())
			}
		}
	}(p, ctx)
	f()
}

// CurrentWorkers reports the number of live workers.
func (p *Pool) CurrentWorkers() int {
	return int(atomic.LoadInt32(&p.workers))
}

func (p *Pool) runWorker() {
	id := atomic.AddInt32(&p.workers, 1)
	defer atomic.AddInt32(&p.workers, -1)

	if id > p.maxIdle {
		// drain what's queued and exit without waiting for more
		for {
			select {
			case t := <-p.tasks:
				p.runTask(t.ctx, t.f)
			default:
				return
			}
		}
	}

	createdAt := time.Now().UnixMilli()
	for t := range p.tasks {
		p.runTask(t.ctx, t.f)

		now := atomic.LoadInt64(&p.unixMilli)
		if now == 0 {
			now = time.Now().UnixMilli()
			if atomic.CompareAndSwapInt64(&p.unixMilli, 0, now) {
				go p.runTicker()
			}
		}
		if now-createdAt > p.maxage {
			return
		}
	}
}

var noopTask = task{f: func() {}}

func (p *Pool) runTicker() {
	defer atomic.StoreInt64(&p.unixMilli, 0)

	d := time.Duration(p.maxage) * time.Millisecond / 100
	if d < time.Millisecond {
		d = time.Millisecond
	}

	t := time.NewTicker(d)
	defer t.Stop()

	for now := range t.C {
		if p.CurrentWorkers() == 0 {
			return
		}
		atomic.StoreInt64(&p.unixMilli, now.UnixMilli())
		p.tasks <- noopTask
	}
}
