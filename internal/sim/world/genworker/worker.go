// Package genworker runs chunk generation on a single long-lived goroutine.
//
// The owning (main) side enqueues requests and drains results; the worker
// parks on a condition variable while idle. Requests and results live behind
// separate mutexes so enqueueing never waits on a drain. A chunk under
// generation belongs to the worker alone until it is placed on the result
// queue, after which it belongs to whoever drains it.
package genworker

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"backrooms.dev/internal/sim/world/terrain/chunk"
)

// Request is a unit of work. Corruption and Seed are captured at enqueue time.
type Request struct {
	Key chunk.Key
	// WorldSeed is the run seed; Seed is the derived per-chunk seed.
	WorldSeed  int64
	Seed       int64
	Corruption float64
	// Epoch lets the owner discard results that predate a reset.
	Epoch uint64
}

type Result struct {
	Request
	Chunk   *chunk.Chunk
	Elapsed time.Duration
	// Recovered is set when generation failed and a placeholder was substituted.
	Recovered bool
}

// Generator produces a populated chunk for a request. It runs on the worker goroutine.
type Generator interface {
	Generate(req Request) (*chunk.Chunk, error)
}

type GeneratorFunc func(req Request) (*chunk.Chunk, error)

func (f GeneratorFunc) Generate(req Request) (*chunk.Chunk, error) { return f(req) }

type Worker struct {
	gen    Generator
	logger *log.Logger

	reqMu    sync.Mutex
	reqCond  *sync.Cond
	requests []Request
	current  *chunk.Key
	stopping bool
	started  bool

	resMu   sync.Mutex
	results []Result

	// queued + generating + undrained results
	pending atomic.Int64

	done     chan struct{}
	stopOnce sync.Once
}

func New(gen Generator, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	w := &Worker{
		gen:    gen,
		logger: logger,
		done:   make(chan struct{}),
	}
	w.reqCond = sync.NewCond(&w.reqMu)
	return w
}

// Start launches the worker goroutine. Calling it twice is a no-op.
func (w *Worker) Start() {
	w.reqMu.Lock()
	defer w.reqMu.Unlock()
	if w.started || w.stopping {
		return
	}
	w.started = true
	go w.loop()
}

// Enqueue appends a request without blocking on generation. It returns false
// once the worker is stopping.
func (w *Worker) Enqueue(req Request) bool {
	w.reqMu.Lock()
	if w.stopping {
		w.reqMu.Unlock()
		return false
	}
	w.requests = append(w.requests, req)
	w.pending.Add(1)
	w.reqMu.Unlock()
	w.reqCond.Signal()
	return true
}

// DrainCompleted hands every ready result to fn on the caller's goroutine and
// returns how many were delivered.
func (w *Worker) DrainCompleted(fn func(Result)) int {
	w.resMu.Lock()
	ready := w.results
	w.results = nil
	w.resMu.Unlock()

	for _, r := range ready {
		w.pending.Add(-1)
		if fn != nil {
			fn(r)
		}
	}
	return len(ready)
}

// PendingCount is the number of requests not yet drained, in any stage.
func (w *Worker) PendingCount() int { return int(w.pending.Load()) }

// Generating reports the key currently being generated, if any.
func (w *Worker) Generating() (chunk.Key, bool) {
	w.reqMu.Lock()
	defer w.reqMu.Unlock()
	if w.current == nil {
		return chunk.Key{}, false
	}
	return *w.current, true
}

// Stop asks the worker to exit after its current request and waits for it.
// Requests still queued are dropped. Safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.reqMu.Lock()
		w.stopping = true
		started := w.started
		dropped := len(w.requests)
		w.requests = nil
		w.reqMu.Unlock()
		w.pending.Add(-int64(dropped))
		w.reqCond.Broadcast()
		if started {
			<-w.done
		}
		w.logger.Printf("genworker: stopped dropped=%d", dropped)
	})
}

func (w *Worker) loop() {
	defer close(w.done)
	for {
		w.reqMu.Lock()
		for len(w.requests) == 0 && !w.stopping {
			w.reqCond.Wait()
		}
		if w.stopping {
			w.reqMu.Unlock()
			return
		}
		req := w.requests[0]
		w.requests[0] = Request{}
		w.requests = w.requests[1:]
		key := req.Key
		w.current = &key
		w.reqMu.Unlock()

		res := w.run(req)

		w.resMu.Lock()
		w.results = append(w.results, res)
		w.resMu.Unlock()

		w.reqMu.Lock()
		w.current = nil
		w.reqMu.Unlock()
	}
}

func (w *Worker) run(req Request) (res Result) {
	start := time.Now()
	res.Request = req
	defer func() {
		if p := recover(); p != nil {
			w.logger.Printf("genworker: generate %v panicked: %v", req.Key, p)
			res.Chunk = chunk.NewPlaceholder(req.Key, req.Corruption)
			res.Recovered = true
		}
		res.Elapsed = time.Since(start)
	}()

	ch, err := w.gen.Generate(req)
	if err == nil && ch == nil {
		err = fmt.Errorf("generator returned nil chunk")
	}
	if err != nil {
		w.logger.Printf("genworker: generate %v: %v (placeholder)", req.Key, err)
		ch = chunk.NewPlaceholder(req.Key, req.Corruption)
		res.Recovered = true
	}
	res.Chunk = ch
	return res
}
