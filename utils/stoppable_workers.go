// Package utils contains small helpers shared by the rover's loops.
package utils

import (
	"context"
	"sync"

	goutils "go.viam.com/utils"
)

// StoppableWorkers is a group of goroutines sharing one cancellable context.
type StoppableWorkers interface {
	AddWorkers(...func(context.Context))
	Stop()
	Context() context.Context
}

type workerGroup struct {
	ctx    context.Context
	cancel context.CancelFunc

	// mu orders AddWorkers against Stop so no worker starts after Stop begins waiting.
	mu sync.Mutex
	wg sync.WaitGroup
}

// NewStoppableWorkers starts each func in its own goroutine.
func NewStoppableWorkers(funcs ...func(context.Context)) StoppableWorkers {
	return NewStoppableWorkersWithContext(context.Background(), funcs...)
}

// NewStoppableWorkersWithContext is NewStoppableWorkers with workers that also stop when parent
// is done.
func NewStoppableWorkersWithContext(parent context.Context, funcs ...func(context.Context)) StoppableWorkers {
	ctx, cancel := context.WithCancel(parent)
	group := &workerGroup{ctx: ctx, cancel: cancel}
	group.AddWorkers(funcs...)
	return group
}

// AddWorkers starts more goroutines. It does nothing once the group is stopped. A panicking worker
// is logged and counted as finished.
func (g *workerGroup) AddWorkers(funcs ...func(context.Context)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ctx.Err() != nil {
		return
	}
	g.wg.Add(len(funcs))
	for _, f := range funcs {
		f := f
		goutils.PanicCapturingGo(func() {
			defer g.wg.Done()
			f(g.ctx)
		})
	}
}

// Stop cancels the workers' context and waits for all of them to return. It is safe to call more
// than once.
func (g *workerGroup) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancel()
	g.wg.Wait()
}

// Context is the context handed to every worker.
func (g *workerGroup) Context() context.Context {
	return g.ctx
}
