// Package tools implements the tool registry and executor (spec §4.2,
// component C2). A tool is identified by a string name and exposes a single
// asynchronous Execute operation from an unstructured string-keyed argument
// map to a string-keyed result map.
package tools

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/brightframe/investigator/internal/toolerr"
)

// defaultMaxInflight bounds how many tool calls an Executor runs at once
// across all investigations sharing it (spec §5 "Shared resource policy").
const defaultMaxInflight = 8

// Args is the unstructured argument map passed to a tool.
type Args = map[string]any

// Result is the unstructured result map returned by a tool. A distinguished
// key "_status" may be set to "ok" or "error"; when absent, success is
// inferred from the absence of an error return.
type Result = map[string]any

// StatusKey is the distinguished result key carrying "ok" or "error".
const StatusKey = "_status"

// Tool is a named asynchronous operation invoked by the agent loop.
type Tool interface {
	Name() string
	Execute(ctx context.Context, args Args) (Result, error)
}

// Func adapts a plain function to the Tool interface.
type Func struct {
	Ident string
	Fn    func(ctx context.Context, args Args) (Result, error)
}

// Name implements Tool.
func (f Func) Name() string { return f.Ident }

// Execute implements Tool.
func (f Func) Execute(ctx context.Context, args Args) (Result, error) { return f.Fn(ctx, args) }

// Registry looks up tools by name (spec §4.2).
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// Register adds or replaces a tool under its own name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Lookup resolves a tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	return out
}

// InstanceCache is the executor's connection pool: expensive collaborators
// (graph engines, HTTP clients) are lazily instantiated once per cache key
// and reused. The contract: given the same key, GetOrCreate returns the
// identical instance on subsequent calls. Safe for concurrent use across
// investigations (spec §5 "Shared resource policy").
type InstanceCache struct {
	mu        sync.Mutex
	instances map[string]any
}

// NewInstanceCache constructs an empty InstanceCache.
func NewInstanceCache() *InstanceCache {
	return &InstanceCache{instances: map[string]any{}}
}

// GetOrCreate returns the cached instance for key, constructing it with new
// if absent. The lock is held only around lookup/create; the returned
// instance is expected to be independently concurrency-safe.
func (c *InstanceCache) GetOrCreate(key string, new func() any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if inst, ok := c.instances[key]; ok {
		return inst
	}
	inst := new()
	c.instances[key] = inst
	return inst
}

// Executor runs a tool by name and translates lookup/collaborator failures
// into toolerr-wrapped errors (spec §4.2, §7). It sets no timeout of its own;
// a call is bounded by the caller's ctx (the agent loop applies ToolTimeout).
// A semaphore caps how many calls run concurrently across every
// investigation sharing this Executor, so a burst of parallel
// investigations can't starve the underlying collaborators (HTTP clients,
// rate-limited APIs) backing the tools.
type Executor struct {
	registry *Registry
	cache    *InstanceCache
	sem      *semaphore.Weighted
}

// NewExecutor constructs an Executor over the given registry with the
// default in-flight concurrency cap.
func NewExecutor(registry *Registry) *Executor {
	return NewExecutorWithConcurrency(registry, defaultMaxInflight)
}

// NewExecutorWithConcurrency constructs an Executor whose concurrent
// in-flight tool calls are capped at maxInflight. A non-positive value
// disables the cap.
func NewExecutorWithConcurrency(registry *Registry, maxInflight int) *Executor {
	e := &Executor{registry: registry, cache: NewInstanceCache()}
	if maxInflight > 0 {
		e.sem = semaphore.NewWeighted(int64(maxInflight))
	}
	return e
}

// Cache exposes the executor's instance cache so tool constructors can share
// expensive collaborators across calls.
func (e *Executor) Cache() *InstanceCache { return e.cache }

// Execute looks up tool and runs it. Unknown tool names fail with
// ErrUnknownTool; collaborator panics or errors fail with ErrToolExecution,
// carrying the original message (spec §4.2). If the executor's concurrency
// cap is already saturated, Execute blocks until a slot frees or ctx is
// cancelled.
func (e *Executor) Execute(ctx context.Context, name string, args Args) (res Result, err error) {
	t, ok := e.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", toolerr.ErrUnknownTool, name)
	}

	if e.sem != nil {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("%w: %v", toolerr.ErrTimeout, err)
		}
		defer e.sem.Release(1)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", toolerr.ErrToolExecution, r)
		}
	}()

	res, err = t.Execute(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", toolerr.ErrToolExecution, err)
	}
	if res == nil {
		res = Result{}
	}
	return res, nil
}

// Succeeded reports whether a result indicates success, inferring true when
// the distinguished status key is absent (spec §4.2).
func Succeeded(res Result) bool {
	status, ok := res[StatusKey]
	if !ok {
		return true
	}
	s, _ := status.(string)
	return s != "error"
}
