package tools_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightframe/investigator/internal/toolerr"
	"github.com/brightframe/investigator/internal/tools"
)

func TestExecute_UnknownTool(t *testing.T) {
	ex := tools.NewExecutor(tools.NewRegistry())
	_, err := ex.Execute(context.Background(), "does_not_exist", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, toolerr.ErrUnknownTool))
}

func TestExecute_CollaboratorError(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(tools.Func{
		Ident: "boom",
		Fn: func(context.Context, tools.Args) (tools.Result, error) {
			return nil, errors.New("collaborator down")
		},
	})
	ex := tools.NewExecutor(reg)
	_, err := ex.Execute(context.Background(), "boom", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, toolerr.ErrToolExecution))
	assert.Contains(t, err.Error(), "collaborator down")
}

func TestExecute_Success(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(tools.Func{
		Ident: "echo",
		Fn: func(_ context.Context, args tools.Args) (tools.Result, error) {
			return tools.Result{"value": args["value"]}, nil
		},
	})
	ex := tools.NewExecutor(reg)
	res, err := ex.Execute(context.Background(), "echo", tools.Args{"value": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", res["value"])
}

func TestInstanceCache_ReturnsIdenticalInstance(t *testing.T) {
	c := tools.NewInstanceCache()
	calls := 0
	mk := func() any {
		calls++
		return calls
	}
	a := c.GetOrCreate("k", mk)
	b := c.GetOrCreate("k", mk)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, calls)
}

func TestExecute_CapsConcurrentInflightCalls(t *testing.T) {
	reg := tools.NewRegistry()
	var inflight int32
	var maxSeen int32
	reg.Register(tools.Func{
		Ident: "slow",
		Fn: func(context.Context, tools.Args) (tools.Result, error) {
			n := atomic.AddInt32(&inflight, 1)
			for {
				cur := atomic.LoadInt32(&maxSeen)
				if n <= cur || atomic.CompareAndSwapInt32(&maxSeen, cur, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&inflight, -1)
			return tools.Result{}, nil
		},
	})
	ex := tools.NewExecutorWithConcurrency(reg, 2)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ex.Execute(context.Background(), "slow", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxSeen)), 2)
}

func TestSucceeded(t *testing.T) {
	assert.True(t, tools.Succeeded(tools.Result{}))
	assert.True(t, tools.Succeeded(tools.Result{tools.StatusKey: "ok"}))
	assert.False(t, tools.Succeeded(tools.Result{tools.StatusKey: "error"}))
}
