package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radixpump/pumpengine/internal/types"
)

// stubHook is a configurable hook for engine tests.
type stubHook struct {
	name           string
	round          int
	allowRecursion bool
	execute        func(arg types.HookArgument, auth Authorization, exec Executor) (HookResult, error)
}

func (s *stubHook) Name() string { return s.name }

func (s *stubHook) Info() HookInfo {
	return HookInfo{Round: s.round, AllowRecursion: s.allowRecursion}
}

func (s *stubHook) Execute(arg types.HookArgument, auth Authorization, exec Executor) (HookResult, error) {
	if s.execute != nil {
		return s.execute(arg, auth, exec)
	}
	return HookResult{Auth: auth}, nil
}

func TestRegistryRegisterValidation(t *testing.T) {
	r := NewRegistry()

	err := r.Register(&stubHook{name: "bad", round: 3}, []types.Operation{types.OpPostBuy})
	require.ErrorIs(t, err, ErrBadRound)

	err = r.Register(&stubHook{name: "noops", round: 0}, nil)
	require.Error(t, err)

	require.NoError(t, r.Register(&stubHook{name: "ok", round: 1}, []types.Operation{types.OpPostBuy}))
	round, err := r.Round("ok")
	require.NoError(t, err)
	assert.Equal(t, 1, round)
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubHook{name: "h", round: 0}, []types.Operation{types.OpPostBuy, types.OpPostSell}))

	require.NoError(t, r.UnregisterOperations("h", []types.Operation{types.OpPostBuy}))
	_, ok := r.lookup("h", types.OpPostBuy)
	assert.False(t, ok)
	_, ok = r.lookup("h", types.OpPostSell)
	assert.True(t, ok)

	// Removing the last operation removes the hook entirely.
	require.NoError(t, r.UnregisterOperations("h", []types.Operation{types.OpPostSell}))
	_, err := r.Round("h")
	require.ErrorIs(t, err, ErrHookNotRegistered)

	require.ErrorIs(t, r.Unregister("h"), ErrHookNotRegistered)
}

func TestMergedGlobalFirst(t *testing.T) {
	global := NewHooksPerOperation()
	pool := NewHooksPerOperation()

	global.Add(0, "a", []types.Operation{types.OpPostBuy})
	global.Add(0, "b", []types.Operation{types.OpPostBuy})
	pool.Add(0, "b", []types.Operation{types.OpPostBuy})
	pool.Add(0, "c", []types.Operation{types.OpPostBuy})

	merged := Merged(global, pool, 0, types.OpPostBuy)
	assert.Equal(t, []string{"a", "b", "c"}, merged)

	// A pool-less dispatch merges the global list only.
	assert.Equal(t, []string{"a", "b"}, Merged(global, nil, 0, types.OpPostBuy))
}

func TestHooksPerOperationAddRemove(t *testing.T) {
	h := NewHooksPerOperation()
	ops := []types.Operation{types.OpPostBuy, types.OpPostSell}

	h.Add(1, "x", ops)
	h.Add(1, "x", ops) // duplicate suppressed
	assert.Equal(t, []string{"x"}, h.List(1, types.OpPostBuy))

	h.Remove("x", []types.Operation{types.OpPostBuy})
	assert.Empty(t, h.List(1, types.OpPostBuy))
	assert.Equal(t, []string{"x"}, h.List(1, types.OpPostSell))

	h.RemoveAll("x")
	assert.Empty(t, h.List(1, types.OpPostSell))
}
