package hooks

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radixpump/pumpengine/internal/types"
)

// recordingSink collects emitted events.
type recordingSink struct {
	events []types.PoolEvent
}

func (s *recordingSink) Emit(evt types.PoolEvent) {
	s.events = append(s.events, evt)
}

// noopExec satisfies Executor for dispatch tests that never trade.
type noopExec struct{}

func (noopExec) HookBuy(badge *AuthBadge, asset string, payment types.Bucket) (types.Bucket, types.HookArgument, error) {
	return types.ZeroBucket(asset), types.NewHookArgument(asset, types.OpPostBuy, types.Normal, nil, nil), nil
}

func (noopExec) HookSell(badge *AuthBadge, asset string, payment types.Bucket) (types.Bucket, types.HookArgument, error) {
	return types.ZeroBucket(asset), types.NewHookArgument(asset, types.OpPostSell, types.Normal, nil, nil), nil
}

func (noopExec) PoolSnapshot(asset string) (PoolSnapshot, error) {
	one := sdkmath.LegacyOneDec()
	return PoolSnapshot{BaseBalance: one, AssetBalance: one, LastPrice: one, BuyFeePct: sdkmath.LegacyZeroDec()}, nil
}

func buyArg(asset string) types.HookArgument {
	return types.NewHookArgument(asset, types.OpPostBuy, types.Normal, nil, nil)
}

func TestDispatchRunsRoundsInOrderWithBadgeFlavors(t *testing.T) {
	registry := NewRegistry()
	sink := &recordingSink{}
	d := NewDispatcher(registry, sink)
	global := NewHooksPerOperation()

	var order []string
	register := func(name string, round int) {
		h := &stubHook{name: name, round: round}
		h.execute = func(arg types.HookArgument, auth Authorization, exec Executor) (HookResult, error) {
			order = append(order, name)
			if round == RoundReadOnly {
				_, observer := auth.(*ObserverBadge)
				assert.True(t, observer, "round 2 must carry the read-only badge")
			} else {
				_, mutating := auth.(*AuthBadge)
				assert.True(t, mutating, "rounds 0 and 1 must carry the mutating badge")
			}
			return HookResult{Auth: auth}, nil
		}
		require.NoError(t, registry.Register(h, []types.Operation{types.OpPostBuy}))
		global.Add(round, name, []types.Operation{types.OpPostBuy})
	}
	register("late", RoundReadOnly)
	register("mid", RoundDeferred)
	register("early", RoundEarly)

	_, err := d.Dispatch(noopExec{}, global, nil, buyArg("coin"))
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "mid", "late"}, order)
}

func TestDispatchPanicsWhenBadgeNotReturned(t *testing.T) {
	registry := NewRegistry()
	d := NewDispatcher(registry, &recordingSink{})
	global := NewHooksPerOperation()

	thief := &stubHook{name: "thief", round: RoundEarly}
	thief.execute = func(arg types.HookArgument, auth Authorization, exec Executor) (HookResult, error) {
		return HookResult{Auth: newAuthBadge()}, nil
	}
	require.NoError(t, registry.Register(thief, []types.Operation{types.OpPostBuy}))
	global.Add(RoundEarly, "thief", []types.Operation{types.OpPostBuy})

	require.Panics(t, func() {
		_, _ = d.Dispatch(noopExec{}, global, nil, buyArg("coin"))
	})
}

func TestDispatchSkipsStaleEnablement(t *testing.T) {
	registry := NewRegistry()
	d := NewDispatcher(registry, &recordingSink{})
	global := NewHooksPerOperation()

	// Enabled but never registered: silently skipped.
	global.Add(RoundEarly, "ghost", []types.Operation{types.OpPostBuy})

	buckets, err := d.Dispatch(noopExec{}, global, nil, buyArg("coin"))
	require.NoError(t, err)
	assert.Empty(t, buckets)
}

func TestDispatchHookErrorAborts(t *testing.T) {
	registry := NewRegistry()
	d := NewDispatcher(registry, &recordingSink{})
	global := NewHooksPerOperation()

	boom := errors.New("boom")
	failing := &stubHook{name: "failing", round: RoundEarly}
	failing.execute = func(arg types.HookArgument, auth Authorization, exec Executor) (HookResult, error) {
		return HookResult{}, boom
	}
	require.NoError(t, registry.Register(failing, []types.Operation{types.OpPostBuy}))
	global.Add(RoundEarly, "failing", []types.Operation{types.OpPostBuy})

	_, err := d.Dispatch(noopExec{}, global, nil, buyArg("coin"))
	require.ErrorIs(t, err, boom)
}

func TestDispatchBoundedRecursion(t *testing.T) {
	registry := NewRegistry()
	d := NewDispatcher(registry, &recordingSink{})
	global := NewHooksPerOperation()

	// A round 0 hook on sells that reports a derived buy on another pool.
	trigger := &stubHook{name: "trigger", round: RoundEarly}
	trigger.execute = func(arg types.HookArgument, auth Authorization, exec Executor) (HookResult, error) {
		return HookResult{Auth: auth, Derived: []types.HookArgument{buyArg("other")}}, nil
	}
	require.NoError(t, registry.Register(trigger, []types.Operation{types.OpPostSell}))
	global.Add(RoundEarly, "trigger", []types.Operation{types.OpPostSell})

	// A recursion-permitting round 1 hook on buys. It derives further work
	// itself, which the recursive pass must drop.
	var followerCalls int
	follower := &stubHook{name: "follower", round: RoundDeferred, allowRecursion: true}
	follower.execute = func(arg types.HookArgument, auth Authorization, exec Executor) (HookResult, error) {
		followerCalls++
		return HookResult{Auth: auth, Derived: []types.HookArgument{buyArg("third")}}, nil
	}
	require.NoError(t, registry.Register(follower, []types.Operation{types.OpPostBuy}))
	global.Add(RoundDeferred, "follower", []types.Operation{types.OpPostBuy})

	// A round 1 hook on buys that does not permit recursion.
	var bystanderCalls int
	bystander := &stubHook{name: "bystander", round: RoundDeferred}
	bystander.execute = func(arg types.HookArgument, auth Authorization, exec Executor) (HookResult, error) {
		bystanderCalls++
		return HookResult{Auth: auth}, nil
	}
	require.NoError(t, registry.Register(bystander, []types.Operation{types.OpPostBuy}))
	global.Add(RoundDeferred, "bystander", []types.Operation{types.OpPostBuy})

	arg := types.NewHookArgument("coin", types.OpPostSell, types.Normal, nil, nil)
	_, err := d.Dispatch(noopExec{}, global, nil, arg)
	require.NoError(t, err)

	// The follower runs exactly once, for the derived buy; its own derived
	// work goes nowhere. The bystander is excluded from the recursive pass.
	assert.Equal(t, 1, followerCalls)
	assert.Equal(t, 0, bystanderCalls)
}

func TestDispatchForwardsBucketsAndEvents(t *testing.T) {
	registry := NewRegistry()
	sink := &recordingSink{}
	d := NewDispatcher(registry, sink)
	global := NewHooksPerOperation()

	payer := &stubHook{name: "payer", round: RoundEarly}
	payer.execute = func(arg types.HookArgument, auth Authorization, exec Executor) (HookResult, error) {
		bucket := types.NewBucket("resource_base", sdkmath.LegacyNewDec(5))
		evt := types.NewPoolEvent(arg.Asset, types.EventHookDiagnostic)
		evt.Message = "paid out"
		return HookResult{Auth: auth, Bucket: &bucket, Events: []types.PoolEvent{evt}}, nil
	}
	require.NoError(t, registry.Register(payer, []types.Operation{types.OpPostBuy}))
	global.Add(RoundEarly, "payer", []types.Operation{types.OpPostBuy})

	buckets, err := d.Dispatch(noopExec{}, global, nil, buyArg("coin"))
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.True(t, buckets[0].Amount.Equal(sdkmath.LegacyNewDec(5)))
	require.Len(t, sink.events, 1)
	assert.Equal(t, "paid out", sink.events[0].Message)
}
