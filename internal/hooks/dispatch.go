/*

Dispatch engine. Given the outcome of a pool operation it resolves the merged
hook lists round by round, invokes each hook under badge custody and drives
the bounded recursive pass for operations the round-0 hooks triggered
themselves.

*/

package hooks

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/radixpump/pumpengine/internal/logger"
	"github.com/radixpump/pumpengine/internal/types"
)

// PoolTableResolver returns the per-pool enablement table for an asset, or
// nil when the pool has none.
type PoolTableResolver func(asset string) *HooksPerOperation

// Dispatcher drives hook execution for operation outcomes.
type Dispatcher struct {
	log      zerolog.Logger
	registry *Registry
	sink     types.EventSink
}

// NewDispatcher creates a dispatcher over a registry and an event sink.
func NewDispatcher(registry *Registry, sink types.EventSink) *Dispatcher {
	return &Dispatcher{
		log:      logger.GetForComponent("hook_dispatch"),
		registry: registry,
		sink:     sink,
	}
}

// Dispatch runs all three execution rounds for one operation outcome and
// returns the payout buckets collected from the hooks. An error from any
// hook aborts the whole dispatch; a missing or wrong authorization badge
// panics, since that is a programming-contract violation rather than a
// recoverable condition.
func (d *Dispatcher) Dispatch(exec Executor, global *HooksPerOperation, poolTables PoolTableResolver, arg types.HookArgument) ([]types.Bucket, error) {
	var buckets []types.Bucket
	var derived []types.HookArgument

	// Round 0: the only round whose hooks may trigger further operations.
	round0, err := d.runRound(exec, global, poolTables, RoundEarly, arg, false)
	if err != nil {
		return nil, err
	}
	buckets = append(buckets, round0.buckets...)
	derived = append(derived, round0.derived...)

	// Round 1: original argument first, then the derived operations against
	// the recursion-permitting subset. Derived output of this pass is
	// dropped by construction, bounding recursion depth.
	round1, err := d.runRound(exec, global, poolTables, RoundDeferred, arg, false)
	if err != nil {
		return nil, err
	}
	buckets = append(buckets, round1.buckets...)
	for _, darg := range derived {
		res, err := d.runRound(exec, global, poolTables, RoundDeferred, darg, true)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, res.buckets...)
	}

	// Round 2 runs under the read-only badge flavor.
	round2, err := d.runRound(exec, global, poolTables, RoundReadOnly, arg, false)
	if err != nil {
		return nil, err
	}
	buckets = append(buckets, round2.buckets...)
	for _, darg := range derived {
		res, err := d.runRound(exec, global, poolTables, RoundReadOnly, darg, true)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, res.buckets...)
	}

	return buckets, nil
}

type roundResult struct {
	buckets []types.Bucket
	derived []types.HookArgument
}

// runRound invokes every enabled, still-registered hook of one round for an
// argument. recursiveOnly restricts the list to recursion-permitting hooks
// and drops whatever they derive.
func (d *Dispatcher) runRound(exec Executor, global *HooksPerOperation, poolTables PoolTableResolver, round int, arg types.HookArgument, recursiveOnly bool) (roundResult, error) {
	var result roundResult

	var poolTable *HooksPerOperation
	if poolTables != nil {
		poolTable = poolTables(arg.Asset)
	}

	for _, name := range Merged(global, poolTable, round, arg.Operation) {
		entry, ok := d.registry.lookup(name, arg.Operation)
		if !ok || entry.round != round {
			// Unregistered (or re-registered elsewhere) since enablement;
			// skipped silently.
			d.log.Debug().Str("hook", name).Str("operation", string(arg.Operation)).Msg("Skipping stale hook enablement")
			continue
		}
		if recursiveOnly && !entry.allowRecursion {
			continue
		}

		var auth Authorization
		if round == RoundReadOnly {
			auth = newObserverBadge()
		} else {
			auth = newAuthBadge()
		}

		res, err := entry.hook.Execute(arg, auth, exec)
		if err != nil {
			return roundResult{}, fmt.Errorf("hook %s failed on %s: %w", name, arg.Operation, err)
		}
		assertBadgeReturned(name, auth, res.Auth)

		if res.Bucket != nil && !res.Bucket.IsZero() {
			result.buckets = append(result.buckets, *res.Bucket)
		}
		for _, evt := range res.Events {
			d.sink.Emit(evt)
		}
		if round == RoundEarly && !recursiveOnly {
			result.derived = append(result.derived, res.Derived...)
		}
	}

	return result, nil
}

// assertBadgeReturned enforces badge custody: the hook must hand back the
// exact badge it was invoked with.
func assertBadgeReturned(name string, minted, returned Authorization) {
	if returned == nil || returned.badgeID() != minted.badgeID() {
		panic(fmt.Sprintf("hook %s did not return the authorization", name))
	}
}
