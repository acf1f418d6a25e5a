/*

Hook administration and the executor surface hooks call back through.
Registration makes a hook known; it runs nothing until the owner enables it
globally or a creator enables it on their own pool. The two enablement
tables are merged at dispatch time, owner entries first.

*/

package pump

import (
	"fmt"
	"time"

	"github.com/radixpump/pumpengine/internal/hooks"
	"github.com/radixpump/pumpengine/internal/types"
)

// RegisterHook adds a hook component to the registry for the given
// operations. The hook stays dormant until enabled.
func (pm *Pump) RegisterHook(h hooks.Hook, operations []types.Operation) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.registry.Register(h, operations)
}

// UnregisterHook removes a hook component entirely. Stale enablement entries
// are cleaned up here; any left behind by races are skipped at dispatch.
func (pm *Pump) UnregisterHook(name string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if err := pm.registry.Unregister(name); err != nil {
		return err
	}
	pm.globalHooks.RemoveAll(name)
	for _, table := range pm.poolHooks {
		table.RemoveAll(name)
	}
	return nil
}

// UnregisterHookOperations removes a hook from specific operations only.
func (pm *Pump) UnregisterHookOperations(name string, operations []types.Operation) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if err := pm.registry.UnregisterOperations(name, operations); err != nil {
		return err
	}
	pm.globalHooks.Remove(name, operations)
	for _, table := range pm.poolHooks {
		table.Remove(name, operations)
	}
	return nil
}

// OwnerEnableHook enables a registered hook for operations on every pool.
func (pm *Pump) OwnerEnableHook(name string, operations []types.Operation) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	round, err := pm.registry.Round(name)
	if err != nil {
		return err
	}
	pm.globalHooks.Add(round, name, operations)
	pm.log.Info().Str("hook", name).Int("round", round).Msg("Hook enabled globally")
	return nil
}

// OwnerDisableHook disables a hook globally. Disabling a hook that was never
// enabled is a no-op.
func (pm *Pump) OwnerDisableHook(name string, operations []types.Operation) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.globalHooks.Remove(name, operations)
}

// CreatorEnableHook enables a registered hook for operations on the
// creator's own pool.
func (pm *Pump) CreatorEnableHook(creator types.CreatorData, name string, operations []types.Operation) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, err := pm.creatorPool(creator); err != nil {
		return err
	}
	round, err := pm.registry.Round(name)
	if err != nil {
		return err
	}
	table, ok := pm.poolHooks[creator.Asset]
	if !ok {
		table = hooks.NewHooksPerOperation()
		pm.poolHooks[creator.Asset] = table
	}
	table.Add(round, name, operations)
	return nil
}

// CreatorDisableHook disables a hook on the creator's pool. A hook the owner
// enabled globally keeps running; only the pool-level entry is removed.
func (pm *Pump) CreatorDisableHook(creator types.CreatorData, name string, operations []types.Operation) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, err := pm.creatorPool(creator); err != nil {
		return err
	}
	if table, ok := pm.poolHooks[creator.Asset]; ok {
		table.Remove(name, operations)
	}
	return nil
}

// Timer runs the hooks enabled for the timer operation against one pool.
// The badge comes from the external scheduler; the orchestrator only checks
// it is present.
func (pm *Pump) Timer(badge types.TimerBadge, asset string) ([]types.Bucket, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if badge.MintedAt.IsZero() || badge.MintedAt.After(time.Now().UTC()) {
		return nil, fmt.Errorf("timer badge %s is not valid", badge.ID)
	}
	p, err := pm.poolFor(asset)
	if err != nil {
		return nil, err
	}
	price := p.LastPrice()
	arg := types.NewHookArgument(asset, types.OpTimer, p.Mode(), nil, types.DecPtr(price))
	return pm.dispatch(arg)
}

// HookBuy lets a round 0 or 1 hook buy with its own funds. The badge
// requirement is carried by the parameter type; hooks holding the read-only
// flavor cannot produce one. Hook trades do not re-trigger dispatch, the
// returned argument feeds the dispatcher's own recursion pass.
func (pm *Pump) HookBuy(badge *hooks.AuthBadge, asset string, payment types.Bucket) (types.Bucket, types.HookArgument, error) {
	if badge == nil {
		return types.Bucket{}, types.HookArgument{}, fmt.Errorf("hook buy on %s without a badge", asset)
	}
	p, err := pm.poolFor(asset)
	if err != nil {
		return types.Bucket{}, types.HookArgument{}, err
	}
	out, arg, evt, err := p.Buy(payment)
	if err != nil {
		return types.Bucket{}, types.HookArgument{}, err
	}
	pm.sink.Emit(evt)
	return out, arg, nil
}

// HookSell is the sell counterpart of HookBuy.
func (pm *Pump) HookSell(badge *hooks.AuthBadge, asset string, payment types.Bucket) (types.Bucket, types.HookArgument, error) {
	if badge == nil {
		return types.Bucket{}, types.HookArgument{}, fmt.Errorf("hook sell on %s without a badge", asset)
	}
	p, err := pm.poolFor(asset)
	if err != nil {
		return types.Bucket{}, types.HookArgument{}, err
	}
	out, arg, evt, err := p.Sell(payment)
	if err != nil {
		return types.Bucket{}, types.HookArgument{}, err
	}
	pm.sink.Emit(evt)
	return out, arg, nil
}

// PoolSnapshot reads the pricing state of a pool for a hook.
func (pm *Pump) PoolSnapshot(asset string) (hooks.PoolSnapshot, error) {
	p, err := pm.poolFor(asset)
	if err != nil {
		return hooks.PoolSnapshot{}, err
	}
	base, assetBalance := p.Reserves()
	return hooks.PoolSnapshot{
		BaseBalance:  base,
		AssetBalance: assetBalance,
		LastPrice:    p.LastPrice(),
		BuyFeePct:    p.BuyFeePct(),
	}, nil
}
