/*

Limit buy hook. Users park base coins with a maximum price per coin; whenever
a pool operation lowers the spot price under a resting limit, the hook buys
on the owner's behalf with the parked funds. Bought coins accumulate on the
order until the owner withdraws.

*/

package limitbuy

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/radixpump/pumpengine/internal/hooks"
	"github.com/radixpump/pumpengine/internal/logger"
	"github.com/radixpump/pumpengine/internal/types"
)

// HookName is the registry key of the limit buy component.
const HookName = "limit_buy"

// Hook is the limit buy component. It runs in the early round so its own
// buys feed the deferred rounds as derived operations, and it opts out of
// recursion so those buys can never re-trigger it.
type Hook struct {
	log          zerolog.Logger
	books        map[string]*book
	nextOrderID  uint64
	maxMatching  int
	maxPerCoin   int
	baseResource string
}

// New creates a limit buy hook. baseResource names the coin orders are
// funded in; the caps bound matching work and per-coin book depth.
func New(baseResource string, maxMatching, maxPerCoin int) *Hook {
	return &Hook{
		log:          logger.GetForComponent("limit_buy_hook"),
		books:        make(map[string]*book),
		nextOrderID:  1,
		maxMatching:  maxMatching,
		maxPerCoin:   maxPerCoin,
		baseResource: baseResource,
	}
}

func (h *Hook) Name() string { return HookName }

func (h *Hook) Info() hooks.HookInfo {
	return hooks.HookInfo{Round: hooks.RoundEarly, AllowRecursion: false}
}

// PlaceOrder rests a limit buy for a coin, funded by the given base bucket.
// The order never matches immediately; the next price drop below maxPrice
// triggers it.
func (h *Hook) PlaceOrder(asset string, maxPrice sdkmath.LegacyDec, funds types.Bucket) (uint64, error) {
	if maxPrice.IsNil() || !maxPrice.IsPositive() {
		return 0, ErrBadLimitPrice
	}
	if funds.Resource != h.baseResource {
		return 0, fmt.Errorf("%w: orders are funded in %s, got %s", types.ErrResourceMismatch, h.baseResource, funds.Resource)
	}
	if funds.IsZero() {
		return 0, fmt.Errorf("order funds: %w", types.ErrInsufficientBucket)
	}

	b, ok := h.books[asset]
	if !ok {
		b = newBook()
		h.books[asset] = b
	}
	if b.indexed() >= h.maxPerCoin {
		return 0, fmt.Errorf("%w: %s has %d active orders", ErrBookFull, asset, b.indexed())
	}

	id := h.nextOrderID
	h.nextOrderID++
	b.insert(&Order{
		ID:        id,
		Asset:     asset,
		Price:     maxPrice,
		Remaining: funds.Amount,
		Filled:    sdkmath.LegacyZeroDec(),
	})

	h.log.Info().Uint64("order_id", id).Str("asset", asset).
		Str("max_price", maxPrice.String()).Str("funds", funds.Amount.String()).
		Msg("Limit buy order placed")
	return id, nil
}

// WithdrawOrder cancels an order and returns its unspent base funds together
// with the coins bought so far.
func (h *Hook) WithdrawOrder(asset string, id uint64) (types.Bucket, types.Bucket, error) {
	b, ok := h.books[asset]
	if !ok {
		return types.Bucket{}, types.Bucket{}, fmt.Errorf("%w: id %d on %s", ErrUnknownOrder, id, asset)
	}
	o, ok := b.remove(id)
	if !ok {
		return types.Bucket{}, types.Bucket{}, fmt.Errorf("%w: id %d on %s", ErrUnknownOrder, id, asset)
	}
	return types.NewBucket(h.baseResource, o.Remaining), types.NewBucket(asset, o.Filled), nil
}

// GetOrder returns a copy of a resting order.
func (h *Hook) GetOrder(asset string, id uint64) (Order, error) {
	b, ok := h.books[asset]
	if !ok {
		return Order{}, fmt.Errorf("%w: id %d on %s", ErrUnknownOrder, id, asset)
	}
	o, ok := b.get(id)
	if !ok {
		return Order{}, fmt.Errorf("%w: id %d on %s", ErrUnknownOrder, id, asset)
	}
	return *o, nil
}

// ActiveOrders returns copies of the matchable orders of a coin in priority
// order.
func (h *Hook) ActiveOrders(asset string) []Order {
	b, ok := h.books[asset]
	if !ok {
		return nil
	}
	out := make([]Order, 0, b.indexed())
	for _, id := range b.ranked(b.indexed()) {
		if o, ok := b.get(id); ok {
			out = append(out, *o)
		}
	}
	return out
}

// Execute reacts to an operation on a coin by matching resting orders against
// the new spot price. A coin without a book is a benign no-op.
func (h *Hook) Execute(arg types.HookArgument, auth hooks.Authorization, exec hooks.Executor) (hooks.HookResult, error) {
	result := hooks.HookResult{Auth: auth}

	b, ok := h.books[arg.Asset]
	if !ok || b.indexed() == 0 {
		return result, nil
	}

	badge, ok := auth.(*hooks.AuthBadge)
	if !ok {
		// Read-only invocation cannot place buys; report rather than fail.
		evt := types.NewPoolEvent(arg.Asset, types.EventHookDiagnostic)
		evt.Operation = arg.Operation
		evt.Message = "limit buy invoked without a mutating badge"
		result.Events = append(result.Events, evt)
		return result, nil
	}

	snap, err := exec.PoolSnapshot(arg.Asset)
	if err != nil {
		return hooks.HookResult{}, fmt.Errorf("reading pool %s: %w", arg.Asset, err)
	}

	// Walk best-first, allocating matchable volume cumulatively. maxSpend
	// bounds the total spend that keeps the post-trade price within each
	// order's limit, so an order's allocation is whatever room is left under
	// its own bound.
	type fill struct {
		order *Order
		spend sdkmath.LegacyDec
	}
	var (
		fills      []fill
		filled     []uint64
		partialID  *uint64
		totalSpend = sdkmath.LegacyZeroDec()
	)
	for _, id := range b.ranked(h.maxMatching) {
		o, ok := b.get(id)
		if !ok || !o.active() {
			continue
		}
		bound, ok := maxSpend(snap, o.Price)
		if !ok || bound.LTE(totalSpend) {
			// The best remaining limit is at or under the post-match spot;
			// every later order has a lower limit still.
			break
		}
		spend := bound.Sub(totalSpend)
		partial := spend.LT(o.Remaining)
		if !partial {
			spend = o.Remaining
		}
		fills = append(fills, fill{order: o, spend: spend})
		totalSpend = totalSpend.Add(spend)
		if partial {
			// Price priority: a partial fill ends matching.
			id := o.ID
			partialID = &id
			break
		}
		filled = append(filled, o.ID)
	}
	if len(fills) == 0 {
		return result, nil
	}

	// One aggregate buy for the whole matched volume, distributed back
	// pro rata by spend at the executed price.
	coins, buyArg, err := exec.HookBuy(badge, arg.Asset, types.NewBucket(h.baseResource, totalSpend))
	if err != nil {
		return hooks.HookResult{}, fmt.Errorf("limit buy on %s: %w", arg.Asset, err)
	}
	for _, f := range fills {
		share := coins.Amount.Mul(f.spend).QuoTruncate(totalSpend)
		f.order.Remaining = f.order.Remaining.Sub(f.spend)
		f.order.Filled = f.order.Filled.Add(share)
		if !f.order.active() {
			b.unindex(f.order.ID)
		}
		h.log.Info().Uint64("order_id", f.order.ID).Str("asset", arg.Asset).
			Str("spent", f.spend.String()).Str("bought", share.String()).
			Msg("Limit buy order matched")
	}
	result.Derived = append(result.Derived, buyArg)

	// The match report keeps the fully filled orders apart from the one
	// partial fill.
	evt := types.NewPoolEvent(arg.Asset, types.EventOrdersMatched)
	evt.Operation = arg.Operation
	evt.Ids = filled
	evt.PartialID = partialID
	result.Events = append(result.Events, evt)
	return result, nil
}

// maxSpend computes the largest base amount that can be bought with before
// the spot price climbs past limit. With balances B and A, fee factor
// g = 1 - fee/100 and k = B*A, spending s moves the spot to
// (B+s)*(B+g*s)/k, so the bound solves g*s^2 + B*(1+g)*s + B^2 - limit*k = 0.
func maxSpend(snap hooks.PoolSnapshot, limit sdkmath.LegacyDec) (sdkmath.LegacyDec, bool) {
	if !snap.BaseBalance.IsPositive() || !snap.AssetBalance.IsPositive() {
		return sdkmath.LegacyDec{}, false
	}
	spot := snap.BaseBalance.Quo(snap.AssetBalance)
	if limit.LTE(spot) {
		return sdkmath.LegacyDec{}, false
	}

	hundred := sdkmath.LegacyNewDec(100)
	g := sdkmath.LegacyOneDec().Sub(snap.BuyFeePct.Quo(hundred))
	if !g.IsPositive() {
		return sdkmath.LegacyDec{}, false
	}

	b := snap.BaseBalance
	k := snap.BaseBalance.Mul(snap.AssetBalance)
	onePlusG := sdkmath.LegacyOneDec().Add(g)

	// discriminant = B^2*(1+g)^2 - 4g*(B^2 - limit*k)
	disc := b.Mul(b).Mul(onePlusG).Mul(onePlusG).
		Sub(sdkmath.LegacyNewDec(4).Mul(g).Mul(b.Mul(b).Sub(limit.Mul(k))))
	if disc.IsNegative() {
		return sdkmath.LegacyDec{}, false
	}
	root, err := disc.ApproxSqrt()
	if err != nil {
		return sdkmath.LegacyDec{}, false
	}

	spend := root.Sub(b.Mul(onePlusG)).Quo(sdkmath.LegacyNewDec(2).Mul(g))
	if !spend.IsPositive() {
		return sdkmath.LegacyDec{}, false
	}
	return spend, true
}
