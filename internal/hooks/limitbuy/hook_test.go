package limitbuy

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radixpump/pumpengine/internal/hooks"
	"github.com/radixpump/pumpengine/internal/pool"
	"github.com/radixpump/pumpengine/internal/types"
)

const (
	baseRes = "resource_base"
	coinRes = "resource_coin"
)

func dec(t *testing.T, s string) sdkmath.LegacyDec {
	t.Helper()
	d, err := sdkmath.LegacyNewDecFromStr(s)
	require.NoError(t, err)
	return d
}

// poolExec adapts a single pool as the executor surface.
type poolExec struct {
	p *pool.Pool
}

func (e *poolExec) HookBuy(badge *hooks.AuthBadge, asset string, payment types.Bucket) (types.Bucket, types.HookArgument, error) {
	out, arg, _, err := e.p.Buy(payment)
	return out, arg, err
}

func (e *poolExec) HookSell(badge *hooks.AuthBadge, asset string, payment types.Bucket) (types.Bucket, types.HookArgument, error) {
	out, arg, _, err := e.p.Sell(payment)
	return out, arg, err
}

func (e *poolExec) PoolSnapshot(asset string) (hooks.PoolSnapshot, error) {
	base, asset2 := e.p.Reserves()
	return hooks.PoolSnapshot{
		BaseBalance:  base,
		AssetBalance: asset2,
		LastPrice:    e.p.LastPrice(),
		BuyFeePct:    e.p.BuyFeePct(),
	}, nil
}

// feelessPool builds a Normal-mode pool at price 1 with 1000 on both sides.
func feelessPool(t *testing.T) *pool.Pool {
	t.Helper()
	zero := sdkmath.LegacyZeroDec()
	p, err := pool.NewAlreadyExistingPool(baseRes, coinRes, pool.Fees{BuyPct: zero, SellPct: zero, FlashLoanPct: zero})
	require.NoError(t, err)
	_, _, _, _, err = p.AddLiquidity(
		types.NewBucket(baseRes, dec(t, "1000")),
		types.NewBucket(coinRes, dec(t, "1000")),
	)
	require.NoError(t, err)
	return p
}

func sellTrigger() types.HookArgument {
	return types.NewHookArgument(coinRes, types.OpPostSell, types.Normal, nil, nil)
}

func TestPlaceOrderValidation(t *testing.T) {
	h := New(baseRes, 30, 100)

	_, err := h.PlaceOrder(coinRes, dec(t, "0"), types.NewBucket(baseRes, dec(t, "10")))
	require.ErrorIs(t, err, ErrBadLimitPrice)

	_, err = h.PlaceOrder(coinRes, dec(t, "1"), types.NewBucket(coinRes, dec(t, "10")))
	require.ErrorIs(t, err, types.ErrResourceMismatch)

	_, err = h.PlaceOrder(coinRes, dec(t, "1"), types.ZeroBucket(baseRes))
	require.ErrorIs(t, err, types.ErrInsufficientBucket)
}

func TestOrderBookPriorityOrder(t *testing.T) {
	h := New(baseRes, 30, 100)

	id1, err := h.PlaceOrder(coinRes, dec(t, "10"), types.NewBucket(baseRes, dec(t, "100")))
	require.NoError(t, err)
	id2, err := h.PlaceOrder(coinRes, dec(t, "9"), types.NewBucket(baseRes, dec(t, "100")))
	require.NoError(t, err)
	id3, err := h.PlaceOrder(coinRes, dec(t, "9"), types.NewBucket(baseRes, dec(t, "100")))
	require.NoError(t, err)

	// Highest price first; equal prices resolve by placement order.
	orders := h.ActiveOrders(coinRes)
	require.Len(t, orders, 3)
	assert.Equal(t, []uint64{id1, id2, id3}, []uint64{orders[0].ID, orders[1].ID, orders[2].ID})
}

func TestMatchingFillsInPriorityOrder(t *testing.T) {
	p := feelessPool(t)
	h := New(baseRes, 30, 100)

	id1, err := h.PlaceOrder(coinRes, dec(t, "10"), types.NewBucket(baseRes, dec(t, "500")))
	require.NoError(t, err)
	id2, err := h.PlaceOrder(coinRes, dec(t, "9"), types.NewBucket(baseRes, dec(t, "2000")))
	require.NoError(t, err)
	id3, err := h.PlaceOrder(coinRes, dec(t, "9"), types.NewBucket(baseRes, dec(t, "100")))
	require.NoError(t, err)

	res, err := h.Execute(sellTrigger(), &hooks.AuthBadge{}, &poolExec{p: p})
	require.NoError(t, err)

	// Order 1 spends its whole 500 budget well below its limit of 10. The
	// aggregate matched volume is 2000 at an executed price of 3, so its
	// pro-rata share is a quarter of the bought coins.
	o1, err := h.GetOrder(coinRes, id1)
	require.NoError(t, err)
	assert.True(t, o1.Remaining.IsZero())
	assert.True(t, o1.Filled.GT(dec(t, "166")))
	assert.True(t, o1.Filled.LT(dec(t, "167")))

	// Order 2 takes the rest of the volume until the spot price reaches its
	// limit of 9 and ends the matching pass.
	o2, err := h.GetOrder(coinRes, id2)
	require.NoError(t, err)
	assert.True(t, o2.Remaining.GT(dec(t, "499")))
	assert.True(t, o2.Remaining.LT(dec(t, "501")))
	assert.True(t, o2.Filled.GT(dec(t, "499")))
	assert.True(t, o2.Filled.LT(dec(t, "501")))

	// Order 3 shares order 2's limit but placed later; the partial fill
	// above it ends the pass before order 3 is inspected.
	o3, err := h.GetOrder(coinRes, id3)
	require.NoError(t, err)
	assert.True(t, o3.Remaining.Equal(dec(t, "100")))
	assert.True(t, o3.Filled.IsZero())

	// Fully filled orders stop matching but stay claimable.
	assert.Len(t, h.ActiveOrders(coinRes), 2)

	require.Len(t, res.Events, 1)
	assert.Equal(t, types.EventOrdersMatched, res.Events[0].Kind)
	assert.Equal(t, []uint64{id1}, res.Events[0].Ids)
	require.NotNil(t, res.Events[0].PartialID)
	assert.Equal(t, id2, *res.Events[0].PartialID)
	assert.Len(t, res.Derived, 1)
}

func TestMatchingRespectsInspectionCap(t *testing.T) {
	p := feelessPool(t)
	h := New(baseRes, 1, 100)

	id1, err := h.PlaceOrder(coinRes, dec(t, "10"), types.NewBucket(baseRes, dec(t, "50")))
	require.NoError(t, err)
	_, err = h.PlaceOrder(coinRes, dec(t, "10"), types.NewBucket(baseRes, dec(t, "50")))
	require.NoError(t, err)

	res, err := h.Execute(sellTrigger(), &hooks.AuthBadge{}, &poolExec{p: p})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, []uint64{id1}, res.Events[0].Ids)
	assert.Nil(t, res.Events[0].PartialID)
}

func TestBookDepthCap(t *testing.T) {
	h := New(baseRes, 30, 2)

	_, err := h.PlaceOrder(coinRes, dec(t, "1"), types.NewBucket(baseRes, dec(t, "10")))
	require.NoError(t, err)
	_, err = h.PlaceOrder(coinRes, dec(t, "1"), types.NewBucket(baseRes, dec(t, "10")))
	require.NoError(t, err)
	_, err = h.PlaceOrder(coinRes, dec(t, "1"), types.NewBucket(baseRes, dec(t, "10")))
	require.ErrorIs(t, err, ErrBookFull)

	// Another coin's book is unaffected.
	_, err = h.PlaceOrder("resource_other_coin", dec(t, "1"), types.NewBucket(baseRes, dec(t, "10")))
	require.NoError(t, err)
}

func TestWithdrawOrderReturnsFundsAndFills(t *testing.T) {
	p := feelessPool(t)
	h := New(baseRes, 30, 100)

	id, err := h.PlaceOrder(coinRes, dec(t, "10"), types.NewBucket(baseRes, dec(t, "500")))
	require.NoError(t, err)
	_, err = h.Execute(sellTrigger(), &hooks.AuthBadge{}, &poolExec{p: p})
	require.NoError(t, err)

	refund, fills, err := h.WithdrawOrder(coinRes, id)
	require.NoError(t, err)
	assert.Equal(t, baseRes, refund.Resource)
	assert.True(t, refund.Amount.IsZero())
	assert.Equal(t, coinRes, fills.Resource)
	assert.True(t, fills.Amount.IsPositive())

	_, _, err = h.WithdrawOrder(coinRes, id)
	require.ErrorIs(t, err, ErrUnknownOrder)
}

func TestExecuteWithObserverBadgeReportsDiagnostic(t *testing.T) {
	p := feelessPool(t)
	h := New(baseRes, 30, 100)

	_, err := h.PlaceOrder(coinRes, dec(t, "10"), types.NewBucket(baseRes, dec(t, "500")))
	require.NoError(t, err)

	res, err := h.Execute(sellTrigger(), &hooks.ObserverBadge{}, &poolExec{p: p})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, types.EventHookDiagnostic, res.Events[0].Kind)

	// Nothing was bought.
	o := h.ActiveOrders(coinRes)
	require.Len(t, o, 1)
	assert.True(t, o[0].Remaining.Equal(dec(t, "500")))
}

func TestExecuteWithoutBookIsNoOp(t *testing.T) {
	h := New(baseRes, 30, 100)
	res, err := h.Execute(sellTrigger(), &hooks.AuthBadge{}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Events)
	assert.Empty(t, res.Derived)
}
