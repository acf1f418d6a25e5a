package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radixpump/pumpengine/internal/types"
)

const (
	baseRes = "resource_base"
	coinRes = "resource_coin"
)

func testFees(t *testing.T) Fees {
	return Fees{
		BuyPct:       dec(t, "1"),
		SellPct:      dec(t, "1"),
		FlashLoanPct: dec(t, "0.1"),
	}
}

func quickPool(t *testing.T) (*Pool, types.Bucket) {
	t.Helper()
	p, allocation, err := NewQuickLaunchPool(
		baseRes, coinRes,
		dec(t, "1000000"), dec(t, "1"),
		types.NewBucket(baseRes, dec(t, "1000")),
		testFees(t),
	)
	require.NoError(t, err)
	return p, allocation
}

func TestQuickLaunchInstantiation(t *testing.T) {
	p, allocation := quickPool(t)

	// Deposit 1000 at price 1 with a 1% buy fee buys 990 coins.
	assert.True(t, allocation.Amount.Equal(dec(t, "990")))
	assert.Equal(t, types.Normal, p.Mode())
	assert.True(t, p.LastPrice().Equal(dec(t, "1")))

	base, asset := p.Reserves()
	assert.True(t, base.Equal(dec(t, "1000")))
	// Effective balance is base / price, the rest is ignored supply.
	assert.True(t, asset.Equal(dec(t, "1000")))

	info := p.GetPoolInfo()
	assert.True(t, info.IgnoredCoins.Equal(dec(t, "998010")))
	assert.True(t, info.TotalLP.Equal(dec(t, "1000")))
	assert.True(t, info.TotalUsersLP.IsZero())
}

func TestQuickLaunchDepositExceedingSupply(t *testing.T) {
	_, _, err := NewQuickLaunchPool(
		baseRes, coinRes,
		dec(t, "10"), dec(t, "1"),
		types.NewBucket(baseRes, dec(t, "1000")),
		testFees(t),
	)
	require.Error(t, err)
}

func TestBuyMovesPriceUp(t *testing.T) {
	p, _ := quickPool(t)

	out, arg, evt, err := p.Buy(types.NewBucket(baseRes, dec(t, "100")))
	require.NoError(t, err)

	// k = 1000*1000; paying 100 with 1 fee leaves 1e6/1099 effective coins.
	assert.True(t, out.Amount.GT(dec(t, "89")))
	assert.True(t, out.Amount.LT(dec(t, "91")))
	assert.True(t, p.LastPrice().GT(dec(t, "1")))

	base, _ := p.Reserves()
	assert.True(t, base.Equal(dec(t, "1100")))

	assert.Equal(t, types.OpPostBuy, arg.Operation)
	assert.Equal(t, types.EventBuy, evt.Kind)
	require.NotNil(t, arg.Amount)
	assert.True(t, arg.Amount.Equal(out.Amount))
}

func TestBuyThenSellLosesToFees(t *testing.T) {
	p, _ := quickPool(t)

	bought, _, _, err := p.Buy(types.NewBucket(baseRes, dec(t, "100")))
	require.NoError(t, err)

	payout, _, _, err := p.Sell(bought)
	require.NoError(t, err)
	assert.True(t, payout.Amount.LT(dec(t, "100")))
}

func TestIgnoredCoinsShrinkAndFreeze(t *testing.T) {
	p, _ := quickPool(t)
	before := p.GetPoolInfo().IgnoredCoins

	_, _, _, err := p.Buy(types.NewBucket(baseRes, dec(t, "500")))
	require.NoError(t, err)

	after := p.GetPoolInfo().IgnoredCoins
	assert.True(t, after.LT(before))
	assert.False(t, after.IsNegative())
}

func TestAddLiquidityReturnsExcessAsset(t *testing.T) {
	p, _ := quickPool(t)

	lp, excess, _, _, err := p.AddLiquidity(
		types.NewBucket(baseRes, dec(t, "100")),
		types.NewBucket(coinRes, dec(t, "150")),
	)
	require.NoError(t, err)

	// At price 1 only 100 coins are needed; 50 come back unused.
	assert.True(t, excess.Amount.Equal(dec(t, "50")))
	assert.True(t, lp.Share.Equal(dec(t, "100")))

	info := p.GetPoolInfo()
	assert.True(t, info.TotalLP.Equal(dec(t, "1100")))
	assert.True(t, info.TotalUsersLP.Equal(dec(t, "100")))
}

func TestAddRemoveLiquidityRoundTrip(t *testing.T) {
	p, _ := quickPool(t)

	lp, _, _, _, err := p.AddLiquidity(
		types.NewBucket(baseRes, dec(t, "100")),
		types.NewBucket(coinRes, dec(t, "100")),
	)
	require.NoError(t, err)

	baseOut, assetOut, _, _, err := p.RemoveLiquidity(lp)
	require.NoError(t, err)

	// No trades happened in between, so the share pays back what went in,
	// up to truncation.
	assert.True(t, baseOut.Amount.GT(dec(t, "99.99")))
	assert.True(t, baseOut.Amount.LTE(dec(t, "100")))
	assert.True(t, assetOut.Amount.GT(dec(t, "99.99")))
	assert.True(t, assetOut.Amount.LTE(dec(t, "100")))

	// The receipt is single-use.
	_, _, _, _, err = p.RemoveLiquidity(lp)
	require.ErrorIs(t, err, ErrUnknownLPReceipt)
}

func TestAddRemoveLiquidityAfterTradeIsValueNeutral(t *testing.T) {
	zero := dec(t, "0")
	p, err := NewAlreadyExistingPool(baseRes, coinRes, Fees{BuyPct: zero, SellPct: zero, FlashLoanPct: zero})
	require.NoError(t, err)
	_, _, _, _, err = p.AddLiquidity(
		types.NewBucket(baseRes, dec(t, "1000")),
		types.NewBucket(coinRes, dec(t, "1000")),
	)
	require.NoError(t, err)

	// Move the reserves off the 1:1 ratio: base 1100, coins 1e6/1100.
	_, _, _, err = p.Buy(types.NewBucket(baseRes, dec(t, "100")))
	require.NoError(t, err)

	// A deposit at the live reserve ratio needs 100 coins per 121 base; the
	// extra 10 coins come back unused.
	lp, excess, _, _, err := p.AddLiquidity(
		types.NewBucket(baseRes, dec(t, "121")),
		types.NewBucket(coinRes, dec(t, "110")),
	)
	require.NoError(t, err)
	assert.True(t, excess.Amount.GTE(dec(t, "10")))
	assert.True(t, excess.Amount.LT(dec(t, "10.01")))

	// Removing the same share immediately pays back no more than went in.
	baseOut, assetOut, _, _, err := p.RemoveLiquidity(lp)
	require.NoError(t, err)
	assert.True(t, baseOut.Amount.LTE(dec(t, "121")))
	assert.True(t, baseOut.Amount.GT(dec(t, "120.99")))
	assert.True(t, assetOut.Amount.LTE(dec(t, "100")))
	assert.True(t, assetOut.Amount.GT(dec(t, "99.99")))
}

func TestAddLiquidityWrongResourceLeavesPoolUntouched(t *testing.T) {
	p, err := NewAlreadyExistingPool(baseRes, coinRes, testFees(t))
	require.NoError(t, err)

	_, _, _, _, err = p.AddLiquidity(
		types.NewBucket(baseRes, dec(t, "1000")),
		types.NewBucket(baseRes, dec(t, "1000")),
	)
	require.ErrorIs(t, err, types.ErrResourceMismatch)

	// The rejected deposit must not leave anything behind.
	info := p.GetPoolInfo()
	assert.Equal(t, types.Uninitialised, p.Mode())
	assert.True(t, info.BaseBalance.IsZero())
	assert.True(t, info.TotalLP.IsZero())
	assert.True(t, info.LastPrice.IsZero())

	// A well-formed deposit still initialises the pool afterwards.
	_, _, _, _, err = p.AddLiquidity(
		types.NewBucket(baseRes, dec(t, "1000")),
		types.NewBucket(coinRes, dec(t, "1000")),
	)
	require.NoError(t, err)
	assert.Equal(t, types.Normal, p.Mode())
}

func TestUninitialisedPoolFirstDepositSetsPrice(t *testing.T) {
	p, err := NewAlreadyExistingPool(baseRes, coinRes, testFees(t))
	require.NoError(t, err)
	assert.Equal(t, types.Uninitialised, p.Mode())

	_, _, _, err = p.Buy(types.NewBucket(baseRes, dec(t, "10")))
	require.ErrorIs(t, err, ErrNotAllowedInMode)

	lp, _, _, _, err := p.AddLiquidity(
		types.NewBucket(baseRes, dec(t, "200")),
		types.NewBucket(coinRes, dec(t, "100")),
	)
	require.NoError(t, err)
	assert.Equal(t, types.Normal, p.Mode())
	assert.True(t, p.LastPrice().Equal(dec(t, "2")))
	assert.True(t, lp.Share.Equal(dec(t, "100")))

	_, _, _, err = p.Buy(types.NewBucket(baseRes, dec(t, "10")))
	require.NoError(t, err)
}

func TestFlashLoanKeepsPricingInvariant(t *testing.T) {
	p, _ := quickPool(t)
	_, assetBefore := p.Reserves()

	loan, data, err := p.GetFlashLoan(dec(t, "100"))
	require.NoError(t, err)
	assert.True(t, loan.Amount.Equal(dec(t, "100")))

	// Effective balances see the borrowed coins as still present.
	_, assetDuring := p.Reserves()
	assert.True(t, assetDuring.Equal(assetBefore))

	// Only one loan at a time.
	_, _, err = p.GetFlashLoan(dec(t, "1"))
	require.ErrorIs(t, err, ErrLoanOutstanding)

	// The fee is 0.1% of the amount, priced at the loan-time price of 1.
	_, _, err = p.ReturnFlashLoan(
		types.NewBucket(coinRes, dec(t, "100")),
		types.NewBucket(baseRes, dec(t, "0.05")),
		data,
	)
	require.ErrorIs(t, err, ErrFlashLoanFeeShort)

	_, _, err = p.ReturnFlashLoan(
		types.NewBucket(coinRes, dec(t, "100")),
		types.NewBucket(baseRes, dec(t, "0.1")),
		data,
	)
	require.NoError(t, err)
	assert.False(t, p.GetPoolInfo().FlashLoanOutstanding)
}

func TestBuyShortOnRealBalanceKeepsPayment(t *testing.T) {
	p, _ := quickPool(t)

	// Borrow nearly the whole real coin balance; pricing still sees the
	// virtual 1000 effective coins, so a 100 buy prices at roughly 90 coins
	// the vault cannot physically deliver.
	_, data, err := p.GetFlashLoan(dec(t, "999000"))
	require.NoError(t, err)

	_, _, _, err = p.Buy(types.NewBucket(baseRes, dec(t, "100")))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// The failed buy must not keep the payment or move the price.
	base, _ := p.Reserves()
	assert.True(t, base.Equal(dec(t, "1000")))
	assert.True(t, p.LastPrice().Equal(dec(t, "1")))

	// Once the loan is repaid the same buy goes through.
	_, _, err = p.ReturnFlashLoan(
		types.NewBucket(coinRes, dec(t, "999000")),
		types.NewBucket(baseRes, dec(t, "999")),
		data,
	)
	require.NoError(t, err)
	_, _, _, err = p.Buy(types.NewBucket(baseRes, dec(t, "100")))
	require.NoError(t, err)
}

func TestUpdatePoolFeesLowerOnly(t *testing.T) {
	p, _ := quickPool(t)

	raised := dec(t, "2")
	_, err := p.UpdatePoolFees(&raised, nil, nil)
	require.ErrorIs(t, err, ErrFeeRaised)

	same := dec(t, "1")
	_, err = p.UpdatePoolFees(&same, nil, nil)
	require.ErrorIs(t, err, ErrFeeUnchanged)

	lower := dec(t, "0.5")
	_, err = p.UpdatePoolFees(nil, &lower, nil)
	require.NoError(t, err)
	assert.True(t, p.GetPoolInfo().SellFeePct.Equal(lower))
}

func TestLiquidationPaysFixedPriceAndBaseOnly(t *testing.T) {
	p, allocation := quickPool(t)

	lp, _, _, _, err := p.AddLiquidity(
		types.NewBucket(baseRes, dec(t, "100")),
		types.NewBucket(coinRes, dec(t, "100")),
	)
	require.NoError(t, err)

	_, err = p.SetLiquidationMode()
	require.NoError(t, err)
	assert.Equal(t, types.Liquidation, p.Mode())

	// Buys are dead in liquidation; sells pay the frozen last price.
	_, _, _, err = p.Buy(types.NewBucket(baseRes, dec(t, "10")))
	require.ErrorIs(t, err, ErrNotAllowedInMode)

	sellCoins, err := allocation.Split(dec(t, "50"))
	require.NoError(t, err)
	payout, _, _, err := p.Sell(sellCoins)
	require.NoError(t, err)
	assert.True(t, payout.Amount.Equal(dec(t, "50")))

	// Providers split the base set aside at the transition.
	baseOut, assetOut, _, _, err := p.RemoveLiquidity(lp)
	require.NoError(t, err)
	assert.True(t, baseOut.Amount.Equal(dec(t, "100")))
	assert.True(t, assetOut.Amount.IsZero())
}

func TestBurnConsumesIgnoredCoins(t *testing.T) {
	p, _ := quickPool(t)
	before := p.GetPoolInfo().IgnoredCoins

	_, err := p.Burn(dec(t, "1000"))
	require.NoError(t, err)

	after := p.GetPoolInfo().IgnoredCoins
	assert.True(t, after.Equal(before.Sub(dec(t, "1000"))))

	// Pricing is untouched by the burn.
	base, asset := p.Reserves()
	assert.True(t, base.Equal(dec(t, "1000")))
	assert.True(t, asset.Equal(dec(t, "1000")))
}

func TestBurnRequiresQuickLaunch(t *testing.T) {
	p, err := NewAlreadyExistingPool(baseRes, coinRes, testFees(t))
	require.NoError(t, err)

	_, err = p.Burn(dec(t, "1"))
	require.ErrorIs(t, err, ErrWrongLaunchKind)
}

func TestQuickPoolRejectsLaunchLifecycle(t *testing.T) {
	p, _ := quickPool(t)

	_, _, _, _, err := p.BuyTicket(types.NewBucket(baseRes, dec(t, "10")), 1)
	require.ErrorIs(t, err, ErrNotAllowedInMode)

	_, _, _, _, err2 := p.TerminateLaunch(time.Now())
	require.ErrorIs(t, err2, ErrWrongLaunchKind)
}
