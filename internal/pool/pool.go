/*

Pool is the per-asset market: two balance containers, a lifecycle mode and the
constant-product pricing that ties them together. All state-mutating methods
are called exclusively by the orchestrator; the pool itself never talks to
hooks or to the oracle.

*/

package pool

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/radixpump/pumpengine/internal/logger"
	"github.com/radixpump/pumpengine/internal/types"
	"github.com/radixpump/pumpengine/internal/utils"
)

// Error definitions for pool preconditions
var (
	ErrNotAllowedInMode  = errors.New("operation not allowed in this mode")
	ErrWrongLaunchKind   = errors.New("operation not supported by this launch type")
	ErrFeeRaised         = errors.New("pool fees can only be lowered")
	ErrFeeUnchanged      = errors.New("fee update must change at least one fee")
	ErrUnknownLPReceipt  = errors.New("unknown liquidity receipt")
	ErrUnknownTicket     = errors.New("unknown ticket")
	ErrFlashLoanFeeShort = errors.New("flash loan fee is below the required amount")
	ErrWrongReceiptAsset = errors.New("receipt does not belong to this pool")
	ErrEmptyPool         = errors.New("pool has no liquidity")
)

// Pool manages a single listed asset through its whole lifecycle.
type Pool struct {
	log zerolog.Logger

	asset string
	base  string

	baseVault  *Vault
	assetVault *LoanSafeVault

	mode      types.PoolMode
	kind      types.LaunchKind
	lastPrice sdkmath.LegacyDec

	buyFeePct       sdkmath.LegacyDec
	sellFeePct      sdkmath.LegacyDec
	flashLoanFeePct sdkmath.LegacyDec

	totalLP      sdkmath.LegacyDec
	totalUsersLP sdkmath.LegacyDec
	liveLP       map[uuid.UUID]sdkmath.LegacyDec

	loanData *types.FlashLoanData

	// quick launch sub-state
	ignoredCoins  sdkmath.LegacyDec
	ignoredFrozen bool

	// fair / random launch sub-state (see launch.go)
	launchPrice      sdkmath.LegacyDec
	creatorLockedPct sdkmath.LegacyDec
	endLaunchTime    time.Time
	unlockingTime    time.Time
	lockedVault      *Vault
	lockedTotal      sdkmath.LegacyDec
	unlockedSoFar    sdkmath.LegacyDec
	collectedNet     sdkmath.LegacyDec
	soldSupply       sdkmath.LegacyDec

	// random launch ticket sale and extraction sub-state (see launch.go)
	ticketPrice     sdkmath.LegacyDec
	winningTickets  uint32
	soldTickets     uint32
	liveTickets     map[uint32]bool
	extraction      *extraction
	winners         map[uint32]bool
	reserveAsset    *Vault
	reserveBase     *Vault
	coinsPerTicket  sdkmath.LegacyDec
	refundPerTicket sdkmath.LegacyDec

	// liquidation sub-state, set once at the liquidation transition
	baseCoinsToLpProviders sdkmath.LegacyDec
	usersLPAtLiquidation   sdkmath.LegacyDec
}

// Fees bundles the three pool-level percentage fees.
type Fees struct {
	BuyPct       sdkmath.LegacyDec
	SellPct      sdkmath.LegacyDec
	FlashLoanPct sdkmath.LegacyDec
}

// Validate checks all three percentages.
func (f Fees) Validate() error {
	if err := utils.ValidatePct(f.BuyPct); err != nil {
		return fmt.Errorf("buy fee: %w", err)
	}
	if err := utils.ValidatePct(f.SellPct); err != nil {
		return fmt.Errorf("sell fee: %w", err)
	}
	if err := utils.ValidatePct(f.FlashLoanPct); err != nil {
		return fmt.Errorf("flash loan fee: %w", err)
	}
	return nil
}

func newPool(base, asset string, kind types.LaunchKind, fees Fees) *Pool {
	return &Pool{
		log:                    logger.GetForComponent("pool").With().Str("asset", asset).Logger(),
		asset:                  asset,
		base:                   base,
		baseVault:              NewVault(base),
		assetVault:             NewLoanSafeVault(asset),
		kind:                   kind,
		lastPrice:              sdkmath.LegacyZeroDec(),
		buyFeePct:              fees.BuyPct,
		sellFeePct:             fees.SellPct,
		flashLoanFeePct:        fees.FlashLoanPct,
		totalLP:                sdkmath.LegacyZeroDec(),
		totalUsersLP:           sdkmath.LegacyZeroDec(),
		liveLP:                 make(map[uuid.UUID]sdkmath.LegacyDec),
		ignoredCoins:           sdkmath.LegacyZeroDec(),
		soldSupply:             sdkmath.LegacyZeroDec(),
		collectedNet:           sdkmath.LegacyZeroDec(),
		lockedTotal:            sdkmath.LegacyZeroDec(),
		unlockedSoFar:          sdkmath.LegacyZeroDec(),
		baseCoinsToLpProviders: sdkmath.LegacyZeroDec(),
		usersLPAtLiquidation:   sdkmath.LegacyZeroDec(),
	}
}

// NewQuickLaunchPool mints the full declared supply up front, executes the
// creator's initial deposit at the declared launch price and enters Normal
// mode immediately. The excess supply is tracked as ignored coins so the
// constant-product ratio matches the declared price.
//
// Returns the creator's asset allocation (deposit minus buy fee, at launch
// price).
func NewQuickLaunchPool(base, asset string, supply, launchPrice sdkmath.LegacyDec, deposit types.Bucket, fees Fees) (*Pool, types.Bucket, error) {
	if err := utils.ValidateAmount(supply); err != nil {
		return nil, types.Bucket{}, fmt.Errorf("supply: %w", err)
	}
	if err := utils.ValidateAmount(launchPrice); err != nil {
		return nil, types.Bucket{}, fmt.Errorf("launch price: %w", err)
	}
	if err := utils.ValidateAmount(deposit.Amount); err != nil {
		return nil, types.Bucket{}, fmt.Errorf("deposit: %w", err)
	}
	if err := fees.Validate(); err != nil {
		return nil, types.Bucket{}, err
	}

	p := newPool(base, asset, types.QuickLaunch, fees)
	if err := p.assetVault.Put(types.NewBucket(asset, supply)); err != nil {
		return nil, types.Bucket{}, err
	}

	// The deposit is a fixed-price buy: the fee stays in the base container,
	// the creator receives the net amount at the launch price.
	fee := utils.PctOf(deposit.Amount, fees.BuyPct)
	allocation := deposit.Amount.Sub(fee).QuoTruncate(launchPrice)
	if allocation.GT(supply) {
		return nil, types.Bucket{}, fmt.Errorf("deposit buys %s coins but supply is only %s", allocation.String(), supply.String())
	}
	depositAmount := deposit.Amount
	if err := p.baseVault.Put(deposit); err != nil {
		return nil, types.Bucket{}, err
	}
	out, err := p.assetVault.Take(allocation)
	if err != nil {
		return nil, types.Bucket{}, err
	}

	p.lastPrice = launchPrice
	p.mode = types.Normal

	// Protocol-seeded liquidity: the effective balances back total_lp, no
	// external provider owns any of it yet.
	p.totalLP = depositAmount.QuoTruncate(launchPrice)
	p.totalUsersLP = sdkmath.LegacyZeroDec()
	p.refreshIgnoredCoins()

	p.log.Info().
		Str("supply", supply.String()).
		Str("launchPrice", launchPrice.String()).
		Str("ignoredCoins", p.ignoredCoins.String()).
		Msg("Quick launch pool instantiated")

	return p, out, nil
}

// NewAlreadyExistingPool lists an externally minted coin. The pool starts
// Uninitialised; the first liquidity deposit sets the price.
func NewAlreadyExistingPool(base, asset string, fees Fees) (*Pool, error) {
	if err := fees.Validate(); err != nil {
		return nil, err
	}
	p := newPool(base, asset, types.AlreadyExisting, fees)
	p.mode = types.Uninitialised
	return p, nil
}

// Asset returns the pool's asset resource address.
func (p *Pool) Asset() string {
	return p.asset
}

// Mode returns the current lifecycle mode.
func (p *Pool) Mode() types.PoolMode {
	return p.mode
}

// LastPrice returns the last executed trade price.
func (p *Pool) LastPrice() sdkmath.LegacyDec {
	return p.lastPrice
}

// Reserves returns the pricing-relevant balances: the base container and the
// effective (virtual minus ignored) asset container.
func (p *Pool) Reserves() (base, asset sdkmath.LegacyDec) {
	return p.baseVault.Amount(), p.effectiveAssetBalance()
}

// BuyFeePct returns the current buy fee percentage.
func (p *Pool) BuyFeePct() sdkmath.LegacyDec {
	return p.buyFeePct
}

func (p *Pool) requireMode(op string, allowed ...types.PoolMode) error {
	for _, m := range allowed {
		if p.mode == m {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in mode %s", ErrNotAllowedInMode, op, p.mode)
}

// effectiveAssetBalance is the virtual asset balance minus any ignored
// quick-launch supply; every pricing formula uses this value.
func (p *Pool) effectiveAssetBalance() sdkmath.LegacyDec {
	eff := p.assetVault.Amount().Sub(p.ignoredCoins)
	if eff.IsNegative() {
		return sdkmath.LegacyZeroDec()
	}
	return eff
}

// refreshIgnoredCoins recomputes the ignored-supply correction after a
// balance-moving operation. Once the gap closes the value is frozen at zero.
func (p *Pool) refreshIgnoredCoins() {
	if p.kind != types.QuickLaunch || p.ignoredFrozen {
		return
	}
	if p.lastPrice.IsZero() {
		return
	}
	implied := p.baseVault.Amount().QuoTruncate(p.lastPrice)
	ignored := p.assetVault.Amount().Sub(implied)
	if ignored.IsPositive() {
		p.ignoredCoins = ignored
		return
	}
	p.ignoredCoins = sdkmath.LegacyZeroDec()
	p.ignoredFrozen = true
}

// Buy trades base currency for the pool's asset. In Normal mode it uses the
// constant-product invariant with the fee retained in the base container; in
// Launching mode it mints at the fixed launch price (fair launches only).
func (p *Pool) Buy(payment types.Bucket) (types.Bucket, types.HookArgument, types.PoolEvent, error) {
	if err := utils.ValidateAmount(payment.Amount); err != nil {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, fmt.Errorf("buy amount: %w", err)
	}
	if payment.Resource != p.base {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, fmt.Errorf("%w: buys pay in %s, got %s", types.ErrResourceMismatch, p.base, payment.Resource)
	}
	if err := p.requireMode("buy", types.Normal, types.Launching); err != nil {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
	}
	if p.mode == types.Launching {
		return p.launchBuy(payment)
	}

	baseBalance := p.baseVault.Amount()
	assetEff := p.effectiveAssetBalance()
	if baseBalance.IsZero() || assetEff.IsZero() {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, ErrEmptyPool
	}

	amount := payment.Amount
	fee := utils.PctOf(amount, p.buyFeePct)

	// k stays in full LegacyDec precision; only the final quotient truncates.
	k := baseBalance.Mul(assetEff)
	newAssetEff := k.QuoTruncate(baseBalance.Add(amount).Sub(fee))
	bought := assetEff.Sub(newAssetEff)
	if !bought.IsPositive() {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, fmt.Errorf("buy of %s %s is too small to price", amount.String(), p.base)
	}
	price := amount.Quo(bought)

	// The asset leaves first: with a flash loan outstanding the real balance
	// can be short, and that failure must not trap the payment.
	out, err := p.assetVault.Take(bought)
	if err != nil {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
	}
	if err := p.baseVault.Put(payment); err != nil {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
	}
	p.lastPrice = price
	p.refreshIgnoredCoins()

	arg := types.NewHookArgument(p.asset, types.OpPostBuy, p.mode, types.DecPtr(bought), types.DecPtr(price))
	evt := types.NewPoolEvent(p.asset, types.EventBuy)
	evt.Operation = types.OpPostBuy
	evt.Mode = p.mode.String()
	evt.Amount = types.DecPtr(bought)
	evt.Price = types.DecPtr(price)
	return out, arg, evt, nil
}

// Sell trades the pool's asset for base currency. Liquidation mode pays the
// fixed last price with no fee, strictly from the base container.
func (p *Pool) Sell(payment types.Bucket) (types.Bucket, types.HookArgument, types.PoolEvent, error) {
	if err := utils.ValidateAmount(payment.Amount); err != nil {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, fmt.Errorf("sell amount: %w", err)
	}
	if payment.Resource != p.asset {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, fmt.Errorf("%w: sells pay in %s, got %s", types.ErrResourceMismatch, p.asset, payment.Resource)
	}
	if err := p.requireMode("sell", types.Normal, types.Liquidation); err != nil {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
	}

	amount := payment.Amount
	var payout, price sdkmath.LegacyDec

	if p.mode == types.Liquidation {
		price = p.lastPrice
		payout = utils.MinDec(amount.Mul(price), p.baseVault.Amount())
	} else {
		baseBalance := p.baseVault.Amount()
		assetEff := p.effectiveAssetBalance()
		if baseBalance.IsZero() || assetEff.IsZero() {
			return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, ErrEmptyPool
		}
		k := baseBalance.Mul(assetEff)
		newBase := k.QuoTruncate(assetEff.Add(amount))
		gross := baseBalance.Sub(newBase)
		fee := utils.PctOf(gross, p.sellFeePct)
		payout = gross.Sub(fee)
		price = gross.Quo(amount)
	}

	out, err := p.baseVault.Take(payout)
	if err != nil {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
	}
	if err := p.assetVault.Put(payment); err != nil {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
	}
	if p.mode == types.Normal {
		p.lastPrice = price
		p.refreshIgnoredCoins()
	}

	arg := types.NewHookArgument(p.asset, types.OpPostSell, p.mode, types.DecPtr(amount), types.DecPtr(price))
	evt := types.NewPoolEvent(p.asset, types.EventSell)
	evt.Operation = types.OpPostSell
	evt.Mode = p.mode.String()
	evt.Amount = types.DecPtr(amount)
	evt.Price = types.DecPtr(price)
	return out, arg, evt, nil
}

// AddLiquidity deposits both resources. On an Uninitialised pool the deposit
// ratio sets the price and the pool enters Normal mode. On a Normal pool any
// proportional excess asset is returned unused; excess base currency is
// accepted deliberately, shifting the price.
func (p *Pool) AddLiquidity(base, asset types.Bucket) (types.LPData, types.Bucket, types.HookArgument, types.PoolEvent, error) {
	none := types.LPData{}
	if err := utils.ValidateAmount(base.Amount); err != nil {
		return none, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, fmt.Errorf("base deposit: %w", err)
	}
	if err := utils.ValidateAmount(asset.Amount); err != nil {
		return none, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, fmt.Errorf("asset deposit: %w", err)
	}
	if base.Resource != p.base || asset.Resource != p.asset {
		return none, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, fmt.Errorf("%w: deposits must be %s and %s", types.ErrResourceMismatch, p.base, p.asset)
	}
	if err := p.requireMode("add_liquidity", types.Normal, types.Uninitialised); err != nil {
		return none, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
	}

	excess := types.ZeroBucket(p.asset)
	var minted sdkmath.LegacyDec

	if p.mode == types.Uninitialised {
		// First deposit sets the price from the user's ratio.
		if err := p.baseVault.Put(base); err != nil {
			return none, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
		}
		if err := p.assetVault.Put(asset); err != nil {
			return none, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
		}
		p.lastPrice = base.Amount.Quo(asset.Amount)
		minted = asset.Amount
		p.totalLP = minted
		p.totalUsersLP = minted
		p.mode = types.Normal
	} else {
		baseBalance := p.baseVault.Amount()
		assetEffBefore := p.effectiveAssetBalance()
		if baseBalance.IsZero() || assetEffBefore.IsZero() || p.totalLP.IsZero() {
			return none, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, ErrEmptyPool
		}
		// Deposits match the live reserve ratio, the same ratio
		// RemoveLiquidity pays out at; lastPrice is a trade price and may
		// sit away from the reserves.
		required := base.Amount.Mul(assetEffBefore).QuoTruncate(baseBalance)
		accepted := asset.Amount
		if asset.Amount.GT(required) {
			var err error
			excess, err = asset.Split(asset.Amount.Sub(required))
			if err != nil {
				return none, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
			}
			accepted = required
		}
		minted = accepted.Mul(p.totalLP).QuoTruncate(assetEffBefore)
		if err := p.baseVault.Put(base); err != nil {
			return none, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
		}
		if err := p.assetVault.Put(asset); err != nil {
			return none, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
		}
		p.totalLP = p.totalLP.Add(minted)
		p.totalUsersLP = p.totalUsersLP.Add(minted)
		p.refreshIgnoredCoins()
	}

	lp := types.LPData{ID: uuid.New(), Asset: p.asset, Share: minted}
	p.liveLP[lp.ID] = minted

	arg := types.NewHookArgument(p.asset, types.OpPostAddLiquidity, p.mode, types.DecPtr(minted), types.DecPtr(p.lastPrice))
	evt := types.NewPoolEvent(p.asset, types.EventAddLiquidity)
	evt.Operation = types.OpPostAddLiquidity
	evt.Mode = p.mode.String()
	evt.Amount = types.DecPtr(minted)
	evt.Price = types.DecPtr(p.lastPrice)
	return lp, excess, arg, evt, nil
}

// RemoveLiquidity pays out the proportional share of both containers, or in
// Liquidation mode a proportional share of the base set aside for providers.
func (p *Pool) RemoveLiquidity(lp types.LPData) (types.Bucket, types.Bucket, types.HookArgument, types.PoolEvent, error) {
	if err := p.requireMode("remove_liquidity", types.Normal, types.Liquidation); err != nil {
		return types.Bucket{}, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
	}
	if lp.Asset != p.asset {
		return types.Bucket{}, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, ErrWrongReceiptAsset
	}
	share, ok := p.liveLP[lp.ID]
	if !ok || !share.Equal(lp.Share) {
		return types.Bucket{}, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, ErrUnknownLPReceipt
	}

	var baseOut, assetOut types.Bucket
	var err error

	if p.mode == types.Liquidation {
		payout := share.Mul(p.baseCoinsToLpProviders).QuoTruncate(p.usersLPAtLiquidation)
		payout = utils.MinDec(payout, p.baseVault.Amount())
		baseOut, err = p.baseVault.Take(payout)
		if err != nil {
			return types.Bucket{}, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
		}
		assetOut = types.ZeroBucket(p.asset)
	} else {
		fraction := share.Quo(p.totalLP)
		basePayout := p.baseVault.Amount().MulTruncate(fraction)
		assetPayout := p.effectiveAssetBalance().MulTruncate(fraction)
		baseOut, err = p.baseVault.Take(basePayout)
		if err != nil {
			return types.Bucket{}, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
		}
		assetOut, err = p.assetVault.Take(assetPayout)
		if err != nil {
			return types.Bucket{}, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
		}
	}

	delete(p.liveLP, lp.ID)
	p.totalLP = p.totalLP.Sub(share)
	p.totalUsersLP = p.totalUsersLP.Sub(share)
	if p.mode == types.Normal {
		p.refreshIgnoredCoins()
	}

	arg := types.NewHookArgument(p.asset, types.OpPostRemoveLiquidity, p.mode, types.DecPtr(share), types.DecPtr(p.lastPrice))
	evt := types.NewPoolEvent(p.asset, types.EventRemoveLiquidity)
	evt.Operation = types.OpPostRemoveLiquidity
	evt.Mode = p.mode.String()
	evt.Amount = types.DecPtr(share)
	return baseOut, assetOut, arg, evt, nil
}

// GetFlashLoan borrows asset through the loan-accounting vault. At most one
// loan may be in flight.
func (p *Pool) GetFlashLoan(amount sdkmath.LegacyDec) (types.Bucket, types.FlashLoanData, error) {
	if err := utils.ValidateAmount(amount); err != nil {
		return types.Bucket{}, types.FlashLoanData{}, fmt.Errorf("loan amount: %w", err)
	}
	if err := p.requireMode("flash_loan", types.Normal); err != nil {
		return types.Bucket{}, types.FlashLoanData{}, err
	}
	out, err := p.assetVault.Borrow(amount)
	if err != nil {
		return types.Bucket{}, types.FlashLoanData{}, err
	}
	data := types.FlashLoanData{
		ID:     uuid.New(),
		Asset:  p.asset,
		Amount: amount,
		Price:  p.lastPrice,
	}
	p.loanData = &data
	return out, data, nil
}

// ReturnFlashLoan repays the loan plus a base-currency fee. The fee is
// computed against the larger of the price at loan time and the current
// price, so a borrower cannot manipulate the price downward mid-loan to
// underpay.
func (p *Pool) ReturnFlashLoan(repayment, fee types.Bucket, data types.FlashLoanData) (types.HookArgument, types.PoolEvent, error) {
	if err := p.requireMode("return_flash_loan", types.Normal); err != nil {
		return types.HookArgument{}, types.PoolEvent{}, err
	}
	if data.Asset != p.asset || p.loanData == nil || p.loanData.ID != data.ID {
		return types.HookArgument{}, types.PoolEvent{}, ErrWrongReceiptAsset
	}
	if fee.Resource != p.base {
		return types.HookArgument{}, types.PoolEvent{}, fmt.Errorf("%w: flash loan fees are paid in %s, got %s", types.ErrResourceMismatch, p.base, fee.Resource)
	}

	feePrice := utils.MaxDec(data.Price, p.lastPrice)
	required := utils.PctOf(data.Amount, p.flashLoanFeePct).Mul(feePrice)
	if fee.Amount.LT(required) {
		return types.HookArgument{}, types.PoolEvent{}, fmt.Errorf("%w: need %s %s, got %s",
			ErrFlashLoanFeeShort, required.String(), p.base, fee.Amount.String())
	}

	if err := p.assetVault.Repay(repayment); err != nil {
		return types.HookArgument{}, types.PoolEvent{}, err
	}
	if err := p.baseVault.Put(fee); err != nil {
		return types.HookArgument{}, types.PoolEvent{}, err
	}
	p.loanData = nil
	p.refreshIgnoredCoins()

	arg := types.NewHookArgument(p.asset, types.OpPostReturnFlashLoan, p.mode, types.DecPtr(data.Amount), types.DecPtr(p.lastPrice))
	evt := types.NewPoolEvent(p.asset, types.EventFlashLoanReturn)
	evt.Operation = types.OpPostReturnFlashLoan
	evt.Mode = p.mode.String()
	evt.Amount = types.DecPtr(data.Amount)
	return arg, evt, nil
}

// SetLiquidationMode is the one-way transition into Liquidation. The base
// currency owed to external liquidity providers is fixed here, once.
func (p *Pool) SetLiquidationMode() (types.PoolEvent, error) {
	if err := p.requireMode("set_liquidation_mode", types.Normal, types.Launching, types.TerminatingLaunch); err != nil {
		return types.PoolEvent{}, err
	}
	if p.totalLP.IsPositive() {
		p.baseCoinsToLpProviders = p.baseVault.Amount().Mul(p.totalUsersLP).QuoTruncate(p.totalLP)
	}
	p.usersLPAtLiquidation = p.totalUsersLP
	p.mode = types.Liquidation

	p.log.Warn().
		Str("baseCoinsToLpProviders", p.baseCoinsToLpProviders.String()).
		Msg("Pool entered liquidation mode")

	evt := types.NewPoolEvent(p.asset, types.EventLiquidation)
	evt.Mode = p.mode.String()
	evt.Price = types.DecPtr(p.lastPrice)
	return evt, nil
}

// UpdatePoolFees lowers pool fees. Raising any fee is rejected, and the call
// must change at least one value. Nil means "leave unchanged".
func (p *Pool) UpdatePoolFees(buy, sell, flashLoan *sdkmath.LegacyDec) (types.PoolEvent, error) {
	changed := false
	apply := func(current sdkmath.LegacyDec, next *sdkmath.LegacyDec, name string) (sdkmath.LegacyDec, error) {
		if next == nil {
			return current, nil
		}
		if err := utils.ValidatePct(*next); err != nil {
			return current, fmt.Errorf("%s fee: %w", name, err)
		}
		if next.GT(current) {
			return current, fmt.Errorf("%w: %s fee %s -> %s", ErrFeeRaised, name, current.String(), next.String())
		}
		if !next.Equal(current) {
			changed = true
		}
		return *next, nil
	}

	newBuy, err := apply(p.buyFeePct, buy, "buy")
	if err != nil {
		return types.PoolEvent{}, err
	}
	newSell, err := apply(p.sellFeePct, sell, "sell")
	if err != nil {
		return types.PoolEvent{}, err
	}
	newFlash, err := apply(p.flashLoanFeePct, flashLoan, "flash loan")
	if err != nil {
		return types.PoolEvent{}, err
	}
	if !changed {
		return types.PoolEvent{}, ErrFeeUnchanged
	}

	p.buyFeePct, p.sellFeePct, p.flashLoanFeePct = newBuy, newSell, newFlash

	evt := types.NewPoolEvent(p.asset, types.EventFeeUpdate)
	evt.Mode = p.mode.String()
	evt.Message = fmt.Sprintf("buy=%s sell=%s flash_loan=%s", newBuy.String(), newSell.String(), newFlash.String())
	return evt, nil
}

// Burn destroys asset from the pool's ignored quick-launch holdings,
// narrowing the gap between real and base-implied supply.
func (p *Pool) Burn(amount sdkmath.LegacyDec) (types.PoolEvent, error) {
	if err := utils.ValidateAmount(amount); err != nil {
		return types.PoolEvent{}, fmt.Errorf("burn amount: %w", err)
	}
	if p.kind != types.QuickLaunch {
		return types.PoolEvent{}, fmt.Errorf("%w: burn requires a quick-launched pool", ErrWrongLaunchKind)
	}
	if !p.ignoredCoins.IsPositive() {
		return types.PoolEvent{}, errors.New("no ignored coins left to burn")
	}

	burn := utils.MinDec(amount, p.ignoredCoins)
	if _, err := p.assetVault.Take(burn); err != nil {
		return types.PoolEvent{}, err
	}
	p.refreshIgnoredCoins()

	evt := types.NewPoolEvent(p.asset, types.EventBurn)
	evt.Mode = p.mode.String()
	evt.Amount = types.DecPtr(burn)
	return evt, nil
}

// GetPoolInfo returns a read-only snapshot of the pool.
func (p *Pool) GetPoolInfo() types.PoolInfo {
	info := types.PoolInfo{
		Asset:                  p.asset,
		BaseCurrency:           p.base,
		Mode:                   p.mode.String(),
		LaunchKind:             p.kind.String(),
		BaseBalance:            p.baseVault.Amount(),
		AssetBalance:           p.assetVault.Amount(),
		IgnoredCoins:           p.ignoredCoins,
		LastPrice:              p.lastPrice,
		BuyFeePct:              p.buyFeePct,
		SellFeePct:             p.sellFeePct,
		FlashLoanFeePct:        p.flashLoanFeePct,
		TotalLP:                p.totalLP,
		TotalUsersLP:           p.totalUsersLP,
		FlashLoanOutstanding:   p.assetVault.LoanOutstanding(),
		BaseCoinsToLpProviders: p.baseCoinsToLpProviders,
	}
	if p.kind == types.FairLaunch || p.kind == types.RandomLaunch {
		if !p.endLaunchTime.IsZero() {
			end := p.endLaunchTime
			info.EndLaunchTime = &end
			unlock := p.unlockingTime
			info.UnlockingTime = &unlock
		}
	}
	if p.kind == types.RandomLaunch {
		tp := p.ticketPrice
		info.TicketPrice = &tp
		info.SoldTickets = p.soldTickets
		info.WinningTickets = p.winningTickets
	}
	return info
}
