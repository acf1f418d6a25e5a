/*

Pump is the orchestrator: it owns every pool, the hook registry and the
protocol fee vault, and it is the only component that crosses between pools,
hooks and the oracle. Every public method is one user-facing transaction;
pool state never changes outside one.

*/

package pump

import (
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/radixpump/pumpengine/internal/config"
	"github.com/radixpump/pumpengine/internal/hooks"
	"github.com/radixpump/pumpengine/internal/logger"
	"github.com/radixpump/pumpengine/internal/oracle"
	"github.com/radixpump/pumpengine/internal/pool"
	"github.com/radixpump/pumpengine/internal/types"
	"github.com/radixpump/pumpengine/internal/utils"
)

// Error definitions for orchestrator preconditions
var (
	ErrPoolExists       = errors.New("a pool for this coin already exists")
	ErrPoolNotFound     = errors.New("no pool exists for this coin")
	ErrBadCreatorBadge  = errors.New("creator badge does not match any pool")
	ErrTerminatePending = errors.New("termination is waiting for randomness")
)

// Pump coordinates pools, hooks and the oracle behind a single lock. Hook
// callbacks re-enter through the unlocked internals, never the public
// surface.
type Pump struct {
	log zerolog.Logger
	mu  sync.Mutex

	base  string
	pools map[string]*pool.Pool

	registry    *hooks.Registry
	dispatcher  *hooks.Dispatcher
	globalHooks *hooks.HooksPerOperation
	poolHooks   map[string]*hooks.HooksPerOperation

	creators map[uuid.UUID]string

	protocolFeePct sdkmath.LegacyDec
	protocolVault  *pool.Vault

	oracle oracle.Oracle
	sink   types.EventSink
}

// New creates an orchestrator for the given base currency. The oracle serves
// random launch terminations; the sink receives every pool and hook event.
func New(base string, orc oracle.Oracle, sink types.EventSink) *Pump {
	registry := hooks.NewRegistry()
	return &Pump{
		log:            logger.GetForComponent("pump"),
		base:           base,
		pools:          make(map[string]*pool.Pool),
		registry:       registry,
		dispatcher:     hooks.NewDispatcher(registry, sink),
		globalHooks:    hooks.NewHooksPerOperation(),
		poolHooks:      make(map[string]*hooks.HooksPerOperation),
		creators:       make(map[uuid.UUID]string),
		protocolFeePct: config.ProtocolFeePct,
		protocolVault:  pool.NewVault(base),
		oracle:         orc,
		sink:           sink,
	}
}

// BaseCurrency returns the base currency resource address.
func (pm *Pump) BaseCurrency() string {
	return pm.base
}

func (pm *Pump) poolFor(asset string) (*pool.Pool, error) {
	p, ok := pm.pools[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, asset)
	}
	return p, nil
}

func (pm *Pump) creatorPool(creator types.CreatorData) (*pool.Pool, error) {
	asset, ok := pm.creators[creator.ID]
	if !ok || asset != creator.Asset {
		return nil, ErrBadCreatorBadge
	}
	return pm.poolFor(asset)
}

func (pm *Pump) mintCreatorBadge(asset string) types.CreatorData {
	badge := types.CreatorData{ID: uuid.New(), Asset: asset}
	pm.creators[badge.ID] = asset
	return badge
}

// defaultedFees fills the configured defaults where the creator passed nil.
func defaultedFees(fees *pool.Fees) pool.Fees {
	if fees != nil {
		return *fees
	}
	return pool.Fees{
		BuyPct:       config.DefaultBuyFeePct,
		SellPct:      config.DefaultSellFeePct,
		FlashLoanPct: config.DefaultFlashLoanFeePct,
	}
}

// dispatch runs the hook rounds for one operation outcome and returns the
// payout buckets hooks produced for the caller. Must be called with the lock
// held; hooks re-enter through the unlocked internals.
func (pm *Pump) dispatch(arg types.HookArgument) ([]types.Bucket, error) {
	return pm.dispatcher.Dispatch(pm, pm.globalHooks, pm.poolTable, arg)
}

func (pm *Pump) poolTable(asset string) *hooks.HooksPerOperation {
	return pm.poolHooks[asset]
}

// QuickLaunch creates a pool with the full supply minted up front, buys the
// creator's initial allocation at the launch price and opens trading
// immediately. Pass nil fees to use the configured defaults.
func (pm *Pump) QuickLaunch(asset string, supply, launchPrice sdkmath.LegacyDec, deposit types.Bucket, fees *pool.Fees) (types.Bucket, types.CreatorData, []types.Bucket, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, ok := pm.pools[asset]; ok {
		return types.Bucket{}, types.CreatorData{}, nil, fmt.Errorf("%w: %s", ErrPoolExists, asset)
	}
	p, allocation, err := pool.NewQuickLaunchPool(pm.base, asset, supply, launchPrice, deposit, defaultedFees(fees))
	if err != nil {
		return types.Bucket{}, types.CreatorData{}, nil, fmt.Errorf("quick launch %s: %w", asset, err)
	}
	pm.pools[asset] = p
	badge := pm.mintCreatorBadge(asset)

	evt := types.NewPoolEvent(asset, types.EventQuickLaunch)
	evt.Mode = p.Mode().String()
	evt.Price = types.DecPtr(launchPrice)
	pm.sink.Emit(evt)

	payouts, err := pm.dispatch(p.CreationArgument())
	if err != nil {
		return types.Bucket{}, types.CreatorData{}, nil, err
	}
	return allocation, badge, payouts, nil
}

// FairLaunch creates a fixed-price launch pool in WaitingForLaunch mode.
func (pm *Pump) FairLaunch(asset string, launchPrice, creatorLockedPct sdkmath.LegacyDec, fees *pool.Fees) (types.CreatorData, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, ok := pm.pools[asset]; ok {
		return types.CreatorData{}, fmt.Errorf("%w: %s", ErrPoolExists, asset)
	}
	p, err := pool.NewFairLaunchPool(pm.base, asset, launchPrice, creatorLockedPct, defaultedFees(fees))
	if err != nil {
		return types.CreatorData{}, fmt.Errorf("fair launch %s: %w", asset, err)
	}
	pm.pools[asset] = p
	badge := pm.mintCreatorBadge(asset)

	evt := types.NewPoolEvent(asset, types.EventFairLaunch)
	evt.Mode = p.Mode().String()
	evt.Price = types.DecPtr(launchPrice)
	pm.sink.Emit(evt)
	return badge, nil
}

// RandomLaunch creates a lottery launch pool in WaitingForLaunch mode.
func (pm *Pump) RandomLaunch(asset string, launchPrice, ticketPrice sdkmath.LegacyDec, winningTickets uint32, creatorLockedPct sdkmath.LegacyDec, fees *pool.Fees) (types.CreatorData, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, ok := pm.pools[asset]; ok {
		return types.CreatorData{}, fmt.Errorf("%w: %s", ErrPoolExists, asset)
	}
	p, err := pool.NewRandomLaunchPool(pm.base, asset, launchPrice, ticketPrice, winningTickets, creatorLockedPct, defaultedFees(fees))
	if err != nil {
		return types.CreatorData{}, fmt.Errorf("random launch %s: %w", asset, err)
	}
	pm.pools[asset] = p
	badge := pm.mintCreatorBadge(asset)

	evt := types.NewPoolEvent(asset, types.EventRandomLaunch)
	evt.Mode = p.Mode().String()
	evt.Price = types.DecPtr(launchPrice)
	pm.sink.Emit(evt)
	return badge, nil
}

// ListExistingCoin lists an externally minted coin. The pool waits
// Uninitialised until the first liquidity deposit sets its price.
func (pm *Pump) ListExistingCoin(asset string, fees *pool.Fees) (types.CreatorData, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, ok := pm.pools[asset]; ok {
		return types.CreatorData{}, fmt.Errorf("%w: %s", ErrPoolExists, asset)
	}
	p, err := pool.NewAlreadyExistingPool(pm.base, asset, defaultedFees(fees))
	if err != nil {
		return types.CreatorData{}, fmt.Errorf("list %s: %w", asset, err)
	}
	pm.pools[asset] = p
	return pm.mintCreatorBadge(asset), nil
}

// Launch opens the launch period of the creator's fair or random launch.
func (pm *Pump) Launch(creator types.CreatorData, now, endLaunchTime, unlockingTime time.Time) ([]types.Bucket, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, err := pm.creatorPool(creator)
	if err != nil {
		return nil, err
	}
	arg, evt, err := p.Launch(now, endLaunchTime, unlockingTime)
	if err != nil {
		return nil, err
	}
	pm.sink.Emit(evt)
	return pm.dispatch(arg)
}

// TerminateLaunch closes the creator's launch. When a random launch still
// needs entropy the call files an oracle request and returns
// ErrTerminatePending; retry after the oracle has delivered. On settlement
// the protocol keeps its share of the proceeds and the remainder is paid to
// the creator.
func (pm *Pump) TerminateLaunch(creator types.CreatorData, now time.Time) (types.Bucket, []types.Bucket, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, err := pm.creatorPool(creator)
	if err != nil {
		return types.Bucket{}, nil, err
	}
	proceeds, needsRandom, arg, evt, err := p.TerminateLaunch(now)
	if err != nil {
		return types.Bucket{}, nil, err
	}
	if needsRandom {
		if err := pm.oracle.RequestRandom(creator.Asset); err != nil {
			return types.Bucket{}, nil, fmt.Errorf("requesting randomness for %s: %w", creator.Asset, err)
		}
		return types.Bucket{}, nil, fmt.Errorf("%w: %s", ErrTerminatePending, creator.Asset)
	}

	// Protocol share of the creator proceeds.
	if proceeds.Amount.IsPositive() && pm.protocolFeePct.IsPositive() {
		cut, err := proceeds.Split(utils.PctOf(proceeds.Amount, pm.protocolFeePct))
		if err != nil {
			return types.Bucket{}, nil, err
		}
		if err := pm.protocolVault.Put(cut); err != nil {
			return types.Bucket{}, nil, err
		}
	}

	var payouts []types.Bucket
	if evt != nil {
		pm.sink.Emit(*evt)
	}
	if arg != nil {
		payouts, err = pm.dispatch(*arg)
		if err != nil {
			return types.Bucket{}, nil, err
		}
	}
	return proceeds, payouts, nil
}

// HandleRandom consumes one oracle delivery for a terminating random launch.
// If the extraction still needs entropy another request is filed; once it
// completes, the creator's next TerminateLaunch call settles the launch.
// The badge must be one the oracle minted for a live delivery; anything else
// is rejected before the bytes are looked at.
func (pm *Pump) HandleRandom(badge *oracle.Badge, random []byte) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if badge == nil || !pm.oracle.Outstanding(badge) {
		return oracle.ErrBadgeUnknown
	}
	p, err := pm.poolFor(badge.Asset)
	if err != nil {
		return err
	}
	done, err := p.ProcessRandom(random)
	if err != nil {
		return fmt.Errorf("processing randomness for %s: %w", badge.Asset, err)
	}
	if !done {
		return pm.oracle.RequestRandom(badge.Asset)
	}
	return nil
}

// Buy trades base currency for a coin. Returns the bought coins and any
// payout buckets produced by hooks.
func (pm *Pump) Buy(asset string, payment types.Bucket) (types.Bucket, []types.Bucket, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, err := pm.poolFor(asset)
	if err != nil {
		return types.Bucket{}, nil, err
	}
	out, arg, evt, err := p.Buy(payment)
	if err != nil {
		return types.Bucket{}, nil, err
	}
	pm.sink.Emit(evt)
	payouts, err := pm.dispatch(arg)
	if err != nil {
		return types.Bucket{}, nil, err
	}
	return out, payouts, nil
}

// Sell trades a coin for base currency.
func (pm *Pump) Sell(asset string, payment types.Bucket) (types.Bucket, []types.Bucket, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, err := pm.poolFor(asset)
	if err != nil {
		return types.Bucket{}, nil, err
	}
	out, arg, evt, err := p.Sell(payment)
	if err != nil {
		return types.Bucket{}, nil, err
	}
	pm.sink.Emit(evt)
	payouts, err := pm.dispatch(arg)
	if err != nil {
		return types.Bucket{}, nil, err
	}
	return out, payouts, nil
}

// BuyTicket buys lottery tickets during a random launch. Change from an
// over-payment is returned alongside the tickets.
func (pm *Pump) BuyTicket(asset string, payment types.Bucket, count uint32) ([]types.TicketData, types.Bucket, []types.Bucket, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, err := pm.poolFor(asset)
	if err != nil {
		return nil, types.Bucket{}, nil, err
	}
	tickets, change, arg, evt, err := p.BuyTicket(payment, count)
	if err != nil {
		return nil, types.Bucket{}, nil, err
	}
	pm.sink.Emit(evt)
	payouts, err := pm.dispatch(arg)
	if err != nil {
		return nil, types.Bucket{}, nil, err
	}
	return tickets, change, payouts, nil
}

// RedeemTicket settles one lottery ticket after launch termination.
func (pm *Pump) RedeemTicket(ticket types.TicketData) (types.Bucket, []types.Bucket, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, err := pm.poolFor(ticket.Asset)
	if err != nil {
		return types.Bucket{}, nil, err
	}
	out, arg, evt, err := p.RedeemTicket(ticket)
	if err != nil {
		return types.Bucket{}, nil, err
	}
	pm.sink.Emit(evt)
	payouts, err := pm.dispatch(arg)
	if err != nil {
		return types.Bucket{}, nil, err
	}
	return out, payouts, nil
}

// AddLiquidity deposits both resources into a pool and mints a liquidity
// receipt. Proportional excess asset is returned unused.
func (pm *Pump) AddLiquidity(asset string, baseDeposit, assetDeposit types.Bucket) (types.LPData, types.Bucket, []types.Bucket, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, err := pm.poolFor(asset)
	if err != nil {
		return types.LPData{}, types.Bucket{}, nil, err
	}
	lp, excess, arg, evt, err := p.AddLiquidity(baseDeposit, assetDeposit)
	if err != nil {
		return types.LPData{}, types.Bucket{}, nil, err
	}
	pm.sink.Emit(evt)
	payouts, err := pm.dispatch(arg)
	if err != nil {
		return types.LPData{}, types.Bucket{}, nil, err
	}
	return lp, excess, payouts, nil
}

// RemoveLiquidity burns a liquidity receipt and pays out the share.
func (pm *Pump) RemoveLiquidity(lp types.LPData) (types.Bucket, types.Bucket, []types.Bucket, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, err := pm.poolFor(lp.Asset)
	if err != nil {
		return types.Bucket{}, types.Bucket{}, nil, err
	}
	baseOut, assetOut, arg, evt, err := p.RemoveLiquidity(lp)
	if err != nil {
		return types.Bucket{}, types.Bucket{}, nil, err
	}
	pm.sink.Emit(evt)
	payouts, err := pm.dispatch(arg)
	if err != nil {
		return types.Bucket{}, types.Bucket{}, nil, err
	}
	return baseOut, assetOut, payouts, nil
}

// GetFlashLoan borrows coins from a pool. No hooks run until the loan is
// returned.
func (pm *Pump) GetFlashLoan(asset string, amount sdkmath.LegacyDec) (types.Bucket, types.FlashLoanData, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, err := pm.poolFor(asset)
	if err != nil {
		return types.Bucket{}, types.FlashLoanData{}, err
	}
	out, data, err := p.GetFlashLoan(amount)
	if err != nil {
		return types.Bucket{}, types.FlashLoanData{}, err
	}
	evt := types.NewPoolEvent(asset, types.EventFlashLoan)
	evt.Mode = p.Mode().String()
	evt.Amount = types.DecPtr(amount)
	pm.sink.Emit(evt)
	return out, data, nil
}

// ReturnFlashLoan repays a flash loan plus its base-currency fee.
func (pm *Pump) ReturnFlashLoan(repayment, fee types.Bucket, data types.FlashLoanData) ([]types.Bucket, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, err := pm.poolFor(data.Asset)
	if err != nil {
		return nil, err
	}
	arg, evt, err := p.ReturnFlashLoan(repayment, fee, data)
	if err != nil {
		return nil, err
	}
	pm.sink.Emit(evt)
	return pm.dispatch(arg)
}

// Unlock releases the creator's vested allocation.
func (pm *Pump) Unlock(creator types.CreatorData, now time.Time) (types.Bucket, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, err := pm.creatorPool(creator)
	if err != nil {
		return types.Bucket{}, err
	}
	out, evt, err := p.Unlock(now)
	if err != nil {
		return types.Bucket{}, err
	}
	pm.sink.Emit(evt)
	return out, nil
}

// Burn destroys ignored quick-launch supply from the creator's pool.
func (pm *Pump) Burn(creator types.CreatorData, amount sdkmath.LegacyDec) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, err := pm.creatorPool(creator)
	if err != nil {
		return err
	}
	evt, err := p.Burn(amount)
	if err != nil {
		return err
	}
	pm.sink.Emit(evt)
	return nil
}

// UpdatePoolFees lowers pool fees on the creator's pool. Nil leaves a fee
// unchanged.
func (pm *Pump) UpdatePoolFees(creator types.CreatorData, buy, sell, flashLoan *sdkmath.LegacyDec) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, err := pm.creatorPool(creator)
	if err != nil {
		return err
	}
	evt, err := p.UpdatePoolFees(buy, sell, flashLoan)
	if err != nil {
		return err
	}
	pm.sink.Emit(evt)
	return nil
}

// SetLiquidationMode is the owner's one-way kill switch for a pool.
func (pm *Pump) SetLiquidationMode(asset string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, err := pm.poolFor(asset)
	if err != nil {
		return err
	}
	evt, err := p.SetLiquidationMode()
	if err != nil {
		return err
	}
	pm.sink.Emit(evt)
	return nil
}

// UpdateProtocolFee changes the protocol's share of launch proceeds.
func (pm *Pump) UpdateProtocolFee(pct sdkmath.LegacyDec) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if err := utils.ValidatePct(pct); err != nil {
		return fmt.Errorf("protocol fee: %w", err)
	}
	pm.protocolFeePct = pct
	pm.log.Info().Str("protocolFeePct", pct.String()).Msg("Protocol fee updated")
	return nil
}

// WithdrawProtocolFees empties the protocol fee vault.
func (pm *Pump) WithdrawProtocolFees() types.Bucket {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.protocolVault.TakeAll()
}

// ProtocolFeesCollected returns the current protocol fee balance.
func (pm *Pump) ProtocolFeesCollected() sdkmath.LegacyDec {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.protocolVault.Amount()
}

// GetPoolInfo returns a read-only snapshot of one pool.
func (pm *Pump) GetPoolInfo(asset string) (types.PoolInfo, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, err := pm.poolFor(asset)
	if err != nil {
		return types.PoolInfo{}, err
	}
	return p.GetPoolInfo(), nil
}

// ListPools returns snapshots of every pool.
func (pm *Pump) ListPools() []types.PoolInfo {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	out := make([]types.PoolInfo, 0, len(pm.pools))
	for _, p := range pm.pools {
		out = append(out, p.GetPoolInfo())
	}
	return out
}
