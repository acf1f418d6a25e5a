/*

Launch-type sub-state and lifecycle transitions. Fair launches sell freshly
minted coins at a fixed price; random launches sell lottery tickets and settle
them with externally supplied randomness. Quick-launch and already-existing
pools have no lifecycle beyond their constructors.

*/

package pool

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/radixpump/pumpengine/internal/types"
	"github.com/radixpump/pumpengine/internal/utils"
)

// Error definitions for launch lifecycle preconditions
var (
	ErrLaunchNotEnded     = errors.New("launch period has not ended yet")
	ErrLaunchTimes        = errors.New("invalid launch timing")
	ErrTicketPayment      = errors.New("ticket payment does not cover the ticket price")
	ErrExtractionPending  = errors.New("ticket extraction is not complete")
	ErrNothingToUnlock    = errors.New("no coins are unlockable yet")
	ErrTicketSaleOnly     = errors.New("random launches sell tickets, use buy_ticket")
)

// extraction tracks the randomness-dependent half of a random launch
// termination. The engine always extracts the smaller of winners and losers
// to minimize randomness consumption.
type extraction struct {
	needed            int
	extractingWinners bool
	extracted         map[uint32]bool
}

func (e *extraction) complete() bool {
	return len(e.extracted) >= e.needed
}

// NewFairLaunchPool creates a pool that will mint-and-sell at a fixed price
// during its launch period. The pool starts in WaitingForLaunch mode.
func NewFairLaunchPool(base, asset string, launchPrice, creatorLockedPct sdkmath.LegacyDec, fees Fees) (*Pool, error) {
	if err := utils.ValidateAmount(launchPrice); err != nil {
		return nil, fmt.Errorf("launch price: %w", err)
	}
	if err := utils.ValidatePct(creatorLockedPct); err != nil {
		return nil, fmt.Errorf("creator locked pct: %w", err)
	}
	if err := fees.Validate(); err != nil {
		return nil, err
	}
	p := newPool(base, asset, types.FairLaunch, fees)
	p.mode = types.WaitingForLaunch
	p.launchPrice = launchPrice
	p.creatorLockedPct = creatorLockedPct
	p.lockedVault = NewVault(asset)
	return p, nil
}

// NewRandomLaunchPool creates a pool that will sell lottery tickets during
// its launch period. Each winning ticket redeems a fixed-price buy's worth of
// coins; losing tickets are refunded minus the buy fee.
func NewRandomLaunchPool(base, asset string, launchPrice, ticketPrice sdkmath.LegacyDec, winningTickets uint32, creatorLockedPct sdkmath.LegacyDec, fees Fees) (*Pool, error) {
	if err := utils.ValidateAmount(launchPrice); err != nil {
		return nil, fmt.Errorf("launch price: %w", err)
	}
	if err := utils.ValidateAmount(ticketPrice); err != nil {
		return nil, fmt.Errorf("ticket price: %w", err)
	}
	if winningTickets == 0 {
		return nil, errors.New("winning tickets must be positive")
	}
	if err := utils.ValidatePct(creatorLockedPct); err != nil {
		return nil, fmt.Errorf("creator locked pct: %w", err)
	}
	if err := fees.Validate(); err != nil {
		return nil, err
	}
	p := newPool(base, asset, types.RandomLaunch, fees)
	p.mode = types.WaitingForLaunch
	p.launchPrice = launchPrice
	p.ticketPrice = ticketPrice
	p.winningTickets = winningTickets
	p.creatorLockedPct = creatorLockedPct
	p.lockedVault = NewVault(asset)
	p.reserveAsset = NewVault(asset)
	p.reserveBase = NewVault(base)
	p.liveTickets = make(map[uint32]bool)
	return p, nil
}

// CreationArgument describes the pool-creating operation for hook dispatch.
// Only meaningful for quick-launched pools, which skip the launch lifecycle.
func (p *Pool) CreationArgument() types.HookArgument {
	return types.NewHookArgument(p.asset, types.OpPostQuickLaunch, p.mode, nil, types.DecPtr(p.lastPrice))
}

// Launch opens the launch period of a fair or random launch.
func (p *Pool) Launch(now, endLaunchTime, unlockingTime time.Time) (types.HookArgument, types.PoolEvent, error) {
	if err := p.requireMode("launch", types.WaitingForLaunch); err != nil {
		return types.HookArgument{}, types.PoolEvent{}, err
	}
	if p.kind != types.FairLaunch && p.kind != types.RandomLaunch {
		return types.HookArgument{}, types.PoolEvent{}, ErrWrongLaunchKind
	}
	if !endLaunchTime.After(now) {
		return types.HookArgument{}, types.PoolEvent{}, fmt.Errorf("%w: end_launch_time must be in the future", ErrLaunchTimes)
	}
	if unlockingTime.Before(endLaunchTime) {
		return types.HookArgument{}, types.PoolEvent{}, fmt.Errorf("%w: unlocking_time before end_launch_time", ErrLaunchTimes)
	}

	p.endLaunchTime = endLaunchTime
	p.unlockingTime = unlockingTime
	p.mode = types.Launching

	op := types.OpPostFairLaunch
	if p.kind == types.RandomLaunch {
		op = types.OpPostRandomLaunch
	}
	p.log.Info().
		Str("kind", p.kind.String()).
		Time("endLaunchTime", endLaunchTime).
		Time("unlockingTime", unlockingTime).
		Msg("Launch period opened")

	arg := types.NewHookArgument(p.asset, op, p.mode, nil, types.DecPtr(p.launchPrice))
	evt := types.NewPoolEvent(p.asset, types.EventLaunchStarted)
	evt.Operation = op
	evt.Mode = p.mode.String()
	evt.Price = types.DecPtr(p.launchPrice)
	return arg, evt, nil
}

// launchBuy mints at the fixed launch price during a fair launch. The
// fee-equivalent portion of the minted coins goes into the pool's asset
// container so the pool is seeded for Normal-mode operation.
func (p *Pool) launchBuy(payment types.Bucket) (types.Bucket, types.HookArgument, types.PoolEvent, error) {
	if p.kind != types.FairLaunch {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, ErrTicketSaleOnly
	}

	amount := payment.Amount
	fee := utils.PctOf(amount, p.buyFeePct)
	net := amount.Sub(fee)
	minted := net.QuoTruncate(p.launchPrice)
	poolSeed := fee.QuoTruncate(p.launchPrice)

	if err := p.baseVault.Put(payment); err != nil {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
	}
	if err := p.assetVault.Put(types.NewBucket(p.asset, poolSeed)); err != nil {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
	}
	p.soldSupply = p.soldSupply.Add(minted)
	p.collectedNet = p.collectedNet.Add(net)
	p.lastPrice = p.launchPrice

	arg := types.NewHookArgument(p.asset, types.OpPostBuy, p.mode, types.DecPtr(minted), types.DecPtr(p.launchPrice))
	evt := types.NewPoolEvent(p.asset, types.EventBuy)
	evt.Operation = types.OpPostBuy
	evt.Mode = p.mode.String()
	evt.Amount = types.DecPtr(minted)
	evt.Price = types.DecPtr(p.launchPrice)
	return types.NewBucket(p.asset, minted), arg, evt, nil
}

// BuyTicket sells lottery tickets during a random launch. Change is returned
// when the payment covers more than the requested tickets.
func (p *Pool) BuyTicket(payment types.Bucket, count uint32) ([]types.TicketData, types.Bucket, types.HookArgument, types.PoolEvent, error) {
	if err := p.requireMode("buy_ticket", types.Launching); err != nil {
		return nil, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
	}
	if p.kind != types.RandomLaunch {
		return nil, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, ErrWrongLaunchKind
	}
	if count == 0 {
		return nil, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, errors.New("ticket count must be positive")
	}

	cost := p.ticketPrice.MulInt64(int64(count))
	if payment.Amount.LT(cost) {
		return nil, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, fmt.Errorf("%w: need %s, got %s",
			ErrTicketPayment, cost.String(), payment.Amount.String())
	}
	paid, err := payment.Split(cost)
	if err != nil {
		return nil, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
	}
	if err := p.baseVault.Put(paid); err != nil {
		return nil, types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
	}

	tickets := make([]types.TicketData, 0, count)
	ids := make([]uint64, 0, count)
	for i := uint32(0); i < count; i++ {
		number := p.soldTickets + i
		p.liveTickets[number] = true
		tickets = append(tickets, types.TicketData{
			ID:           uuid.New(),
			Asset:        p.asset,
			TicketNumber: number,
			Price:        p.ticketPrice,
		})
		ids = append(ids, uint64(number))
	}
	p.soldTickets += count

	arg := types.NewHookArgument(p.asset, types.OpPostBuyTicket, p.mode, types.DecPtr(cost), types.DecPtr(p.ticketPrice), ids...)
	evt := types.NewPoolEvent(p.asset, types.EventBuyTicket)
	evt.Operation = types.OpPostBuyTicket
	evt.Mode = p.mode.String()
	evt.Amount = types.DecPtr(cost)
	evt.Ids = ids
	return tickets, payment, arg, evt, nil
}

// TerminateLaunch closes the launch period. Fair launches settle in one call;
// random launches may need one or more randomness round-trips first, in which
// case needsRandom is true and the call must be retried after the oracle
// delivers. The returned bucket holds the creator's proceeds (zero until the
// launch actually settles).
func (p *Pool) TerminateLaunch(now time.Time) (types.Bucket, bool, *types.HookArgument, *types.PoolEvent, error) {
	zero := types.ZeroBucket(p.base)
	switch p.kind {
	case types.FairLaunch:
		if err := p.requireMode("terminate_launch", types.Launching); err != nil {
			return zero, false, nil, nil, err
		}
		if now.Before(p.endLaunchTime) {
			return zero, false, nil, nil, ErrLaunchNotEnded
		}
		return p.finishFairLaunch()
	case types.RandomLaunch:
		if err := p.requireMode("terminate_launch", types.Launching, types.TerminatingLaunch); err != nil {
			return zero, false, nil, nil, err
		}
		if p.mode == types.Launching {
			if now.Before(p.endLaunchTime) {
				return zero, false, nil, nil, ErrLaunchNotEnded
			}
			if p.soldTickets <= p.winningTickets {
				// Every sold ticket wins; no randomness needed.
				return p.finishRandomLaunch(nil)
			}
			winners := int(p.winningTickets)
			losers := int(p.soldTickets) - winners
			ext := &extraction{
				needed:            winners,
				extractingWinners: true,
				extracted:         make(map[uint32]bool),
			}
			if losers < winners {
				ext.needed = losers
				ext.extractingWinners = false
			}
			p.extraction = ext
			p.mode = types.TerminatingLaunch
			return zero, true, nil, nil, nil
		}
		// TerminatingLaunch: settle if the extraction finished, otherwise
		// ask for more randomness.
		if p.extraction == nil || !p.extraction.complete() {
			return zero, true, nil, nil, nil
		}
		return p.finishRandomLaunch(p.extraction)
	default:
		return zero, false, nil, nil, ErrWrongLaunchKind
	}
}

// ProcessRandom consumes one oracle payload, drawing distinct ticket numbers
// until the payload or the requirement is exhausted. Returns true once the
// extraction is complete.
func (p *Pool) ProcessRandom(random []byte) (bool, error) {
	if err := p.requireMode("process_random", types.TerminatingLaunch); err != nil {
		return false, err
	}
	if p.extraction == nil {
		return false, errors.New("no extraction in progress")
	}
	ext := p.extraction
	for off := 0; off+8 <= len(random) && !ext.complete(); off += 8 {
		draw := binary.BigEndian.Uint64(random[off : off+8])
		number := uint32(draw % uint64(p.soldTickets))
		if ext.extracted[number] {
			// Duplicate draw; skip it. The loop is bounded by the payload
			// length so rejection cannot spin.
			continue
		}
		ext.extracted[number] = true
	}
	p.log.Debug().
		Int("extracted", len(ext.extracted)).
		Int("needed", ext.needed).
		Msg("Consumed randomness batch")
	return ext.complete(), nil
}

// finishFairLaunch settles a fair launch: the creator allocation is locked,
// the creator receives the net proceeds and the pool enters Normal mode
// seeded with the fee portions accumulated during the launch.
func (p *Pool) finishFairLaunch() (types.Bucket, bool, *types.HookArgument, *types.PoolEvent, error) {
	locked := utils.PctOf(p.soldSupply, p.creatorLockedPct)
	if locked.IsPositive() {
		if err := p.lockedVault.Put(types.NewBucket(p.asset, locked)); err != nil {
			return types.ZeroBucket(p.base), false, nil, nil, err
		}
		p.lockedTotal = locked
	}

	proceeds, err := p.baseVault.Take(p.collectedNet)
	if err != nil {
		return types.ZeroBucket(p.base), false, nil, nil, err
	}
	p.collectedNet = sdkmath.LegacyZeroDec()
	p.lastPrice = p.launchPrice
	p.totalLP = p.assetVault.Amount()
	p.mode = types.Normal

	p.log.Info().
		Str("soldSupply", p.soldSupply.String()).
		Str("locked", p.lockedTotal.String()).
		Str("proceeds", proceeds.Amount.String()).
		Msg("Fair launch terminated")

	arg := types.NewHookArgument(p.asset, types.OpPostTerminateFairLaunch, p.mode, types.DecPtr(p.soldSupply), types.DecPtr(p.launchPrice))
	evt := types.NewPoolEvent(p.asset, types.EventLaunchTerminated)
	evt.Operation = types.OpPostTerminateFairLaunch
	evt.Mode = p.mode.String()
	evt.Amount = types.DecPtr(p.soldSupply)
	evt.Price = types.DecPtr(p.launchPrice)
	return proceeds, false, &arg, &evt, nil
}

// finishRandomLaunch settles the ticket sale once the winner set is known.
// Winner allocations and loser refunds move into dedicated reserves excluded
// from pricing; the fees of every ticket seed the pool on both sides.
func (p *Pool) finishRandomLaunch(ext *extraction) (types.Bucket, bool, *types.HookArgument, *types.PoolEvent, error) {
	zero := types.ZeroBucket(p.base)

	p.winners = make(map[uint32]bool)
	if ext == nil {
		for n := range p.liveTickets {
			p.winners[n] = true
		}
	} else if ext.extractingWinners {
		for n := range ext.extracted {
			p.winners[n] = true
		}
	} else {
		for n := uint32(0); n < p.soldTickets; n++ {
			if !ext.extracted[n] {
				p.winners[n] = true
			}
		}
	}
	p.extraction = nil

	winners := int64(len(p.winners))
	losers := int64(p.soldTickets) - winners

	fee := utils.PctOf(p.ticketPrice, p.buyFeePct)
	net := p.ticketPrice.Sub(fee)
	p.coinsPerTicket = net.QuoTruncate(p.launchPrice)
	p.refundPerTicket = net

	// Winner allocations are minted into a reserve outside the pricing path.
	if winners > 0 {
		winnersReserve := p.coinsPerTicket.MulInt64(winners)
		if err := p.reserveAsset.Put(types.NewBucket(p.asset, winnersReserve)); err != nil {
			return zero, false, nil, nil, err
		}
		locked := utils.PctOf(winnersReserve, p.creatorLockedPct)
		if locked.IsPositive() {
			if err := p.lockedVault.Put(types.NewBucket(p.asset, locked)); err != nil {
				return zero, false, nil, nil, err
			}
			p.lockedTotal = locked
		}
	}

	// Loser refunds are parked in a base-currency reserve.
	if losers > 0 {
		refunds, err := p.baseVault.Take(p.refundPerTicket.MulInt64(losers))
		if err != nil {
			return zero, false, nil, nil, err
		}
		if err := p.reserveBase.Put(refunds); err != nil {
			return zero, false, nil, nil, err
		}
	}

	// The fee of every sold ticket stays in the base container; the matching
	// asset amount is minted so the seeded price equals the launch price.
	assetSeed := fee.QuoTruncate(p.launchPrice).MulInt64(int64(p.soldTickets))
	if assetSeed.IsPositive() {
		if err := p.assetVault.Put(types.NewBucket(p.asset, assetSeed)); err != nil {
			return zero, false, nil, nil, err
		}
	}

	proceeds := types.ZeroBucket(p.base)
	if winners > 0 {
		var err error
		proceeds, err = p.baseVault.Take(p.refundPerTicket.MulInt64(winners))
		if err != nil {
			return zero, false, nil, nil, err
		}
	}

	p.lastPrice = p.launchPrice
	p.totalLP = p.assetVault.Amount()
	p.mode = types.Normal

	p.log.Info().
		Int64("winners", winners).
		Int64("losers", losers).
		Str("proceeds", proceeds.Amount.String()).
		Msg("Random launch terminated")

	arg := types.NewHookArgument(p.asset, types.OpPostTerminateRandomLaunch, p.mode, types.DecPtr(proceeds.Amount), types.DecPtr(p.launchPrice))
	evt := types.NewPoolEvent(p.asset, types.EventLaunchTerminated)
	evt.Operation = types.OpPostTerminateRandomLaunch
	evt.Mode = p.mode.String()
	evt.Price = types.DecPtr(p.launchPrice)
	return proceeds, false, &arg, &evt, nil
}

// RedeemTicket settles one ticket after a random launch has terminated.
// Winning tickets redeem their coin allocation; losing tickets are refunded
// the ticket price minus the buy fee.
func (p *Pool) RedeemTicket(ticket types.TicketData) (types.Bucket, types.HookArgument, types.PoolEvent, error) {
	if err := p.requireMode("redeem_ticket", types.Normal, types.Liquidation); err != nil {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
	}
	if p.kind != types.RandomLaunch {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, ErrWrongLaunchKind
	}
	if ticket.Asset != p.asset {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, ErrWrongReceiptAsset
	}
	if p.winners == nil {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, ErrExtractionPending
	}
	if !p.liveTickets[ticket.TicketNumber] {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, ErrUnknownTicket
	}
	delete(p.liveTickets, ticket.TicketNumber)

	var out types.Bucket
	var op types.Operation
	var err error
	if p.winners[ticket.TicketNumber] {
		op = types.OpPostRedeemWinningTicket
		out, err = p.reserveAsset.Take(p.coinsPerTicket)
	} else {
		op = types.OpPostRedeemLosingTicket
		out, err = p.reserveBase.Take(p.refundPerTicket)
	}
	if err != nil {
		return types.Bucket{}, types.HookArgument{}, types.PoolEvent{}, err
	}

	arg := types.NewHookArgument(p.asset, op, p.mode, types.DecPtr(out.Amount), types.DecPtr(p.lastPrice), uint64(ticket.TicketNumber))
	evt := types.NewPoolEvent(p.asset, types.EventRedeemTicket)
	evt.Operation = op
	evt.Mode = p.mode.String()
	evt.Amount = types.DecPtr(out.Amount)
	evt.Ids = []uint64{uint64(ticket.TicketNumber)}
	return out, arg, evt, nil
}

// Unlock releases the creator allocation that unlocks linearly between the
// end of the launch and the unlocking time.
func (p *Pool) Unlock(now time.Time) (types.Bucket, types.PoolEvent, error) {
	if err := p.requireMode("unlock", types.Normal, types.Liquidation); err != nil {
		return types.Bucket{}, types.PoolEvent{}, err
	}
	if p.kind != types.FairLaunch && p.kind != types.RandomLaunch {
		return types.Bucket{}, types.PoolEvent{}, ErrWrongLaunchKind
	}
	if !p.lockedTotal.IsPositive() {
		return types.Bucket{}, types.PoolEvent{}, ErrNothingToUnlock
	}

	unlockable := p.unlockableAt(now).Sub(p.unlockedSoFar)
	if !unlockable.IsPositive() {
		return types.Bucket{}, types.PoolEvent{}, ErrNothingToUnlock
	}
	out, err := p.lockedVault.Take(unlockable)
	if err != nil {
		return types.Bucket{}, types.PoolEvent{}, err
	}
	p.unlockedSoFar = p.unlockedSoFar.Add(unlockable)

	evt := types.NewPoolEvent(p.asset, types.EventUnlock)
	evt.Mode = p.mode.String()
	evt.Amount = types.DecPtr(unlockable)
	return out, evt, nil
}

// unlockableAt returns the total amount unlocked by time t, before
// subtracting what was already withdrawn.
func (p *Pool) unlockableAt(t time.Time) sdkmath.LegacyDec {
	if !t.After(p.endLaunchTime) {
		return sdkmath.LegacyZeroDec()
	}
	if !t.Before(p.unlockingTime) || !p.unlockingTime.After(p.endLaunchTime) {
		return p.lockedTotal
	}
	elapsed := sdkmath.LegacyNewDec(t.Unix() - p.endLaunchTime.Unix())
	window := sdkmath.LegacyNewDec(p.unlockingTime.Unix() - p.endLaunchTime.Unix())
	return p.lockedTotal.Mul(elapsed).QuoTruncate(window)
}
