package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// Event kinds surfaced by pools and hooks.
const (
	EventQuickLaunch      = "quick_launch"
	EventFairLaunch       = "fair_launch"
	EventRandomLaunch     = "random_launch"
	EventLaunchStarted    = "launch_started"
	EventLaunchTerminated = "launch_terminated"
	EventBuy              = "buy"
	EventSell             = "sell"
	EventBuyTicket        = "buy_ticket"
	EventRedeemTicket     = "redeem_ticket"
	EventAddLiquidity     = "add_liquidity"
	EventRemoveLiquidity  = "remove_liquidity"
	EventFlashLoan        = "flash_loan"
	EventFlashLoanReturn  = "flash_loan_return"
	EventFeeUpdate        = "fee_update"
	EventLiquidation      = "liquidation"
	EventBurn             = "burn"
	EventUnlock           = "unlock"
	EventHookDiagnostic   = "hook_diagnostic"
	EventOrdersMatched    = "orders_matched"
)

// PoolEvent is the single event record forwarded to the global event sink and
// persisted to the journal. Optional fields stay nil when the event kind has
// no use for them.
type PoolEvent struct {
	Asset     string             `json:"asset"`
	Kind      string             `json:"kind"`
	Operation Operation          `json:"operation,omitempty"`
	Mode      string             `json:"mode,omitempty"`
	Amount    *sdkmath.LegacyDec `json:"amount,omitempty"`
	Price     *sdkmath.LegacyDec `json:"price,omitempty"`
	Ids       []uint64           `json:"ids,omitempty"`
	PartialID *uint64            `json:"partial_id,omitempty"`
	Message   string             `json:"message,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewPoolEvent stamps an event with the current time.
func NewPoolEvent(asset, kind string) PoolEvent {
	return PoolEvent{Asset: asset, Kind: kind, Timestamp: time.Now().UTC()}
}

// EventSink receives every event surfaced by pools and hooks.
type EventSink interface {
	Emit(event PoolEvent)
}
