/*

Core vocabulary shared by the pool state machine, the orchestrator and the
hook protocol: pool modes, operation tags and the launch-type union.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// PoolMode drives which operations are legal on a pool.
type PoolMode int

const (
	WaitingForLaunch PoolMode = iota
	Launching
	TerminatingLaunch
	Normal
	Liquidation
	Uninitialised
)

// String returns the human-readable mode name.
func (m PoolMode) String() string {
	switch m {
	case WaitingForLaunch:
		return "WaitingForLaunch"
	case Launching:
		return "Launching"
	case TerminatingLaunch:
		return "TerminatingLaunch"
	case Normal:
		return "Normal"
	case Liquidation:
		return "Liquidation"
	case Uninitialised:
		return "Uninitialised"
	default:
		return "Unknown"
	}
}

// Operation tags the pool operation that triggered a hook dispatch.
type Operation string

const (
	OpPostQuickLaunch           Operation = "PostQuickLaunch"
	OpPostFairLaunch            Operation = "PostFairLaunch"
	OpPostTerminateFairLaunch   Operation = "PostTerminateFairLaunch"
	OpPostRandomLaunch          Operation = "PostRandomLaunch"
	OpPostTerminateRandomLaunch Operation = "PostTerminateRandomLaunch"
	OpPostBuy                   Operation = "PostBuy"
	OpPostSell                  Operation = "PostSell"
	OpPostBuyTicket             Operation = "PostBuyTicket"
	OpPostRedeemWinningTicket   Operation = "PostRedeemWinningTicket"
	OpPostRedeemLosingTicket    Operation = "PostRedeemLosingTicket"
	OpPostAddLiquidity          Operation = "PostAddLiquidity"
	OpPostRemoveLiquidity       Operation = "PostRemoveLiquidity"
	OpPostReturnFlashLoan       Operation = "PostReturnFlashLoan"
	OpTimer                     Operation = "Timer"
)

// AllOperations lists every dispatchable operation tag.
func AllOperations() []Operation {
	return []Operation{
		OpPostQuickLaunch, OpPostFairLaunch, OpPostTerminateFairLaunch,
		OpPostRandomLaunch, OpPostTerminateRandomLaunch,
		OpPostBuy, OpPostSell,
		OpPostBuyTicket, OpPostRedeemWinningTicket, OpPostRedeemLosingTicket,
		OpPostAddLiquidity, OpPostRemoveLiquidity,
		OpPostReturnFlashLoan, OpTimer,
	}
}

// LaunchKind discriminates the launch-type union. Exactly one kind is live per
// pool for its whole lifetime.
type LaunchKind int

const (
	QuickLaunch LaunchKind = iota
	FairLaunch
	RandomLaunch
	AlreadyExisting
)

// String returns the human-readable launch kind name.
func (k LaunchKind) String() string {
	switch k {
	case QuickLaunch:
		return "Quick"
	case FairLaunch:
		return "Fair"
	case RandomLaunch:
		return "Random"
	case AlreadyExisting:
		return "AlreadyExisting"
	default:
		return "Unknown"
	}
}

// PoolInfo is the read-only snapshot returned by GetPoolInfo and served by the
// web API.
type PoolInfo struct {
	Asset                  string             `json:"asset"`
	BaseCurrency           string             `json:"base_currency"`
	Mode                   string             `json:"mode"`
	LaunchKind             string             `json:"launch_kind"`
	BaseBalance            sdkmath.LegacyDec  `json:"base_balance"`
	AssetBalance           sdkmath.LegacyDec  `json:"asset_balance"`
	IgnoredCoins           sdkmath.LegacyDec  `json:"ignored_coins"`
	LastPrice              sdkmath.LegacyDec  `json:"last_price"`
	BuyFeePct              sdkmath.LegacyDec  `json:"buy_fee_pct"`
	SellFeePct             sdkmath.LegacyDec  `json:"sell_fee_pct"`
	FlashLoanFeePct        sdkmath.LegacyDec  `json:"flash_loan_fee_pct"`
	TotalLP                sdkmath.LegacyDec  `json:"total_lp"`
	TotalUsersLP           sdkmath.LegacyDec  `json:"total_users_lp"`
	EndLaunchTime          *time.Time         `json:"end_launch_time,omitempty"`
	UnlockingTime          *time.Time         `json:"unlocking_time,omitempty"`
	TicketPrice            *sdkmath.LegacyDec `json:"ticket_price,omitempty"`
	SoldTickets            uint32             `json:"sold_tickets,omitempty"`
	WinningTickets         uint32             `json:"winning_tickets,omitempty"`
	FlashLoanOutstanding   bool               `json:"flash_loan_outstanding"`
	BaseCoinsToLpProviders sdkmath.LegacyDec  `json:"base_coins_to_lp_providers"`
}
