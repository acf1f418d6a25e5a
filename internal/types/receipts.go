/*

Value receipts that bind a user's redeemable claim to pool-internal
accounting. The pool only ever reads the fields below; custody of the receipt
itself is the caller's problem.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
)

// FlashLoanData is the transient receipt for an in-flight flash loan.
type FlashLoanData struct {
	ID     uuid.UUID         `json:"id"`
	Asset  string            `json:"asset"`
	Amount sdkmath.LegacyDec `json:"amount"`
	// Price is the pool price at loan time; the return fee is computed
	// against the larger of this and the price at return time.
	Price sdkmath.LegacyDec `json:"price"`
}

// TicketData is the receipt for one random-launch lottery ticket.
type TicketData struct {
	ID           uuid.UUID         `json:"id"`
	Asset        string            `json:"asset"`
	TicketNumber uint32            `json:"ticket_number"`
	Price        sdkmath.LegacyDec `json:"price"`
}

// LPData is the receipt for a liquidity position. Share is an abstract unit
// of pool ownership; only the ratio to the pool's total LP matters.
type LPData struct {
	ID    uuid.UUID         `json:"id"`
	Asset string            `json:"asset"`
	Share sdkmath.LegacyDec `json:"share"`
}

// CreatorData authenticates creator-only operations on a pool.
type CreatorData struct {
	ID    uuid.UUID `json:"id"`
	Asset string    `json:"asset"`
}

// TimerBadge authenticates a scheduled invocation from the external Timer
// collaborator. The Timer itself is outside this system; only the receipt
// shape is defined here.
type TimerBadge struct {
	ID       uuid.UUID `json:"id"`
	Schedule string    `json:"schedule"`
	MintedAt time.Time `json:"minted_at"`
}
