package types

import (
	sdkmath "cosmossdk.io/math"
)

// HookArgument is the immutable descriptor of a completed pool operation that
// is handed to every hook invoked for the event. It is always produced by the
// pool or by a chained hook, never accepted raw from a caller; user-facing
// entry points in the orchestrator never take one as input.
type HookArgument struct {
	Asset     string             `json:"asset"`
	Operation Operation          `json:"operation"`
	Amount    *sdkmath.LegacyDec `json:"amount,omitempty"`
	Mode      PoolMode           `json:"mode"`
	Price     *sdkmath.LegacyDec `json:"price,omitempty"`
	Ids       []uint64           `json:"ids,omitempty"`
}

// NewHookArgument builds a descriptor for an operation outcome. Amount and
// price are optional; pass nil when the operation has none.
func NewHookArgument(asset string, op Operation, mode PoolMode, amount, price *sdkmath.LegacyDec, ids ...uint64) HookArgument {
	return HookArgument{
		Asset:     asset,
		Operation: op,
		Amount:    amount,
		Mode:      mode,
		Price:     price,
		Ids:       ids,
	}
}

// DecPtr is a convenience for building optional amounts on hook arguments and
// events.
func DecPtr(d sdkmath.LegacyDec) *sdkmath.LegacyDec {
	return &d
}
