/*

Hook protocol types. A hook is an externally supplied component that observes
pool operations. Every invocation carries a single-use authorization badge
that the hook must hand back unchanged; mutating and read-only phases use two
distinct badge types so the restriction is carried by the type system rather
than a runtime flag.

*/

package hooks

import (
	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/radixpump/pumpengine/internal/types"
)

// Execution rounds. Round 0 hooks may trigger derived operations; round 2
// hooks observe with a read-only badge and can trigger nothing further.
const (
	RoundEarly    = 0
	RoundDeferred = 1
	RoundReadOnly = 2
	NumRounds     = 3
)

// Authorization is the single-use token passed through a hook invocation.
// Exactly two implementations exist: AuthBadge (mutating rounds) and
// ObserverBadge (the read-only round).
type Authorization interface {
	badgeID() uuid.UUID
}

// AuthBadge authorizes pool-mutating executor calls. Minted once per hook
// invocation; the dispatch engine asserts its return.
type AuthBadge struct {
	id uuid.UUID
}

func (b *AuthBadge) badgeID() uuid.UUID { return b.id }

// ObserverBadge is the read-only flavor handed to round 2 hooks. It is not
// accepted by any pool-mutating executor method.
type ObserverBadge struct {
	id uuid.UUID
}

func (b *ObserverBadge) badgeID() uuid.UUID { return b.id }

func newAuthBadge() *AuthBadge         { return &AuthBadge{id: uuid.New()} }
func newObserverBadge() *ObserverBadge { return &ObserverBadge{id: uuid.New()} }

// HookInfo is what a hook reports about itself at registration time.
type HookInfo struct {
	Round          int
	AllowRecursion bool
}

// HookResult is everything a hook hands back from one invocation.
type HookResult struct {
	// Auth must be the exact badge the hook was invoked with. Anything else
	// is a contract violation and aborts the transaction.
	Auth Authorization
	// Bucket is an optional payout aggregated back to the original caller.
	Bucket *types.Bucket
	// Events are forwarded to the global event sink.
	Events []types.PoolEvent
	// Derived describes operations the hook itself triggered on (possibly
	// different) pools. Only honored for round 0 hooks.
	Derived []types.HookArgument
}

// PoolSnapshot is the read view hooks get of a pool's pricing state.
type PoolSnapshot struct {
	BaseBalance  sdkmath.LegacyDec
	AssetBalance sdkmath.LegacyDec
	LastPrice    sdkmath.LegacyDec
	BuyFeePct    sdkmath.LegacyDec
}

// Executor is the controlled surface through which hooks reach back into
// pool state. Mutating methods accept only the mutating badge type.
type Executor interface {
	// HookBuy executes a buy on the named pool with the hook's own funds.
	HookBuy(badge *AuthBadge, asset string, payment types.Bucket) (types.Bucket, types.HookArgument, error)
	// HookSell executes a sell on the named pool with the hook's own funds.
	HookSell(badge *AuthBadge, asset string, payment types.Bucket) (types.Bucket, types.HookArgument, error)
	// PoolSnapshot reads the pricing-relevant balances of a pool.
	PoolSnapshot(asset string) (PoolSnapshot, error)
}

// Hook is the interface every extension component implements.
type Hook interface {
	// Name is the registry key. Stable for the lifetime of the component.
	Name() string
	// Info is queried once at registration time.
	Info() HookInfo
	// Execute handles one operation event. Benign missing-state conditions
	// must be reported as diagnostic events, not errors; an error aborts the
	// enclosing transaction.
	Execute(arg types.HookArgument, auth Authorization, exec Executor) (HookResult, error)
}
