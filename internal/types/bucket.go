package types

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for bucket handling
var (
	ErrResourceMismatch   = errors.New("bucket resource mismatch")
	ErrInsufficientBucket = errors.New("insufficient bucket amount")
)

// Bucket is a transferable quantity of a single resource. Pool operations
// consume and produce buckets; hooks may return payout buckets that the
// dispatch engine aggregates back to the original caller.
type Bucket struct {
	Resource string            `json:"resource"`
	Amount   sdkmath.LegacyDec `json:"amount"`
}

// NewBucket creates a bucket holding the given amount of a resource.
func NewBucket(resource string, amount sdkmath.LegacyDec) Bucket {
	return Bucket{Resource: resource, Amount: amount}
}

// ZeroBucket creates an empty bucket for a resource.
func ZeroBucket(resource string) Bucket {
	return Bucket{Resource: resource, Amount: sdkmath.LegacyZeroDec()}
}

// IsZero reports whether the bucket holds nothing.
func (b Bucket) IsZero() bool {
	return b.Amount.IsNil() || b.Amount.IsZero()
}

// Split removes amount from the bucket and returns it as a new bucket.
func (b *Bucket) Split(amount sdkmath.LegacyDec) (Bucket, error) {
	if amount.IsNegative() {
		return Bucket{}, fmt.Errorf("cannot split negative amount %s", amount.String())
	}
	if b.Amount.LT(amount) {
		return Bucket{}, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBucket, b.Amount.String(), amount.String())
	}
	b.Amount = b.Amount.Sub(amount)
	return Bucket{Resource: b.Resource, Amount: amount}, nil
}

// Merge absorbs another bucket of the same resource.
func (b *Bucket) Merge(other Bucket) error {
	if other.Resource != b.Resource {
		return fmt.Errorf("%w: have %s, got %s", ErrResourceMismatch, b.Resource, other.Resource)
	}
	b.Amount = b.Amount.Add(other.Amount)
	return nil
}
