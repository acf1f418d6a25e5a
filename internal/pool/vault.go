package pool

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/radixpump/pumpengine/internal/types"
)

// Error definitions for vault operations
var (
	ErrInsufficientBalance = errors.New("insufficient vault balance")
	ErrLoanOutstanding     = errors.New("a flash loan is already outstanding")
	ErrNoLoanOutstanding   = errors.New("no flash loan is outstanding")
	ErrLoanUnderRepaid     = errors.New("repaid amount is less than the outstanding loan")
)

// Vault is a single-resource balance container.
type Vault struct {
	resource string
	balance  sdkmath.LegacyDec
}

// NewVault creates an empty vault for a resource.
func NewVault(resource string) *Vault {
	return &Vault{resource: resource, balance: sdkmath.LegacyZeroDec()}
}

// Resource returns the resource address this vault holds.
func (v *Vault) Resource() string {
	return v.resource
}

// Amount returns the current balance.
func (v *Vault) Amount() sdkmath.LegacyDec {
	return v.balance
}

// Put absorbs a bucket of the vault's resource.
func (v *Vault) Put(b types.Bucket) error {
	if b.Resource != v.resource {
		return fmt.Errorf("%w: vault holds %s, got %s", types.ErrResourceMismatch, v.resource, b.Resource)
	}
	if b.Amount.IsNil() || b.Amount.IsNegative() {
		return fmt.Errorf("cannot put invalid amount into %s vault", v.resource)
	}
	v.balance = v.balance.Add(b.Amount)
	return nil
}

// Take removes amount from the vault and returns it as a bucket.
func (v *Vault) Take(amount sdkmath.LegacyDec) (types.Bucket, error) {
	if amount.IsNegative() {
		return types.Bucket{}, fmt.Errorf("cannot take negative amount from %s vault", v.resource)
	}
	if v.balance.LT(amount) {
		return types.Bucket{}, fmt.Errorf("%w: %s vault has %s, need %s",
			ErrInsufficientBalance, v.resource, v.balance.String(), amount.String())
	}
	v.balance = v.balance.Sub(amount)
	return types.NewBucket(v.resource, amount), nil
}

// TakeAll empties the vault.
func (v *Vault) TakeAll() types.Bucket {
	b := types.NewBucket(v.resource, v.balance)
	v.balance = sdkmath.LegacyZeroDec()
	return b
}

// LoanSafeVault is a balance container whose reported amount includes any
// in-flight flash loan, so pricing math stays invariant to loan state.
type LoanSafeVault struct {
	inner           Vault
	loanOutstanding bool
	loanAmount      sdkmath.LegacyDec
}

// NewLoanSafeVault creates an empty loan-aware vault for a resource.
func NewLoanSafeVault(resource string) *LoanSafeVault {
	return &LoanSafeVault{
		inner:      Vault{resource: resource, balance: sdkmath.LegacyZeroDec()},
		loanAmount: sdkmath.LegacyZeroDec(),
	}
}

// Resource returns the resource address this vault holds.
func (v *LoanSafeVault) Resource() string {
	return v.inner.resource
}

// Amount returns the virtual balance: real balance plus the outstanding loan.
func (v *LoanSafeVault) Amount() sdkmath.LegacyDec {
	return v.inner.balance.Add(v.loanAmount)
}

// RealAmount returns the balance actually present in the vault.
func (v *LoanSafeVault) RealAmount() sdkmath.LegacyDec {
	return v.inner.balance
}

// LoanOutstanding reports whether a flash loan is in flight.
func (v *LoanSafeVault) LoanOutstanding() bool {
	return v.loanOutstanding
}

// Put absorbs a bucket of the vault's resource.
func (v *LoanSafeVault) Put(b types.Bucket) error {
	return v.inner.Put(b)
}

// Take removes amount from the real balance.
func (v *LoanSafeVault) Take(amount sdkmath.LegacyDec) (types.Bucket, error) {
	return v.inner.Take(amount)
}

// Borrow withdraws a flash loan. Only one loan may be outstanding at a time.
func (v *LoanSafeVault) Borrow(amount sdkmath.LegacyDec) (types.Bucket, error) {
	if v.loanOutstanding {
		return types.Bucket{}, ErrLoanOutstanding
	}
	b, err := v.inner.Take(amount)
	if err != nil {
		return types.Bucket{}, err
	}
	v.loanOutstanding = true
	v.loanAmount = amount
	return b, nil
}

// Repay settles the outstanding loan. Over-repayment (fees) is allowed;
// under-repayment is not.
func (v *LoanSafeVault) Repay(b types.Bucket) error {
	if !v.loanOutstanding {
		return ErrNoLoanOutstanding
	}
	if b.Amount.LT(v.loanAmount) {
		return fmt.Errorf("%w: loan %s, repaid %s", ErrLoanUnderRepaid, v.loanAmount.String(), b.Amount.String())
	}
	if err := v.inner.Put(b); err != nil {
		return err
	}
	v.loanOutstanding = false
	v.loanAmount = sdkmath.LegacyZeroDec()
	return nil
}
