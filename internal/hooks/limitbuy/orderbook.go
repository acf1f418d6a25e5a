package limitbuy

import (
	"errors"
	"sort"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for order book management
var (
	ErrBookFull      = errors.New("order book is full for this coin")
	ErrUnknownOrder  = errors.New("order does not exist")
	ErrBadLimitPrice = errors.New("limit price must be positive")
)

// Order is one resting limit buy. Remaining is the unspent base budget and
// Filled the coins bought so far; both stay claimable until withdrawal.
type Order struct {
	ID        uint64
	Asset     string
	Price     sdkmath.LegacyDec
	Remaining sdkmath.LegacyDec
	Filled    sdkmath.LegacyDec
}

// active reports whether the order still has budget to match with.
func (o *Order) active() bool {
	return o.Remaining.IsPositive()
}

// book holds the orders of a single coin. Records live in the arena keyed by
// id; the index holds ids only, sorted by price descending then id ascending,
// so index maintenance never moves a record.
type book struct {
	arena map[uint64]*Order
	index []uint64
}

func newBook() *book {
	return &book{arena: make(map[uint64]*Order)}
}

// before reports whether order a sorts ahead of order b in matching priority.
func before(a, b *Order) bool {
	if !a.Price.Equal(b.Price) {
		return a.Price.GT(b.Price)
	}
	return a.ID < b.ID
}

// insert adds an order to the arena and splices its id into the index at the
// position binary search finds for it.
func (b *book) insert(o *Order) {
	b.arena[o.ID] = o
	pos := sort.Search(len(b.index), func(i int) bool {
		return before(o, b.arena[b.index[i]])
	})
	b.index = append(b.index, 0)
	copy(b.index[pos+1:], b.index[pos:])
	b.index[pos] = o.ID
}

// unindex removes an id from the sorted index, leaving the arena record in
// place. Used when an order fills completely but has coins left to claim.
func (b *book) unindex(id uint64) {
	for i, existing := range b.index {
		if existing == id {
			b.index = append(b.index[:i], b.index[i+1:]...)
			return
		}
	}
}

// remove deletes an order from both the arena and the index.
func (b *book) remove(id uint64) (*Order, bool) {
	o, ok := b.arena[id]
	if !ok {
		return nil, false
	}
	delete(b.arena, id)
	b.unindex(id)
	return o, true
}

func (b *book) get(id uint64) (*Order, bool) {
	o, ok := b.arena[id]
	return o, ok
}

// indexed returns how many orders are currently matchable.
func (b *book) indexed() int {
	return len(b.index)
}

// ranked returns up to n matchable order ids in priority order. The slice is
// a copy; matching may mutate the index while iterating it.
func (b *book) ranked(n int) []uint64 {
	if n > len(b.index) {
		n = len(b.index)
	}
	out := make([]uint64, n)
	copy(out, b.index[:n])
	return out
}
