/*

Randomness oracle. Random launches cannot settle without entropy from outside
the pool state, so termination files a request here and the winners are drawn
when the oracle calls back with random bytes. Each delivery carries a
single-use badge so a callback cannot be replayed.

*/

package oracle

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/radixpump/pumpengine/internal/logger"
)

// Error definitions for oracle handling
var (
	ErrNoPendingRequest = errors.New("no pending randomness request")
	ErrBadgeUnknown     = errors.New("delivery badge is not outstanding")
)

// Badge proves one randomness delivery is genuine. Minted by the oracle per
// delivery and burned whether or not the consumer accepts the bytes.
type Badge struct {
	id    uuid.UUID
	Asset string
}

// Callback consumes delivered randomness for the coin a request was filed
// for. Returning an error does not keep the badge alive; a fresh request is
// needed for another delivery.
type Callback interface {
	HandleRandom(badge *Badge, random []byte) error
}

// Oracle files randomness requests to be served asynchronously. Consumers
// verify a delivery's badge through Outstanding before trusting the bytes.
type Oracle interface {
	RequestRandom(asset string) error
	Outstanding(badge *Badge) bool
}

// SeededOracle is a deterministic oracle serving requests from a hash chain
// over its seed. Requests queue up and are served in order by DeliverNext,
// which the runtime drives.
type SeededOracle struct {
	log        zerolog.Logger
	callback   Callback
	mu         sync.Mutex
	state      [32]byte
	batchBytes int
	pending    []string
	live       map[uuid.UUID]bool
}

// NewSeededOracle creates an oracle producing batchBytes of entropy per
// delivery from the given seed.
func NewSeededOracle(seed int64, batchBytes int) *SeededOracle {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(seed))
	return &SeededOracle{
		log:        logger.GetForComponent("oracle"),
		state:      sha256.Sum256(buf[:]),
		batchBytes: batchBytes,
		live:       make(map[uuid.UUID]bool),
	}
}

// SetCallback wires the consumer. Must be called before any delivery.
func (o *SeededOracle) SetCallback(cb Callback) {
	o.callback = cb
}

// RequestRandom queues a randomness request for a coin. Duplicate requests
// are legal; each produces one delivery.
func (o *SeededOracle) RequestRandom(asset string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, asset)
	o.log.Debug().Str("asset", asset).Int("queue", len(o.pending)).Msg("Randomness requested")
	return nil
}

// Pending returns how many requests await delivery.
func (o *SeededOracle) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// DeliverNext serves the oldest pending request. The delivery badge is
// burned on every path, including a callback error. The lock is released
// around the callback: consumers file follow-up requests from inside it.
func (o *SeededOracle) DeliverNext() error {
	o.mu.Lock()
	if len(o.pending) == 0 {
		o.mu.Unlock()
		return ErrNoPendingRequest
	}
	if o.callback == nil {
		o.mu.Unlock()
		return errors.New("oracle callback is not set")
	}
	asset := o.pending[0]
	o.pending = o.pending[1:]

	badge := &Badge{id: uuid.New(), Asset: asset}
	o.live[badge.id] = true
	random := o.nextBatch()
	o.mu.Unlock()

	err := o.callback.HandleRandom(badge, random)

	o.mu.Lock()
	delete(o.live, badge.id)
	o.mu.Unlock()
	if err != nil {
		return fmt.Errorf("randomness delivery for %s: %w", asset, err)
	}
	o.log.Debug().Str("asset", asset).Int("bytes", len(random)).Msg("Randomness delivered")
	return nil
}

// Outstanding reports whether a badge is currently valid. Consumers call
// this before trusting a delivery.
func (o *SeededOracle) Outstanding(badge *Badge) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return badge != nil && o.live[badge.id]
}

// nextBatch advances the hash chain and returns batchBytes of output.
func (o *SeededOracle) nextBatch() []byte {
	out := make([]byte, 0, o.batchBytes)
	for len(out) < o.batchBytes {
		o.state = sha256.Sum256(o.state[:])
		out = append(out, o.state[:]...)
	}
	return out[:o.batchBytes]
}
