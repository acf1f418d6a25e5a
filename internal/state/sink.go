// ./internal/state/sink.go
package state

import (
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/radixpump/pumpengine/internal/logger"
	"github.com/radixpump/pumpengine/internal/types"
)

// JournalSink persists every emitted event to the pool_events table. A
// persistence failure is logged and swallowed; the journal is an audit trail,
// not part of transaction semantics.
type JournalSink struct {
	log zerolog.Logger
}

// NewJournalSink creates a database-backed event sink.
func NewJournalSink() *JournalSink {
	return &JournalSink{log: logger.GetForComponent("event_journal")}
}

// Emit implements types.EventSink.
func (s *JournalSink) Emit(evt types.PoolEvent) {
	if _, err := SaveEvent(evt); err != nil {
		s.log.Error().Err(err).Str("asset", evt.Asset).Str("kind", evt.Kind).Msg("Failed to journal pool event")
	}
}

// parseDec converts a NUMERIC column's text form back to a LegacyDec,
// trimming the padding Postgres adds beyond LegacyDec precision.
func parseDec(s string) (sdkmath.LegacyDec, error) {
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		maxLen := dot + 1 + sdkmath.LegacyPrecision
		if len(s) > maxLen {
			s = s[:maxLen]
		}
	}
	d, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("failed to parse decimal %q: %w", s, err)
	}
	return d, nil
}
