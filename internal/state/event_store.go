// ./internal/state/event_store.go
package state

import (
	"encoding/json"
	"fmt"

	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"

	"github.com/radixpump/pumpengine/internal/types"
)

// SaveEvent appends one pool event to the journal.
func SaveEvent(evt types.PoolEvent) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var amount, price *string
	if evt.Amount != nil {
		s := evt.Amount.String()
		amount = &s
	}
	if evt.Price != nil {
		s := evt.Price.String()
		price = &s
	}
	ids := make([]int64, 0, len(evt.Ids))
	for _, id := range evt.Ids {
		ids = append(ids, int64(id))
	}
	var partialID *int64
	if evt.PartialID != nil {
		v := int64(*evt.PartialID)
		partialID = &v
	}

	query := `
		INSERT INTO pool_events (
			asset, kind, operation, mode, amount, price, ids, partial_id, message, event_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING event_id;
	`

	var eventID int64
	err := DB.QueryRow(
		query,
		evt.Asset, evt.Kind, string(evt.Operation), evt.Mode,
		amount, price, pq.Array(ids), partialID, evt.Message, evt.Timestamp,
	).Scan(&eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to save pool event: %w", err)
	}
	return eventID, nil
}

// GetEventsForAsset returns the newest events of a pool, newest first.
func GetEventsForAsset(asset string, limit int) ([]types.PoolEvent, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT asset, kind, operation, mode, amount::TEXT, price::TEXT, ids, partial_id, message, event_timestamp
		FROM pool_events
		WHERE asset = $1
		ORDER BY event_timestamp DESC
		LIMIT $2;
	`
	rows, err := DB.Query(query, asset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pool events: %w", err)
	}
	defer rows.Close()

	var events []types.PoolEvent
	for rows.Next() {
		var evt types.PoolEvent
		var operation, mode, message *string
		var amount, price *string
		var ids pq.Int64Array
		var partialID *int64
		if err := rows.Scan(&evt.Asset, &evt.Kind, &operation, &mode, &amount, &price, &ids, &partialID, &message, &evt.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan pool event: %w", err)
		}
		if partialID != nil {
			v := uint64(*partialID)
			evt.PartialID = &v
		}
		if operation != nil {
			evt.Operation = types.Operation(*operation)
		}
		if mode != nil {
			evt.Mode = *mode
		}
		if message != nil {
			evt.Message = *message
		}
		if amount != nil {
			d, err := parseDec(*amount)
			if err != nil {
				return nil, err
			}
			evt.Amount = &d
		}
		if price != nil {
			d, err := parseDec(*price)
			if err != nil {
				return nil, err
			}
			evt.Price = &d
		}
		for _, id := range ids {
			evt.Ids = append(evt.Ids, uint64(id))
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// SavePoolSnapshot persists one pool info snapshot as JSONB.
func SavePoolSnapshot(info types.PoolInfo) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	infoJSON, err := json.Marshal(info)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal pool info: %w", err)
	}

	query := `
		INSERT INTO pool_snapshots (asset, info)
		VALUES ($1, $2)
		RETURNING snapshot_id;
	`
	var snapshotID int64
	err = DB.QueryRow(query, info.Asset, infoJSON).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("failed to save pool snapshot: %w", err)
	}

	log.Debug().
		Int64("snapshot_id", snapshotID).
		Str("asset", info.Asset).
		Msg("Pool snapshot saved to database")
	return snapshotID, nil
}

// GetLatestPoolSnapshot returns the most recent stored snapshot of a pool.
func GetLatestPoolSnapshot(asset string) (types.PoolInfo, error) {
	if DB == nil {
		return types.PoolInfo{}, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT info
		FROM pool_snapshots
		WHERE asset = $1
		ORDER BY snapshot_timestamp DESC
		LIMIT 1;
	`
	var infoJSON []byte
	if err := DB.QueryRow(query, asset).Scan(&infoJSON); err != nil {
		return types.PoolInfo{}, fmt.Errorf("failed to load pool snapshot: %w", err)
	}
	var info types.PoolInfo
	if err := json.Unmarshal(infoJSON, &info); err != nil {
		return types.PoolInfo{}, fmt.Errorf("failed to unmarshal pool snapshot: %w", err)
	}
	return info, nil
}
