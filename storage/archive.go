// Package storage persists the activity feed beyond process restarts.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "modernc.org/sqlite"

	"veloracloud/events"
)

// Archive is a SQLite-backed event archive. The in-memory feed keeps only the
// newest entries; the archive keeps everything.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens (and if needed creates) the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	a := &Archive{db: db}
	if err := a.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) init() error {
	const schema = `CREATE TABLE IF NOT EXISTS activity (
        id TEXT PRIMARY KEY,
        type TEXT NOT NULL,
        title TEXT NOT NULL,
        message TEXT NOT NULL,
        tx_hash TEXT NOT NULL,
        block_number INTEGER NOT NULL,
        occurred_at TIMESTAMP NOT NULL,
        payload TEXT
    );`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("init archive schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Save stores one record. Replays of the same log overwrite the existing row.
func (a *Archive) Save(ctx context.Context, rec events.Record) error {
	const stmt = `INSERT OR REPLACE INTO activity(id, type, title, message, tx_hash, block_number, occurred_at, payload)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	var payload []byte
	if rec.Payload != nil {
		encoded, err := json.Marshal(rec.Payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		payload = encoded
	}
	_, err := a.db.ExecContext(ctx, stmt,
		rec.ID, string(rec.Type), rec.Title, rec.Message,
		rec.TxHash.Hex(), rec.BlockNumber, rec.Timestamp.UTC(), string(payload))
	if err != nil {
		return fmt.Errorf("save record %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]events.Record, error) {
	const query = `SELECT id, type, title, message, tx_hash, block_number, occurred_at, payload
        FROM activity ORDER BY block_number DESC, occurred_at DESC LIMIT ?`
	rows, err := a.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var out []events.Record
	for rows.Next() {
		var (
			rec        events.Record
			recType    string
			txHash     string
			occurredAt time.Time
			payload    sql.NullString
		)
		if err := rows.Scan(&rec.ID, &recType, &rec.Title, &rec.Message, &txHash, &rec.BlockNumber, &occurredAt, &payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Type = events.Type(recType)
		rec.TxHash = common.HexToHash(txHash)
		rec.Timestamp = occurredAt
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &rec.Payload); err != nil {
				return nil, fmt.Errorf("decode payload for %s: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountByType reports how many archived records exist per event type.
func (a *Archive) CountByType(ctx context.Context) (map[events.Type]int64, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM activity GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[events.Type]int64)
	for rows.Next() {
		var (
			recType string
			count   int64
		)
		if err := rows.Scan(&recType, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[events.Type(recType)] = count
	}
	return counts, rows.Err()
}
