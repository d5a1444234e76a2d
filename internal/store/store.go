// Package store persists fetched indicator records and projected signals
// in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"threatsync-daemon/internal/exchange"
	"threatsync-daemon/internal/signaltype"
)

// Store wraps the local database. Indicators hold the raw accumulated
// update map per collaboration (the fetch protocol's source of truth for
// reconciliation); signals hold the projected per-signal-type output the
// matching systems read.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (and if needed creates) the database at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open store database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS indicators (
		collab TEXT NOT NULL,
		type TEXT NOT NULL,
		indicator TEXT NOT NULL,
		opinions BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collab, type, indicator)
	);

	CREATE TABLE IF NOT EXISTS signals (
		collab TEXT NOT NULL,
		signal_type TEXT NOT NULL,
		signal TEXT NOT NULL,
		opinions BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collab, signal_type, signal)
	);

	CREATE INDEX IF NOT EXISTS idx_signals_type ON signals(signal_type);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// storedOpinion is the serialized row form of an exchange.Opinion.
type storedOpinion struct {
	Owner        int64    `json:"owner"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags,omitempty"`
	DescriptorID int64    `json:"descriptor_id"`
}

func encodeOpinions(record *exchange.IndicatorRecord) ([]byte, error) {
	rows := make([]storedOpinion, 0, len(record.Opinions))
	for _, op := range record.Opinions {
		tags := make([]string, 0, len(op.Tags))
		for tag := range op.Tags {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		rows = append(rows, storedOpinion{
			Owner:        op.Owner,
			Category:     op.Category.String(),
			Tags:         tags,
			DescriptorID: op.DescriptorID,
		})
	}
	return json.Marshal(rows)
}

func decodeOpinions(data []byte) (*exchange.IndicatorRecord, error) {
	var rows []storedOpinion
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	record := &exchange.IndicatorRecord{Opinions: make([]exchange.Opinion, 0, len(rows))}
	for _, row := range rows {
		category, err := exchange.ParseCategory(row.Category)
		if err != nil {
			return nil, err
		}
		tags := make(map[string]struct{}, len(row.Tags))
		for _, tag := range row.Tags {
			tags[tag] = struct{}{}
		}
		record.Opinions = append(record.Opinions, exchange.Opinion{
			Owner:        row.Owner,
			Category:     category,
			Tags:         tags,
			DescriptorID: row.DescriptorID,
		})
	}
	return record, nil
}

// SaveUpdates applies one delta's update map to the collaboration's
// accumulated indicators: non-nil records are upserted, nil records are
// deleted.
func (s *Store) SaveUpdates(ctx context.Context, collab string, updates map[exchange.UpdateKey]*exchange.IndicatorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO indicators (collab, type, indicator, opinions, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collab, type, indicator)
		DO UPDATE SET opinions = excluded.opinions, updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer upsert.Close()

	del, err := tx.PrepareContext(ctx, `DELETE FROM indicators WHERE collab = ? AND type = ? AND indicator = ?`)
	if err != nil {
		return err
	}
	defer del.Close()

	now := time.Now().UTC()
	for key, record := range updates {
		if record == nil {
			if _, err := del.ExecContext(ctx, collab, key.Type, key.Indicator); err != nil {
				return fmt.Errorf("failed to delete indicator %s/%s: %w", key.Type, key.Indicator, err)
			}
			continue
		}
		opinions, err := encodeOpinions(record)
		if err != nil {
			return fmt.Errorf("failed to encode indicator %s/%s: %w", key.Type, key.Indicator, err)
		}
		if _, err := upsert.ExecContext(ctx, collab, key.Type, key.Indicator, opinions, now); err != nil {
			return fmt.Errorf("failed to upsert indicator %s/%s: %w", key.Type, key.Indicator, err)
		}
	}

	return tx.Commit()
}

// LoadUpdates returns the collaboration's full accumulated update map.
func (s *Store) LoadUpdates(ctx context.Context, collab string) (map[exchange.UpdateKey]*exchange.IndicatorRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, indicator, opinions FROM indicators WHERE collab = ?`, collab)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	updates := make(map[exchange.UpdateKey]*exchange.IndicatorRecord)
	for rows.Next() {
		var key exchange.UpdateKey
		var opinions []byte
		if err := rows.Scan(&key.Type, &key.Indicator, &opinions); err != nil {
			return nil, err
		}
		record, err := decodeOpinions(opinions)
		if err != nil {
			return nil, fmt.Errorf("failed to decode indicator %s/%s: %w", key.Type, key.Indicator, err)
		}
		updates[key] = record
	}
	return updates, rows.Err()
}

// ClearUpdates drops the collaboration's accumulated indicators. Used
// before a full refetch after a stale checkpoint.
func (s *Store) ClearUpdates(ctx context.Context, collab string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM indicators WHERE collab = ?`, collab)
	return err
}

// ReplaceSignals swaps the collaboration's projected signals for the
// given projection in one transaction.
func (s *Store) ReplaceSignals(ctx context.Context, collab string, projected map[signaltype.SignalType]map[string]*exchange.IndicatorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM signals WHERE collab = ?`, collab); err != nil {
		return err
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO signals (collab, signal_type, signal, opinions, updated_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insert.Close()

	now := time.Now().UTC()
	for st, signals := range projected {
		for signal, record := range signals {
			opinions, err := encodeOpinions(record)
			if err != nil {
				return fmt.Errorf("failed to encode signal %s/%s: %w", st.Name(), signal, err)
			}
			if _, err := insert.ExecContext(ctx, collab, st.Name(), signal, opinions, now); err != nil {
				return fmt.Errorf("failed to insert signal %s/%s: %w", st.Name(), signal, err)
			}
		}
	}

	return tx.Commit()
}

// Signal is one projected signal row.
type Signal struct {
	Collab     string
	SignalType string
	Signal     string
	Record     *exchange.IndicatorRecord
}

// ListSignals returns projected signals, optionally filtered by
// collaboration and signal type. A limit of 0 means no limit.
func (s *Store) ListSignals(ctx context.Context, collab, signalType string, limit int) ([]Signal, error) {
	query := `SELECT collab, signal_type, signal, opinions FROM signals WHERE 1=1`
	var args []any
	if collab != "" {
		query += ` AND collab = ?`
		args = append(args, collab)
	}
	if signalType != "" {
		query += ` AND signal_type = ?`
		args = append(args, signalType)
	}
	query += ` ORDER BY collab, signal_type, signal`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []Signal
	for rows.Next() {
		var sig Signal
		var opinions []byte
		if err := rows.Scan(&sig.Collab, &sig.SignalType, &sig.Signal, &opinions); err != nil {
			return nil, err
		}
		sig.Record, err = decodeOpinions(opinions)
		if err != nil {
			return nil, fmt.Errorf("failed to decode signal %s/%s: %w", sig.SignalType, sig.Signal, err)
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// CountSignals returns per-signal-type signal counts for a collaboration.
func (s *Store) CountSignals(ctx context.Context, collab string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT signal_type, COUNT(*) FROM signals WHERE collab = ? GROUP BY signal_type`, collab)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var signalType string
		var count int
		if err := rows.Scan(&signalType, &count); err != nil {
			return nil, err
		}
		counts[signalType] = count
	}
	return counts, rows.Err()
}
