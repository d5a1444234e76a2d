package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"threatsync-daemon/internal/config"
	"threatsync-daemon/internal/exchange"
	"threatsync-daemon/internal/metrics"
	"threatsync-daemon/internal/signaltype"
)

// DeltaSource yields successive deltas from an open fetch.
type DeltaSource interface {
	Next(ctx context.Context) bool
	Delta() exchange.Delta
	Skipped() int
	Err() error
}

// Exchange opens incremental fetches against the remote feed.
type Exchange interface {
	FetchIter(signalTypes []signaltype.SignalType, collab exchange.CollabConfig, checkpoint *exchange.Checkpoint) DeltaSource
}

// SignalStore persists accumulated updates and projected signals.
type SignalStore interface {
	SaveUpdates(ctx context.Context, collab string, updates map[exchange.UpdateKey]*exchange.IndicatorRecord) error
	LoadUpdates(ctx context.Context, collab string) (map[exchange.UpdateKey]*exchange.IndicatorRecord, error)
	ClearUpdates(ctx context.Context, collab string) error
	ReplaceSignals(ctx context.Context, collab string, projected map[signaltype.SignalType]map[string]*exchange.IndicatorRecord) error
}

// Manager drives sync cycles for every enabled collaboration.
type Manager struct {
	exchange    Exchange
	store       SignalStore
	state       *State
	cfg         *config.Config
	signalTypes []signaltype.SignalType
}

func NewManager(ex Exchange, store SignalStore, cfg *config.Config, signalTypes []signaltype.SignalType) *Manager {
	return &Manager{
		exchange:    ex,
		store:       store,
		state:       NewState(cfg.State.Path),
		cfg:         cfg,
		signalTypes: signalTypes,
	}
}

// State exposes the checkpoint state for CLI inspection.
func (m *Manager) State() *State {
	return m.state
}

// Run loads saved state and syncs on a ticker until the context is done.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.state.Load(); err != nil {
		log.Warn().Err(err).Msg("Failed to load state, starting fresh")
	}

	ticker := time.NewTicker(time.Duration(m.cfg.Sync.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	// Initial sync
	m.syncAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.syncAll(ctx)
		}
	}
}

// SyncOnce loads saved state and runs a single cycle over all enabled
// collaborations, returning an error if any of them failed.
func (m *Manager) SyncOnce(ctx context.Context) error {
	if err := m.state.Load(); err != nil {
		log.Warn().Err(err).Msg("Failed to load state, starting fresh")
	}
	failed := m.syncAll(ctx)
	if failed > 0 {
		return fmt.Errorf("%d collaboration(s) failed to sync", failed)
	}
	return nil
}

func (m *Manager) syncAll(ctx context.Context) int {
	failed := 0
	for _, collab := range m.cfg.Collaborations {
		if !collab.Enabled {
			continue
		}
		if err := m.syncCollab(ctx, collab); err != nil {
			metrics.FetchErrors.WithLabelValues(collab.Name).Inc()
			log.Error().Err(err).Str("collab", collab.Name).Msg("Sync failed")
			failed++
		}
	}
	return failed
}

func (m *Manager) syncCollab(ctx context.Context, collab config.CollabConfig) error {
	logger := log.With().
		Str("collab", collab.Name).
		Str("cycle", uuid.NewString()).
		Logger()

	checkpoint := m.state.Checkpoint(collab.Name)
	if checkpoint != nil && checkpoint.IsStale() {
		// The remote has dropped the deletion records we would need to
		// reconcile incrementally.
		logger.Warn().
			Int64("watermark", checkpoint.ProgressTimestamp()).
			Msg("Checkpoint is stale, refetching from scratch")
		if err := m.store.ClearUpdates(ctx, collab.Name); err != nil {
			return fmt.Errorf("failed to clear stale indicators: %w", err)
		}
		m.state.ClearCheckpoint(collab.Name)
		checkpoint = nil
	}

	it := m.exchange.FetchIter(m.signalTypes, exchange.CollabConfig{
		Name:         collab.Name,
		PrivacyGroup: collab.PrivacyGroup,
	}, checkpoint)

	deltas := 0
	var cycleUpdates map[exchange.UpdateKey]*exchange.IndicatorRecord
	for it.Next(ctx) {
		delta := it.Delta()
		cycleUpdates = delta.Updates

		if err := m.store.SaveUpdates(ctx, collab.Name, delta.Updates); err != nil {
			return fmt.Errorf("failed to save updates: %w", err)
		}
		m.state.SetCheckpoint(collab.Name, delta.Checkpoint)
		if err := m.state.Save(); err != nil {
			logger.Warn().Err(err).Msg("Failed to save state")
		}

		metrics.DeltasEmitted.WithLabelValues(collab.Name).Inc()
		deltas++
		m.logDelta(logger, delta, deltas)
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	if skipped := it.Skipped(); skipped > 0 {
		metrics.UpdatesSkipped.WithLabelValues(collab.Name).Add(float64(skipped))
	}
	metrics.BatchSize.WithLabelValues(collab.Name).Set(float64(len(cycleUpdates)))

	if deltas == 0 {
		logger.Info().Msg("No new updates")
		metrics.LastSyncTime.WithLabelValues(collab.Name).SetToCurrentTime()
		return nil
	}

	accumulated, err := m.store.LoadUpdates(ctx, collab.Name)
	if err != nil {
		return fmt.Errorf("failed to load accumulated updates: %w", err)
	}
	projected := exchange.ConvertToSignalTypes(m.signalTypes, accumulated)
	if err := m.store.ReplaceSignals(ctx, collab.Name, projected); err != nil {
		return fmt.Errorf("failed to store signals: %w", err)
	}

	total := 0
	for st, signals := range projected {
		metrics.SignalsStored.WithLabelValues(collab.Name, st.Name()).Set(float64(len(signals)))
		total += len(signals)
	}
	metrics.LastSyncTime.WithLabelValues(collab.Name).SetToCurrentTime()

	logger.Info().
		Int("deltas", deltas).
		Int("updates", len(accumulated)).
		Int("signals", total).
		Int("skipped", it.Skipped()).
		Msg("Sync cycle complete")
	return nil
}

func (m *Manager) logDelta(logger zerolog.Logger, delta exchange.Delta, n int) {
	logger.Debug().
		Int("delta", n).
		Int("updates", len(delta.Updates)).
		Int64("watermark", delta.Checkpoint.ProgressTimestamp()).
		Msg("Delta applied")
}
