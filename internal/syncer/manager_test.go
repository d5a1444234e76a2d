package syncer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"threatsync-daemon/internal/config"
	"threatsync-daemon/internal/exchange"
	"threatsync-daemon/internal/signaltype"
)

// fakeSource plays back scripted deltas.
type fakeSource struct {
	deltas []exchange.Delta
	err    error
	pos    int
}

func (s *fakeSource) Next(ctx context.Context) bool {
	if s.pos >= len(s.deltas) {
		return false
	}
	s.pos++
	return true
}

func (s *fakeSource) Delta() exchange.Delta { return s.deltas[s.pos-1] }
func (s *fakeSource) Skipped() int          { return 0 }
func (s *fakeSource) Err() error {
	if s.pos >= len(s.deltas) {
		return s.err
	}
	return nil
}

type fakeExchange struct {
	source      *fakeSource
	gotCollab   exchange.CollabConfig
	gotStart    *exchange.Checkpoint
	fetchCalled bool
}

func (f *fakeExchange) FetchIter(signalTypes []signaltype.SignalType, collab exchange.CollabConfig, checkpoint *exchange.Checkpoint) DeltaSource {
	f.fetchCalled = true
	f.gotCollab = collab
	f.gotStart = checkpoint
	return f.source
}

type fakeStore struct {
	updates   map[exchange.UpdateKey]*exchange.IndicatorRecord
	projected map[signaltype.SignalType]map[string]*exchange.IndicatorRecord
	cleared   int
	saves     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{updates: make(map[exchange.UpdateKey]*exchange.IndicatorRecord)}
}

func (f *fakeStore) SaveUpdates(ctx context.Context, collab string, updates map[exchange.UpdateKey]*exchange.IndicatorRecord) error {
	f.saves++
	for key, record := range updates {
		if record == nil {
			delete(f.updates, key)
			continue
		}
		f.updates[key] = record
	}
	return nil
}

func (f *fakeStore) LoadUpdates(ctx context.Context, collab string) (map[exchange.UpdateKey]*exchange.IndicatorRecord, error) {
	out := make(map[exchange.UpdateKey]*exchange.IndicatorRecord, len(f.updates))
	for key, record := range f.updates {
		out[key] = record
	}
	return out, nil
}

func (f *fakeStore) ClearUpdates(ctx context.Context, collab string) error {
	f.cleared++
	f.updates = make(map[exchange.UpdateKey]*exchange.IndicatorRecord)
	return nil
}

func (f *fakeStore) ReplaceSignals(ctx context.Context, collab string, projected map[signaltype.SignalType]map[string]*exchange.IndicatorRecord) error {
	f.projected = projected
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Collaborations: []config.CollabConfig{
			{Name: "media-matching", PrivacyGroup: 42, Enabled: true},
		},
		Sync:  config.SyncConfig{IntervalSeconds: 300},
		State: config.StateConfig{Path: filepath.Join(t.TempDir(), "state.json")},
	}
}

func videoRecord(owner int64) *exchange.IndicatorRecord {
	return &exchange.IndicatorRecord{Opinions: []exchange.Opinion{{
		Owner:        owner,
		Category:     exchange.PositiveClass,
		Tags:         map[string]struct{}{"t1": {}},
		DescriptorID: owner * 100,
	}}}
}

func TestManagerSyncCycle(t *testing.T) {
	keyA := exchange.UpdateKey{Type: "HASH_VIDEO_MD5", Indicator: "aaa"}
	keyB := exchange.UpdateKey{Type: "HASH_VIDEO_MD5", Indicator: "bbb"}

	ex := &fakeExchange{source: &fakeSource{deltas: []exchange.Delta{
		{
			Updates:    map[exchange.UpdateKey]*exchange.IndicatorRecord{keyA: videoRecord(10)},
			Checkpoint: exchange.NewCheckpoint(5),
		},
		{
			// Deltas are cumulative over the batch.
			Updates: map[exchange.UpdateKey]*exchange.IndicatorRecord{
				keyA: videoRecord(10),
				keyB: videoRecord(20),
			},
			Checkpoint: exchange.NewCheckpoint(9),
		},
	}}}
	st := newFakeStore()
	cfg := testConfig(t)
	manager := NewManager(ex, st, cfg, []signaltype.SignalType{signaltype.VideoMD5{}})

	if err := manager.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce() error: %v", err)
	}

	if ex.gotCollab.PrivacyGroup != 42 {
		t.Errorf("privacy group = %d, want 42", ex.gotCollab.PrivacyGroup)
	}
	if ex.gotStart != nil {
		t.Errorf("first sync should start with no checkpoint, got %+v", ex.gotStart)
	}
	if st.saves != 2 {
		t.Errorf("SaveUpdates called %d times, want once per delta", st.saves)
	}
	if len(st.updates) != 2 {
		t.Errorf("store holds %d indicators, want 2", len(st.updates))
	}

	signals := st.projected[signaltype.VideoMD5{}]
	if len(signals) != 2 {
		t.Fatalf("projected %d signals, want 2", len(signals))
	}
	if signals["aaa"] == nil || signals["bbb"] == nil {
		t.Errorf("projection missing signals: %v", signals)
	}

	// The checkpoint must survive a restart.
	reloaded := NewState(cfg.State.Path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	cp := reloaded.Checkpoint("media-matching")
	if cp == nil {
		t.Fatal("checkpoint not persisted")
	}
	if cp.ProgressTimestamp() != 9 {
		t.Errorf("persisted watermark = %d, want 9", cp.ProgressTimestamp())
	}
}

func TestManagerResumesFromCheckpoint(t *testing.T) {
	cfg := testConfig(t)
	prior := exchange.Checkpoint{UpdateTime: 50, LastFetchTime: time.Now().Unix()}
	seed := NewState(cfg.State.Path)
	seed.SetCheckpoint("media-matching", prior)
	if err := seed.Save(); err != nil {
		t.Fatalf("seeding state: %v", err)
	}

	ex := &fakeExchange{source: &fakeSource{}}
	manager := NewManager(ex, newFakeStore(), cfg, []signaltype.SignalType{signaltype.VideoMD5{}})

	if err := manager.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce() error: %v", err)
	}
	if ex.gotStart == nil {
		t.Fatal("fresh checkpoint was not passed to the fetch")
	}
	if ex.gotStart.ProgressTimestamp() != 50 {
		t.Errorf("resume watermark = %d, want 50", ex.gotStart.ProgressTimestamp())
	}
}

func TestManagerStaleCheckpointForcesRefetch(t *testing.T) {
	cfg := testConfig(t)
	stale := exchange.Checkpoint{UpdateTime: 50, LastFetchTime: time.Now().Unix() - 90*24*3600}
	seed := NewState(cfg.State.Path)
	seed.SetCheckpoint("media-matching", stale)
	if err := seed.Save(); err != nil {
		t.Fatalf("seeding state: %v", err)
	}

	ex := &fakeExchange{source: &fakeSource{}}
	st := newFakeStore()
	manager := NewManager(ex, st, cfg, []signaltype.SignalType{signaltype.VideoMD5{}})

	if err := manager.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce() error: %v", err)
	}
	if ex.gotStart != nil {
		t.Errorf("stale checkpoint should be discarded, got %+v", ex.gotStart)
	}
	if st.cleared != 1 {
		t.Errorf("ClearUpdates called %d times, want 1", st.cleared)
	}
}

func TestManagerFetchErrorSurfaces(t *testing.T) {
	ex := &fakeExchange{source: &fakeSource{err: errors.New("boom")}}
	manager := NewManager(ex, newFakeStore(), testConfig(t), []signaltype.SignalType{signaltype.VideoMD5{}})

	if err := manager.SyncOnce(context.Background()); err == nil {
		t.Error("SyncOnce() should report failed collaborations")
	}
}

func TestManagerSkipsDisabledCollaborations(t *testing.T) {
	cfg := testConfig(t)
	cfg.Collaborations[0].Enabled = false

	ex := &fakeExchange{source: &fakeSource{}}
	manager := NewManager(ex, newFakeStore(), cfg, []signaltype.SignalType{signaltype.VideoMD5{}})

	if err := manager.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce() error: %v", err)
	}
	if ex.fetchCalled {
		t.Error("disabled collaboration was fetched")
	}
}
