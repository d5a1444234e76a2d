package exchange

import (
	"context"

	"github.com/rs/zerolog/log"

	"threatsync-daemon/internal/graph"
	"threatsync-daemon/internal/signaltype"
)

const defaultPageSize = 100

// threatUpdatesFields is the field projection requested from the remote.
var threatUpdatesFields = []string{
	"indicator",
	"type",
	"last_updated",
	"should_delete",
	"descriptors{id,reactions,owner{id},tags,status}",
}

// CollabConfig identifies one collaboration to fetch.
type CollabConfig struct {
	Name         string
	PrivacyGroup int64
}

// UpdateKey identifies an indicator by its remote type and value.
type UpdateKey struct {
	Type      string
	Indicator string
}

// Delta is one incremental unit of sync output. A nil record value means
// the indicator was deleted or is irrelevant to the supported signal
// types; the key is kept so consumers can drop their copy.
type Delta struct {
	Updates    map[UpdateKey]*IndicatorRecord
	Checkpoint Checkpoint
}

// Pager yields successive pages of raw threat updates. A nil page with a
// nil error means the pager is exhausted.
type Pager interface {
	Next(ctx context.Context) ([]graph.ThreatUpdate, error)
}

// API drives fetching against the ThreatExchange Graph API.
type API struct {
	client   *graph.Client
	pageSize int
}

func NewAPI(client *graph.Client) *API {
	return &API{client: client, pageSize: defaultPageSize}
}

// SetPageSize overrides how many updates are requested per page. Values
// below 1 keep the default.
func (a *API) SetPageSize(n int) {
	if n > 0 {
		a.pageSize = n
	}
}

// FetchIter opens an incremental fetch of the collaboration. A nil
// checkpoint fetches the whole dataset; otherwise fetching resumes from
// the checkpoint's watermark. The iterator is lazy: each Next call pulls
// one page from the remote.
func (a *API) FetchIter(signalTypes []signaltype.SignalType, collab CollabConfig, checkpoint *Checkpoint) *DeltaIter {
	var startTime *int64
	watermark := int64(0)
	if checkpoint != nil {
		watermark = checkpoint.ProgressTimestamp()
		startTime = &watermark
	}
	pager := a.client.ThreatUpdates(collab.PrivacyGroup, startTime, a.pageSize, threatUpdatesFields)
	return newDeltaIter(pager, signalTypes, watermark)
}

func newDeltaIter(pager Pager, signalTypes []signaltype.SignalType, watermark int64) *DeltaIter {
	return &DeltaIter{
		pager:   pager,
		mapping: makeIndicatorTypeMapping(signalTypes),
		updates: make(map[UpdateKey]*IndicatorRecord),
		highest: watermark,
	}
}

// DeltaIter yields one Delta per fetched page, in the database/sql rows
// idiom: Next, Delta, then Err once Next returns false.
//
// The accumulated map grows for the lifetime of the iterator because
// every emitted delta covers all updates seen so far, not just the
// newest page. Memory is therefore linear in the number of updates in
// the requested time range; that is this protocol's resource contract.
type DeltaIter struct {
	pager   Pager
	mapping typeTagMapping

	// updates is the accumulated batch, one parsed record (or nil) per
	// key. Updates are parsed exactly once, when their page arrives.
	updates map[UpdateKey]*IndicatorRecord
	// highest starts at the resumed checkpoint's watermark so an empty
	// page can never emit a checkpoint behind the one already stored.
	highest int64

	delta   Delta
	skipped int
	err     error
	done    bool
}

// Next pulls one page, folds it into the accumulated batch, and emits a
// delta covering the whole batch. Returns false when the pager is
// exhausted or fails.
func (it *DeltaIter) Next(ctx context.Context) bool {
	if it.done || it.err != nil {
		return false
	}
	page, err := it.pager.Next(ctx)
	if err != nil {
		it.err = err
		return false
	}
	if page == nil {
		it.done = true
		return false
	}

	for i := range page {
		u := &page[i]
		// The remote promises non-decreasing delivery; take the running
		// max anyway.
		if u.LastUpdated > it.highest {
			it.highest = u.LastUpdated
		}
		record, err := indicatorApplies(u, it.mapping)
		if err != nil {
			// A malformed update is skipped rather than aborting the
			// whole fetch. Its key still maps to no record, so
			// consumers drop whatever they hold for it.
			log.Warn().
				Err(err).
				Str("type", u.Type).
				Str("indicator", u.Indicator).
				Msg("Skipping unparseable update")
			it.skipped++
			record = nil
		}
		it.updates[UpdateKey{Type: u.Type, Indicator: u.Indicator}] = record
	}

	snapshot := make(map[UpdateKey]*IndicatorRecord, len(it.updates))
	for key, record := range it.updates {
		snapshot[key] = record
	}
	it.delta = Delta{
		Updates:    snapshot,
		Checkpoint: NewCheckpoint(it.highest),
	}
	return true
}

// Delta returns the delta produced by the last successful Next.
func (it *DeltaIter) Delta() Delta {
	return it.delta
}

// Skipped returns how many updates failed to parse and were dropped.
func (it *DeltaIter) Skipped() int {
	return it.skipped
}

// Err returns the first transport error, if any. Transport errors are not
// retried here; the caller decides whether to abort or resume from the
// last emitted checkpoint.
func (it *DeltaIter) Err() error {
	return it.err
}
