package exchange

import "time"

// The remote retains threat_updates for 90 days. Refetch after 85 to keep
// a safety margin.
const staleAfter = 85 * 24 * 3600

// Checkpoint marks progress through a privacy group's threat_updates
// stream. A new checkpoint replaces the old one each delta cycle; there is
// no in-place mutation.
//
// If a client does not resume tailing the stream fast enough, the remote
// drops the deletion records needed to reconcile incrementally. A stale
// checkpoint must be discarded and the dataset refetched from scratch.
type Checkpoint struct {
	// UpdateTime is the highest update time observed so far, 0 if the
	// collaboration has never been fetched.
	UpdateTime int64 `json:"update_time"`
	// LastFetchTime is the wall-clock time this checkpoint was created.
	LastFetchTime int64 `json:"last_fetch_time"`
}

func NewCheckpoint(updateTime int64) Checkpoint {
	return Checkpoint{
		UpdateTime:    updateTime,
		LastFetchTime: time.Now().Unix(),
	}
}

// IsStale reports whether this checkpoint is too old to resume from.
// Staleness is advisory; enforcement is the caller's responsibility.
func (c Checkpoint) IsStale() bool {
	return time.Now().Unix()-c.LastFetchTime > staleAfter
}

// ProgressTimestamp returns the watermark to resume fetching from.
func (c Checkpoint) ProgressTimestamp() int64 {
	return c.UpdateTime
}
