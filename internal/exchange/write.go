package exchange

import (
	"context"
	"errors"
	"fmt"

	"threatsync-daemon/internal/signaltype"
)

// ErrNotImplemented marks write-path operations the Graph API supports
// but this daemon does not submit yet. They fail loudly rather than
// silently dropping the report.
var ErrNotImplemented = errors.New("not implemented")

// ResolveOwner looks up the display name for an owner id.
func (a *API) ResolveOwner(ctx context.Context, id int64) (string, error) {
	return "", fmt.Errorf("resolve owner %d: %w", id, ErrNotImplemented)
}

// OwnerID returns the id this daemon reports opinions under, derived from
// the configured app token.
func (a *API) OwnerID() (int64, error) {
	return a.client.AppID()
}

// ReportSeen tells the collaboration that this signal was matched to
// content on our platform.
func (a *API) ReportSeen(ctx context.Context, collab CollabConfig, st signaltype.SignalType, signal string, record *IndicatorRecord) error {
	return fmt.Errorf("report seen %s/%s: %w", st.Name(), signal, ErrNotImplemented)
}

// ReportOpinion submits an opinion about a signal to the collaboration.
func (a *API) ReportOpinion(ctx context.Context, collab CollabConfig, st signaltype.SignalType, signal string, opinion Opinion) error {
	return fmt.Errorf("report opinion %s/%s: %w", st.Name(), signal, ErrNotImplemented)
}

// ReportTruePositive reports that a review confirmed the signal.
func (a *API) ReportTruePositive(ctx context.Context, collab CollabConfig, st signaltype.SignalType, signal string) error {
	owner, err := a.OwnerID()
	if err != nil {
		return err
	}
	return a.ReportOpinion(ctx, collab, st, signal, Opinion{
		Owner:    owner,
		Category: PositiveClass,
		Tags:     map[string]struct{}{},
	})
}

// ReportFalsePositive reports that a review rejected the signal.
func (a *API) ReportFalsePositive(ctx context.Context, collab CollabConfig, st signaltype.SignalType, signal string) error {
	owner, err := a.OwnerID()
	if err != nil {
		return err
	}
	return a.ReportOpinion(ctx, collab, st, signal, Opinion{
		Owner:    owner,
		Category: NegativeClass,
		Tags:     map[string]struct{}{},
	})
}
