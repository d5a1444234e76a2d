package exchange

import (
	"fmt"
	"strconv"

	"threatsync-daemon/internal/graph"
)

// Category is the stance an opinion takes on an indicator.
type Category int

const (
	// InvestigationSeed means the indicator is unresolved and shared as
	// a lead rather than a verdict.
	InvestigationSeed Category = iota
	// PositiveClass means the owner considers the indicator malicious.
	PositiveClass
	// NegativeClass means the owner considers it non-malicious.
	NegativeClass
)

func (c Category) String() string {
	switch c {
	case PositiveClass:
		return "positive"
	case NegativeClass:
		return "negative"
	default:
		return "investigation_seed"
	}
}

// ParseCategory is the inverse of Category.String.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "positive":
		return PositiveClass, nil
	case "negative":
		return NegativeClass, nil
	case "investigation_seed":
		return InvestigationSeed, nil
	}
	return InvestigationSeed, fmt.Errorf("unknown opinion category %q", s)
}

// ReactionDescriptorID marks opinions synthesized from reactions rather
// than explicit descriptors.
const ReactionDescriptorID int64 = -1

// Opinion is the normalized form of one owner's stance on an indicator.
type Opinion struct {
	Owner        int64
	Category     Category
	Tags         map[string]struct{}
	DescriptorID int64
}

// IndicatorRecord holds every opinion parsed from one remote indicator.
// Opinion order is parse order; it carries no meaning beyond stable
// iteration.
type IndicatorRecord struct {
	Opinions []Opinion
}

// Merge folds another record's opinions into this one. Needed when
// multiple remote records of equivalent types (URI, RAW_URI,
// UNCLICKABLE_URL) collapse onto the same signal. Opinions are
// concatenated as-is; callers needing per-owner dedup do it themselves.
func (r *IndicatorRecord) Merge(other *IndicatorRecord) {
	r.Opinions = append(r.Opinions, other.Opinions...)
}

// RecordFromUpdate parses a raw threat update into an indicator record.
//
// Explicit descriptor opinions always win over reaction-derived ones for
// the same owner. Among reactions, HELPFUL always records a positive
// stance while DISAGREE_WITH_TAGS only records a negative one for owners
// with no implicit stance yet.
//
// Returns nil for deletes and for updates whose descriptors yield no
// opinions (a visibility quirk on the remote API; treated as absent).
func RecordFromUpdate(u *graph.ThreatUpdate) (*IndicatorRecord, error) {
	if u.ShouldDelete {
		return nil, nil
	}

	var (
		order         []int64
		explicit      = make(map[int64]Opinion)
		implicitOrder []int64
		implicit      = make(map[int64]Category)
	)

	for _, d := range u.Descriptors.Data {
		descID, err := strconv.ParseInt(d.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("descriptor id %q: %w", d.ID, err)
		}
		ownerID, err := strconv.ParseInt(d.Owner.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("descriptor %d owner id %q: %w", descID, d.Owner.ID, err)
		}

		category := InvestigationSeed
		switch d.Status {
		case "MALICIOUS":
			category = PositiveClass
		case "NON_MALICIOUS":
			category = NegativeClass
		}

		tags := make(map[string]struct{}, len(d.Tags))
		for _, tag := range d.Tags {
			tags[tag] = struct{}{}
		}

		if _, seen := explicit[ownerID]; !seen {
			order = append(order, ownerID)
		}
		explicit[ownerID] = Opinion{
			Owner:        ownerID,
			Category:     category,
			Tags:         tags,
			DescriptorID: descID,
		}

		for _, reaction := range d.Reactions {
			owner, err := strconv.ParseInt(reaction.Value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("reaction owner %q: %w", reaction.Value, err)
			}
			switch reaction.Key {
			case "HELPFUL":
				if _, seen := implicit[owner]; !seen {
					implicitOrder = append(implicitOrder, owner)
				}
				implicit[owner] = PositiveClass
			case "DISAGREE_WITH_TAGS":
				if _, seen := implicit[owner]; !seen {
					implicitOrder = append(implicitOrder, owner)
					implicit[owner] = NegativeClass
				}
			}
		}
	}

	for _, owner := range implicitOrder {
		if _, ok := explicit[owner]; ok {
			continue
		}
		order = append(order, owner)
		explicit[owner] = Opinion{
			Owner:        owner,
			Category:     implicit[owner],
			Tags:         map[string]struct{}{},
			DescriptorID: ReactionDescriptorID,
		}
	}

	if len(order) == 0 {
		return nil, nil
	}

	opinions := make([]Opinion, 0, len(order))
	for _, owner := range order {
		opinions = append(opinions, explicit[owner])
	}
	return &IndicatorRecord{Opinions: opinions}, nil
}
