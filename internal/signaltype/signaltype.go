// Package signaltype defines the internal signal families that fetched
// threat indicators are projected into.
package signaltype

import "sort"

// SignalType is one internal signal family, e.g. a hash algorithm.
type SignalType interface {
	Name() string
}

// IndicatorSource is the capability a SignalType implements when it can be
// populated from ThreatExchange threat indicators. Signal types without it
// are skipped during type resolution.
type IndicatorSource interface {
	SignalType

	// IndicatorAssociation declares which remote indicator types feed
	// this signal type.
	IndicatorAssociation() Association

	// NormalizeIndicator converts a raw (remote type, indicator, tag)
	// triple into this signal type's canonical signal string.
	NormalizeIndicator(remoteType, indicator, tag string) string
}

// TypeTag is one remote indicator type a signal type claims, optionally
// gated on a tag. An empty Tag means indicators of that type match
// unconditionally.
type TypeTag struct {
	Type string
	Tag  string
}

// Association is a signal type's full set of remote type claims,
// normalized to a single shape at declaration time.
type Association struct {
	pairs []TypeTag
}

// SingleType declares one remote type with no tag requirement.
func SingleType(remoteType string) Association {
	return Association{pairs: []TypeTag{{Type: remoteType}}}
}

// TypeSet declares several remote types, each with no tag requirement.
func TypeSet(remoteTypes ...string) Association {
	pairs := make([]TypeTag, 0, len(remoteTypes))
	for _, rt := range remoteTypes {
		pairs = append(pairs, TypeTag{Type: rt})
	}
	return Association{pairs: pairs}
}

// TypeTagMap declares remote type to tag requirements. An empty tag value
// means that type matches unconditionally. Pairs are ordered by type so
// the association is identical however the map literal was written.
func TypeTagMap(byType map[string]string) Association {
	types := make([]string, 0, len(byType))
	for rt := range byType {
		types = append(types, rt)
	}
	sort.Strings(types)
	pairs := make([]TypeTag, 0, len(types))
	for _, rt := range types {
		pairs = append(pairs, TypeTag{Type: rt, Tag: byType[rt]})
	}
	return Association{pairs: pairs}
}

// Pairs returns the normalized type/tag claims.
func (a Association) Pairs() []TypeTag {
	return a.pairs
}
