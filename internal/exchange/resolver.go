package exchange

import (
	"threatsync-daemon/internal/graph"
	"threatsync-daemon/internal/signaltype"
)

// typeTagMapping resolves remote indicator types to the signal types that
// claim them: remote type -> tag ("" when no tag is required) -> sources.
//
// For example, with the video MD5 type registered:
//
//	{
//	    "HASH_VIDEO_MD5": {"": [VideoMD5]},
//	    "HASH_MD5":       {"media_type_video": [VideoMD5]},
//	}
type typeTagMapping map[string]map[string][]signaltype.IndicatorSource

// makeIndicatorTypeMapping builds the resolver from the supported signal
// types. Signal types that are not indicator sources are skipped.
// Construction is pure; rebuilding for the same input yields an equal map.
func makeIndicatorTypeMapping(signalTypes []signaltype.SignalType) typeTagMapping {
	mapping := make(typeTagMapping)
	for _, st := range signalTypes {
		src, ok := st.(signaltype.IndicatorSource)
		if !ok {
			continue
		}
		for _, pair := range src.IndicatorAssociation().Pairs() {
			byTag := mapping[pair.Type]
			if byTag == nil {
				byTag = make(map[string][]signaltype.IndicatorSource)
				mapping[pair.Type] = byTag
			}
			byTag[pair.Tag] = append(byTag[pair.Tag], src)
		}
	}
	return mapping
}

// indicatorApplies parses the update and returns its record when some
// supported signal type could claim it: the remote type must be in the
// mapping, and either an untagged entry exists or one of the record's
// opinion tags exactly matches a tagged entry. Returns nil for updates
// that no signal type wants.
func indicatorApplies(u *graph.ThreatUpdate, mapping typeTagMapping) (*IndicatorRecord, error) {
	byTag := mapping[u.Type]
	if byTag == nil {
		return nil, nil
	}
	record, err := RecordFromUpdate(u)
	if err != nil || record == nil {
		return nil, err
	}
	if _, ok := byTag[""]; ok {
		return record, nil
	}
	for _, opinion := range record.Opinions {
		for tag := range opinion.Tags {
			if _, ok := byTag[tag]; ok {
				return record, nil
			}
		}
	}
	return nil, nil
}
