package exchange

import (
	"sort"
	"strings"

	"threatsync-daemon/internal/signaltype"
)

// ConvertToSignalTypes projects accumulated updates into per-signal-type
// signal strings. The input is typically the union of all deltas seen so
// far, most recent record per key; nil records are skipped.
//
// Remote records of equivalent types can normalize to the same signal
// string, in which case their opinions are concatenated onto one record.
// Input keys are visited in sorted order so the concatenation is
// deterministic.
func ConvertToSignalTypes(
	signalTypes []signaltype.SignalType,
	fetched map[UpdateKey]*IndicatorRecord,
) map[signaltype.SignalType]map[string]*IndicatorRecord {
	ret := make(map[signaltype.SignalType]map[string]*IndicatorRecord)
	mapping := makeIndicatorTypeMapping(signalTypes)

	keys := make([]UpdateKey, 0, len(fetched))
	for key := range fetched {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].Indicator < keys[j].Indicator
	})

	for _, key := range keys {
		record := fetched[key]
		byTag := mapping[key.Type]
		if byTag == nil || record == nil {
			continue
		}
		tags := make([]string, 0, len(byTag))
		for tag := range byTag {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		for _, tag := range tags {
			for _, src := range byTag[tag] {
				signal := src.NormalizeIndicator(key.Type, key.Indicator, tag)
				inner := ret[src]
				if inner == nil {
					inner = make(map[string]*IndicatorRecord)
					ret[src] = inner
				}
				toInsert := mergeRecordForSignalType(record, tag, inner[signal])
				if toInsert != nil {
					inner[signal] = toInsert
				}
			}
		}
	}
	return ret
}

// mergeRecordForSignalType filters the record's opinions down to those
// applicable under the candidate tag, then either merges into the
// existing record for the signal (returning nil) or returns the record to
// insert. Returns nil with no merge when no opinion survives the filter.
//
// An opinion applies when one of its tags occurs as a substring of the
// candidate tag. The substring semantics are historical; exact set
// membership is deliberately not enforced.
func mergeRecordForSignalType(record *IndicatorRecord, tag string, existing *IndicatorRecord) *IndicatorRecord {
	if tag != "" {
		var applicable []Opinion
		for _, opinion := range record.Opinions {
			for opinionTag := range opinion.Tags {
				if strings.Contains(tag, opinionTag) {
					applicable = append(applicable, opinion)
					break
				}
			}
		}
		if len(applicable) == 0 {
			return nil
		}
		if len(applicable) != len(record.Opinions) {
			record = &IndicatorRecord{Opinions: applicable}
		}
	}
	if existing != nil {
		existing.Merge(record)
		return nil
	}
	return record
}
