package exchange

import (
	"reflect"
	"testing"

	"threatsync-daemon/internal/signaltype"
)

// plainType has no indicator association and must be skipped by the
// resolver.
type plainType struct{}

func (plainType) Name() string { return "plain" }

func TestMakeIndicatorTypeMappingShapes(t *testing.T) {
	mapping := makeIndicatorTypeMapping([]signaltype.SignalType{
		signaltype.VideoMD5{},
		signaltype.URL{},
		plainType{},
	})

	byTag, ok := mapping["HASH_VIDEO_MD5"]
	if !ok {
		t.Fatal("HASH_VIDEO_MD5 missing from mapping")
	}
	if len(byTag[""]) != 1 {
		t.Errorf("HASH_VIDEO_MD5 untagged entry has %d sources, want 1", len(byTag[""]))
	}

	byTag, ok = mapping["HASH_MD5"]
	if !ok {
		t.Fatal("HASH_MD5 missing from mapping")
	}
	if _, ok := byTag[""]; ok {
		t.Error("HASH_MD5 should have no untagged entry")
	}
	if len(byTag["media_type_video"]) != 1 {
		t.Errorf("HASH_MD5/media_type_video has %d sources, want 1", len(byTag["media_type_video"]))
	}

	for _, remoteType := range []string{"URI", "RAW_URI", "UNCLICKABLE_URL"} {
		if len(mapping[remoteType][""]) != 1 {
			t.Errorf("%s untagged entry has %d sources, want 1", remoteType, len(mapping[remoteType][""]))
		}
	}

	if _, ok := mapping["plain"]; ok {
		t.Error("signal type without the capability leaked into the mapping")
	}
}

func TestMakeIndicatorTypeMappingIdempotent(t *testing.T) {
	types := []signaltype.SignalType{signaltype.VideoMD5{}, signaltype.PhotoPDQ{}}
	a := makeIndicatorTypeMapping(types)
	b := makeIndicatorTypeMapping(types)
	if !reflect.DeepEqual(a, b) {
		t.Error("rebuilding the mapping for the same input produced a different map")
	}
}

func TestIndicatorAppliesWildcard(t *testing.T) {
	mapping := makeIndicatorTypeMapping([]signaltype.SignalType{signaltype.VideoMD5{}})

	// Untagged entry: matches regardless of tags.
	u := update(descriptor("1", "10", "MALICIOUS", "whatever"))
	record, err := indicatorApplies(u, mapping)
	if err != nil {
		t.Fatalf("indicatorApplies() error: %v", err)
	}
	if record == nil {
		t.Fatal("HASH_VIDEO_MD5 update should match the untagged entry")
	}
}

func TestIndicatorAppliesTagged(t *testing.T) {
	mapping := makeIndicatorTypeMapping([]signaltype.SignalType{signaltype.VideoMD5{}})

	tagged := update(descriptor("1", "10", "MALICIOUS", "media_type_video"))
	tagged.Type = "HASH_MD5"
	record, err := indicatorApplies(tagged, mapping)
	if err != nil {
		t.Fatalf("indicatorApplies() error: %v", err)
	}
	if record == nil {
		t.Error("HASH_MD5 update carrying the required tag should match")
	}

	untagged := update(descriptor("1", "10", "MALICIOUS", "something_else"))
	untagged.Type = "HASH_MD5"
	record, err = indicatorApplies(untagged, mapping)
	if err != nil {
		t.Fatalf("indicatorApplies() error: %v", err)
	}
	if record != nil {
		t.Error("HASH_MD5 update without the required tag should not match")
	}
}

func TestIndicatorAppliesUnknownType(t *testing.T) {
	mapping := makeIndicatorTypeMapping([]signaltype.SignalType{signaltype.VideoMD5{}})

	u := update(descriptor("1", "10", "MALICIOUS"))
	u.Type = "DEBUG_STRING"
	record, err := indicatorApplies(u, mapping)
	if err != nil {
		t.Fatalf("indicatorApplies() error: %v", err)
	}
	if record != nil {
		t.Error("unknown remote type should not match")
	}
}

func TestIndicatorAppliesEmptyRecord(t *testing.T) {
	mapping := makeIndicatorTypeMapping([]signaltype.SignalType{signaltype.VideoMD5{}})

	record, err := indicatorApplies(update(), mapping)
	if err != nil {
		t.Fatalf("indicatorApplies() error: %v", err)
	}
	if record != nil {
		t.Error("update with no opinions should yield no record")
	}
}
