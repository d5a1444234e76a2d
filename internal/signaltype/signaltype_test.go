package signaltype

import (
	"reflect"
	"testing"
)

func TestTypeTagMapNormalizedOrder(t *testing.T) {
	a := TypeTagMap(map[string]string{
		"HASH_VIDEO_MD5": "",
		"HASH_MD5":       "media_type_video",
	})
	want := []TypeTag{
		{Type: "HASH_MD5", Tag: "media_type_video"},
		{Type: "HASH_VIDEO_MD5", Tag: ""},
	}
	if !reflect.DeepEqual(a.Pairs(), want) {
		t.Errorf("Pairs() = %v, want %v", a.Pairs(), want)
	}
}

func TestSingleTypeAndTypeSet(t *testing.T) {
	single := SingleType("HASH_PDQ")
	if !reflect.DeepEqual(single.Pairs(), []TypeTag{{Type: "HASH_PDQ"}}) {
		t.Errorf("SingleType pairs = %v", single.Pairs())
	}

	set := TypeSet("URI", "RAW_URI")
	want := []TypeTag{{Type: "URI"}, {Type: "RAW_URI"}}
	if !reflect.DeepEqual(set.Pairs(), want) {
		t.Errorf("TypeSet pairs = %v, want %v", set.Pairs(), want)
	}
}

func TestByName(t *testing.T) {
	types, err := ByName([]string{"video_md5", "url"})
	if err != nil {
		t.Fatalf("ByName() error: %v", err)
	}
	if len(types) != 2 || types[0].Name() != "video_md5" || types[1].Name() != "url" {
		t.Errorf("ByName() = %v", types)
	}

	if _, err := ByName([]string{"bogus"}); err == nil {
		t.Error("expected error for unknown signal type")
	}

	all, err := ByName(nil)
	if err != nil {
		t.Fatalf("ByName(nil) error: %v", err)
	}
	if len(all) != len(All()) {
		t.Errorf("ByName(nil) returned %d types, want all %d", len(all), len(All()))
	}
}

func TestNormalizeIndicator(t *testing.T) {
	if got := (VideoMD5{}).NormalizeIndicator("HASH_VIDEO_MD5", "  ABC123 ", ""); got != "abc123" {
		t.Errorf("VideoMD5 normalize = %q, want abc123", got)
	}
	// URLs keep their case.
	if got := (URL{}).NormalizeIndicator("URI", " https://example.com/A ", ""); got != "https://example.com/A" {
		t.Errorf("URL normalize = %q", got)
	}
}

func TestAllImplementIndicatorSource(t *testing.T) {
	for _, st := range All() {
		if _, ok := st.(IndicatorSource); !ok {
			t.Errorf("%s does not declare an indicator association", st.Name())
		}
	}
}
