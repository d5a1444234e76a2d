package signaltype

import (
	"fmt"
	"strings"
)

// VideoMD5 matches MD5 hashes of video files. ThreatExchange records these
// both as a dedicated indicator type and as generic MD5s tagged with the
// video media type.
type VideoMD5 struct{}

func (VideoMD5) Name() string { return "video_md5" }

func (VideoMD5) IndicatorAssociation() Association {
	return TypeTagMap(map[string]string{
		"HASH_VIDEO_MD5": "",
		"HASH_MD5":       "media_type_video",
	})
}

func (VideoMD5) NormalizeIndicator(_, indicator, _ string) string {
	return strings.ToLower(strings.TrimSpace(indicator))
}

// PhotoMD5 matches MD5 hashes of photos.
type PhotoMD5 struct{}

func (PhotoMD5) Name() string { return "photo_md5" }

func (PhotoMD5) IndicatorAssociation() Association {
	return TypeTagMap(map[string]string{
		"HASH_PHOTO_MD5": "",
		"HASH_MD5":       "media_type_photo",
	})
}

func (PhotoMD5) NormalizeIndicator(_, indicator, _ string) string {
	return strings.ToLower(strings.TrimSpace(indicator))
}

// PhotoPDQ matches PDQ perceptual hashes.
type PhotoPDQ struct{}

func (PhotoPDQ) Name() string { return "pdq" }

func (PhotoPDQ) IndicatorAssociation() Association {
	return SingleType("HASH_PDQ")
}

func (PhotoPDQ) NormalizeIndicator(_, indicator, _ string) string {
	return strings.ToLower(strings.TrimSpace(indicator))
}

// URL matches shared URLs. ThreatExchange stores equivalent records under
// several indicator types, so distinct remote records regularly collapse
// onto the same signal string.
type URL struct{}

func (URL) Name() string { return "url" }

func (URL) IndicatorAssociation() Association {
	return TypeSet("URI", "RAW_URI", "UNCLICKABLE_URL")
}

func (URL) NormalizeIndicator(_, indicator, _ string) string {
	return strings.TrimSpace(indicator)
}

// All returns every registered signal type, in a stable order.
func All() []SignalType {
	return []SignalType{VideoMD5{}, PhotoMD5{}, PhotoPDQ{}, URL{}}
}

// ByName resolves config names to signal types. An empty list selects
// every registered type.
func ByName(names []string) ([]SignalType, error) {
	if len(names) == 0 {
		return All(), nil
	}
	byName := make(map[string]SignalType)
	for _, st := range All() {
		byName[st.Name()] = st
	}
	types := make([]SignalType, 0, len(names))
	for _, name := range names {
		st, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown signal type %q", name)
		}
		types = append(types, st)
	}
	return types, nil
}
