package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ThreatUpdate is one decoded record from the /threat_updates endpoint.
type ThreatUpdate struct {
	Indicator    string         `json:"indicator"`
	Type         string         `json:"type"`
	LastUpdated  int64          `json:"last_updated"`
	ShouldDelete bool           `json:"should_delete"`
	Descriptors  DescriptorPage `json:"descriptors"`
}

// DescriptorPage is the nested descriptor listing attached to an update.
type DescriptorPage struct {
	Data []Descriptor `json:"data"`
}

// Descriptor is one owner's assertion about an indicator. The Graph API
// serializes ids as strings.
type Descriptor struct {
	ID        string     `json:"id"`
	Owner     Owner      `json:"owner"`
	Status    string     `json:"status"`
	Tags      TagList    `json:"tags"`
	Reactions []Reaction `json:"reactions"`
}

type Owner struct {
	ID string `json:"id"`
}

// Reaction carries an implicit stance: Key is the reaction kind, Value
// the id of the owner who reacted.
type Reaction struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TagList accepts both shapes the API produces: a plain array of strings,
// or the nested paginated form {"data": [{"text": ...}]}. The nested form
// is flattened to its sorted text values.
type TagList []string

func (t *TagList) UnmarshalJSON(b []byte) error {
	var plain []string
	if err := json.Unmarshal(b, &plain); err == nil {
		*t = plain
		return nil
	}
	var nested struct {
		Data []struct {
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &nested); err != nil {
		return fmt.Errorf("tags are neither a list nor a paginated object: %w", err)
	}
	tags := make([]string, 0, len(nested.Data))
	for _, tag := range nested.Data {
		tags = append(tags, tag.Text)
	}
	sort.Strings(tags)
	*t = tags
	return nil
}

// ThreatUpdates opens a paginated cursor over the privacy group's
// /threat_updates collection. A nil startTime fetches from the beginning
// of the remote's retention window.
func (c *Client) ThreatUpdates(privacyGroup int64, startTime *int64, pageSize int, fields []string) *UpdatesCursor {
	q := url.Values{}
	if startTime != nil {
		q.Set("start_time", strconv.FormatInt(*startTime, 10))
	}
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("fields", strings.Join(fields, ","))

	return &UpdatesCursor{
		client: c,
		next:   fmt.Sprintf("%s/%d/threat_updates?%s", c.baseURL, privacyGroup, q.Encode()),
	}
}

// UpdatesCursor walks the paging.next chain of a threat_updates listing.
type UpdatesCursor struct {
	client *Client
	next   string
}

type updatesPage struct {
	Data   []ThreatUpdate `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// Next fetches one page of updates. A nil page with a nil error means the
// cursor is exhausted.
func (c *UpdatesCursor) Next(ctx context.Context) ([]ThreatUpdate, error) {
	if c.next == "" {
		return nil, nil
	}
	resp, err := c.client.get(ctx, c.next)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("threat_updates returned %d: %s", resp.StatusCode, string(body))
	}

	var page updatesPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode threat_updates page: %w", err)
	}

	c.next = page.Paging.Next
	if page.Data == nil {
		page.Data = []ThreatUpdate{}
	}
	return page.Data, nil
}
