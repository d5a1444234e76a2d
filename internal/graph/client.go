package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the Graph API endpoint threat updates are fetched from.
const DefaultBaseURL = "https://graph.facebook.com/v16.0"

// ErrNoToken is returned when a request is attempted without an app token
// configured. The token is only required at first use, so a Client can be
// constructed eagerly from partial configuration.
var ErrNoToken = errors.New("graph: app token not configured")

// Client talks to the ThreatExchange Graph API.
type Client struct {
	baseURL    string
	appToken   string
	httpClient *http.Client
}

func NewClient(baseURL, appToken string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		appToken: appToken,
	}
}

// AppID extracts the app id from an "app-id|app-secret" style token.
func (c *Client) AppID() (int64, error) {
	if c.appToken == "" {
		return 0, ErrNoToken
	}
	id, _, ok := strings.Cut(c.appToken, "|")
	if !ok {
		return 0, fmt.Errorf("graph: app token is not in app-id|app-secret form")
	}
	appID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("graph: app id %q is not numeric: %w", id, err)
	}
	return appID, nil
}

func (c *Client) http() (*http.Client, error) {
	if c.appToken == "" {
		return nil, ErrNoToken
	}
	if c.httpClient == nil {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.appToken})
		c.httpClient = oauth2.NewClient(context.Background(), src)
		c.httpClient.Timeout = 60 * time.Second
	}
	return c.httpClient, nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	hc, err := c.http()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return hc.Do(req)
}
