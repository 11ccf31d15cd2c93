package xtream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchgate/couchgate/internal/models"
)

// Per-call deadlines. Playlist fetches stream a large text body and get a
// longer deadline; the verification probe is interactive and gets a short one.
const (
	apiTimeout      = 30 * time.Second
	playlistTimeout = 60 * time.Second
	verifyTimeout   = 15 * time.Second
)

// Desktop browser profile for get.php fetches. Providers routinely sit
// behind Cloudflare and block anything that does not look like a browser.
const (
	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	mobileUserAgent  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
)

// Client issues authenticated calls against an Xtream-Codes provider.
// It never retries; callers own the retry decision.
type Client struct {
	http *http.Client
}

func NewClient() *Client {
	return &Client{
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
				TLSHandshakeTimeout: 15 * time.Second,
			},
		},
	}
}

// NewClientWithHTTP is used by tests to inject a transport.
func NewClientWithHTTP(h *http.Client) *Client {
	return &Client{http: h}
}

// AccountInfo is the user_info object the provider returns on a bare
// player_api call. Providers disagree on whether fields are strings or
// numbers, so everything is normalized to strings on decode.
type AccountInfo struct {
	Username          string
	Status            string
	ExpDate           string
	MaxConnections    string
	ActiveConnections string
}

// Call performs a player_api.php action and returns the raw JSON body.
// The upstream schema is forwarded verbatim; no reshaping happens here.
func (c *Client) Call(ctx context.Context, creds *models.ProviderCredentials, action string, params url.Values) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("username", creds.Username)
	q.Set("password", creds.Password)
	if action != "" {
		q.Set("action", action)
	}
	for key, vals := range params {
		for _, v := range vals {
			q.Add(key, v)
		}
	}

	endpoint := strings.TrimSuffix(creds.BaseURL, "/") + "/player_api.php?" + q.Encode()

	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	req.Header.Set("User-Agent", desktopUserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind:    KindRejected,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("provider refused %s: %s", action, previewOf(body)),
		}
	}

	if !json.Valid(body) {
		return nil, &Error{
			Kind:    KindMalformed,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("provider returned non-JSON body for %s: %s", action, previewOf(body)),
		}
	}

	return json.RawMessage(body), nil
}

// FetchPlaylist retrieves the raw M3U playlist from get.php. The request
// carries a full browser header set; getting past edge protection is best
// effort, and a challenge page surfaces as a blocked error rather than
// silently empty data.
func (c *Client) FetchPlaylist(ctx context.Context, creds *models.ProviderCredentials) (string, error) {
	q := url.Values{}
	q.Set("username", creds.Username)
	q.Set("password", creds.Password)
	q.Set("type", "m3u_plus")
	q.Set("output", "mpegts")

	base := strings.TrimSuffix(creds.BaseURL, "/")
	endpoint := base + "/get.php?" + q.Encode()

	ctx, cancel := context.WithTimeout(ctx, playlistTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	req.Header.Set("User-Agent", desktopUserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", base+"/")
	req.Header.Set("Connection", "keep-alive")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if looksBlocked(resp, body) {
			return "", &Error{
				Kind:    KindBlocked,
				Status:  resp.StatusCode,
				Message: "playlist fetch blocked by edge protection",
			}
		}
		return "", &Error{
			Kind:    KindRejected,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("provider refused playlist: %s", previewOf(body)),
		}
	}

	text := string(body)
	if strings.TrimSpace(text) == "" {
		return "", &Error{
			Kind:    KindMalformed,
			Status:  resp.StatusCode,
			Message: "provider returned an empty playlist",
		}
	}

	return text, nil
}

// VerifyAccount probes the account endpoint with candidate credentials.
// A 2xx answer without a recognizable user_info object counts as a
// credential rejection, not a success.
func (c *Client) VerifyAccount(ctx context.Context, creds *models.ProviderCredentials) (*AccountInfo, error) {
	q := url.Values{}
	q.Set("username", creds.Username)
	q.Set("password", creds.Password)

	endpoint := strings.TrimSuffix(creds.BaseURL, "/") + "/player_api.php?" + q.Encode()

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	req.Header.Set("User-Agent", mobileUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind:    KindRejected,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("provider rejected credentials: %s", previewOf(body)),
		}
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &Error{
			Kind:    KindMalformed,
			Status:  resp.StatusCode,
			Message: "account response is not valid JSON",
			Err:     err,
		}
	}

	userInfo, ok := payload["user_info"].(map[string]interface{})
	if !ok {
		return nil, &Error{
			Kind:    KindRejected,
			Status:  resp.StatusCode,
			Message: "account response has no user_info object",
		}
	}

	return &AccountInfo{
		Username:          stringField(userInfo, "username"),
		Status:            stringField(userInfo, "status"),
		ExpDate:           stringField(userInfo, "exp_date"),
		MaxConnections:    stringField(userInfo, "max_connections"),
		ActiveConnections: stringField(userInfo, "active_cons"),
	}, nil
}

// classifyTransportError separates timeouts from other network failures.
func classifyTransportError(err error) *Error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return &Error{Kind: KindTimeout, Message: "provider did not respond in time", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "provider did not respond in time", Err: err}
	}
	return &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
}

// looksBlocked detects a Cloudflare-style challenge or block page. Matching
// is conservative: only definitive signals count, since providers also emit
// their own non-CF error pages on these status codes.
func looksBlocked(resp *http.Response, body []byte) bool {
	server := strings.ToLower(strings.TrimSpace(resp.Header.Get("Server")))
	if server == "cloudflare" {
		return true
	}
	switch resp.StatusCode {
	case 403, 503, 520, 521, 524:
		preview := strings.ToLower(previewOf(body))
		return strings.Contains(preview, "checking your browser") ||
			strings.Contains(preview, "attention required") ||
			strings.Contains(preview, "ray id")
	}
	return false
}

// previewOf truncates a response body for inclusion in error messages.
func previewOf(body []byte) string {
	const max = 256
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max]
	}
	return s
}

// stringField reads a user_info field that may arrive as string or number.
func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
