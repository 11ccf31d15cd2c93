package xtream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/couchgate/couchgate/internal/models"
)

func testCreds(baseURL string) *models.ProviderCredentials {
	return &models.ProviderCredentials{
		BaseURL:  baseURL,
		Username: "user1",
		Password: "pass1",
	}
}

func TestCallForwardsCredentialsAndAction(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Write([]byte(`[{"category_id":"1","category_name":"News"}]`))
	}))
	defer srv.Close()

	client := NewClientWithHTTP(srv.Client())
	params := url.Values{}
	params.Set("category_id", "7")

	body, err := client.Call(context.Background(), testCreds(srv.URL), "get_live_streams", params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/player_api.php" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery.Get("username") != "user1" || gotQuery.Get("password") != "pass1" {
		t.Errorf("credentials not forwarded: %v", gotQuery)
	}
	if gotQuery.Get("action") != "get_live_streams" {
		t.Errorf("action = %q", gotQuery.Get("action"))
	}
	if gotQuery.Get("category_id") != "7" {
		t.Errorf("category_id = %q", gotQuery.Get("category_id"))
	}
	if !strings.Contains(string(body), "News") {
		t.Errorf("body not forwarded verbatim: %s", body)
	}
}

func TestCallOmitsEmptyAction(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"user_info":{}}`))
	}))
	defer srv.Close()

	client := NewClientWithHTTP(srv.Client())
	if _, err := client.Call(context.Background(), testCreds(srv.URL), "", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, present := gotQuery["action"]; present {
		t.Error("bare account call must not carry an action parameter")
	}
}

func TestCallClassifiesRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClientWithHTTP(srv.Client())
	_, err := client.Call(context.Background(), testCreds(srv.URL), "get_live_categories", nil)
	if KindOf(err) != KindRejected {
		t.Fatalf("expected rejected, got %v (err: %v)", KindOf(err), err)
	}

	var ue *Error
	if !errors.As(err, &ue) || ue.Status != http.StatusForbidden {
		t.Errorf("expected status 403 in error, got %+v", ue)
	}
}

func TestCallClassifiesMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client := NewClientWithHTTP(srv.Client())
	_, err := client.Call(context.Background(), testCreds(srv.URL), "get_vod_streams", nil)
	if KindOf(err) != KindMalformed {
		t.Fatalf("expected malformed, got %v (err: %v)", KindOf(err), err)
	}
}

func TestCallClassifiesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClientWithHTTP(srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Call(ctx, testCreds(srv.URL), "get_live_categories", nil)
	if KindOf(err) != KindTimeout {
		t.Fatalf("expected timeout, got %v (err: %v)", KindOf(err), err)
	}
}

func TestCallClassifiesNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := NewClient()
	_, err := client.Call(context.Background(), testCreds(srv.URL), "get_live_categories", nil)
	if KindOf(err) != KindNetwork {
		t.Fatalf("expected network, got %v (err: %v)", KindOf(err), err)
	}
}

func TestFetchPlaylistSendsBrowserHeaders(t *testing.T) {
	var gotUA, gotReferer string
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		gotQuery = r.URL.Query()
		w.Write([]byte("#EXTM3U\n#EXTINF:-1,Ch\nhttp://x/1.ts\n"))
	}))
	defer srv.Close()

	client := NewClientWithHTTP(srv.Client())
	text, err := client.FetchPlaylist(context.Background(), testCreds(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(text, "#EXTM3U") {
		t.Errorf("playlist body not returned verbatim: %q", text)
	}

	if !strings.Contains(gotUA, "Mozilla/5.0") {
		t.Errorf("expected browser User-Agent, got %q", gotUA)
	}
	if gotReferer != srv.URL+"/" {
		t.Errorf("Referer = %q", gotReferer)
	}
	if gotQuery.Get("type") != "m3u_plus" || gotQuery.Get("output") != "mpegts" {
		t.Errorf("playlist query = %v", gotQuery)
	}
}

func TestFetchPlaylistDetectsCloudflareBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "cloudflare")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<html>Attention Required! | Cloudflare</html>"))
	}))
	defer srv.Close()

	client := NewClientWithHTTP(srv.Client())
	_, err := client.FetchPlaylist(context.Background(), testCreds(srv.URL))
	if KindOf(err) != KindBlocked {
		t.Fatalf("expected blocked, got %v (err: %v)", KindOf(err), err)
	}
}

func TestFetchPlaylistChallengeBodyWithoutServerHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("<html>Checking your browser before accessing</html>"))
	}))
	defer srv.Close()

	client := NewClientWithHTTP(srv.Client())
	_, err := client.FetchPlaylist(context.Background(), testCreds(srv.URL))
	if KindOf(err) != KindBlocked {
		t.Fatalf("expected blocked, got %v (err: %v)", KindOf(err), err)
	}
}

func TestFetchPlaylistPlainErrorIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClientWithHTTP(srv.Client())
	_, err := client.FetchPlaylist(context.Background(), testCreds(srv.URL))
	if KindOf(err) != KindRejected {
		t.Fatalf("expected rejected, got %v (err: %v)", KindOf(err), err)
	}
}

func TestFetchPlaylistEmptyBodyIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("   \n"))
	}))
	defer srv.Close()

	client := NewClientWithHTTP(srv.Client())
	_, err := client.FetchPlaylist(context.Background(), testCreds(srv.URL))
	if KindOf(err) != KindMalformed {
		t.Fatalf("expected malformed, got %v (err: %v)", KindOf(err), err)
	}
}

func TestVerifyAccountSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// exp_date arrives as a number, max_connections as a string; both
		// shapes occur in the wild.
		w.Write([]byte(`{"user_info":{"username":"user1","status":"Active","exp_date":1767225600,"max_connections":"2","active_cons":0}}`))
	}))
	defer srv.Close()

	client := NewClientWithHTTP(srv.Client())
	info, err := client.VerifyAccount(context.Background(), testCreds(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.Username != "user1" || info.Status != "Active" {
		t.Errorf("unexpected account info: %+v", info)
	}
	if info.ExpDate != "1767225600" {
		t.Errorf("numeric exp_date not normalized: %q", info.ExpDate)
	}
	if info.MaxConnections != "2" || info.ActiveConnections != "0" {
		t.Errorf("connection counts: %+v", info)
	}
}

func TestVerifyAccountMissingUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"bad credentials"}`))
	}))
	defer srv.Close()

	client := NewClientWithHTTP(srv.Client())
	_, err := client.VerifyAccount(context.Background(), testCreds(srv.URL))
	if KindOf(err) != KindRejected {
		t.Fatalf("expected rejected, got %v (err: %v)", KindOf(err), err)
	}
}

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"url error with timeout", &url.Error{Op: "Get", URL: "http://p.example", Err: context.DeadlineExceeded}, KindTimeout},
		{"wrapped deadline exceeded", fmt.Errorf("read body: %w", context.DeadlineExceeded), KindTimeout},
		{"bare deadline exceeded", context.DeadlineExceeded, KindTimeout},
		{"connection refused", errors.New("dial tcp 127.0.0.1:80: connect: connection refused"), KindNetwork},
		{"url error without timeout", &url.Error{Op: "Get", URL: "http://p.example", Err: errors.New("connection reset")}, KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyTransportError(tt.err).Kind; got != tt.want {
				t.Errorf("kind = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStringField(t *testing.T) {
	m := map[string]interface{}{
		"str":   "hello",
		"int":   float64(42),
		"float": 1.5,
		"null":  nil,
	}
	if got := stringField(m, "str"); got != "hello" {
		t.Errorf("str = %q", got)
	}
	if got := stringField(m, "int"); got != "42" {
		t.Errorf("int = %q", got)
	}
	if got := stringField(m, "float"); got != "1.5" {
		t.Errorf("float = %q", got)
	}
	if got := stringField(m, "null"); got != "" {
		t.Errorf("null = %q", got)
	}
	if got := stringField(m, "absent"); got != "" {
		t.Errorf("absent = %q", got)
	}
}
