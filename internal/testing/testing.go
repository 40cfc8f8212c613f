// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/folio/internal/shared"
)

// Upstream paths served by [Upstream].
const (
	TokenPath      = "/api/token"
	NowPlayingPath = "/v1/me/player/currently-playing"
	RecentPath     = "/v1/me/player/recently-played"
	TopPath        = "/v1/me/top/tracks"
)

// Reply is a canned upstream response.
type Reply struct {
	Status int
	Body   string
}

// Upstream is a fake Spotify accounts + Web API server that counts calls per path.
type Upstream struct {
	Server *httptest.Server

	mu       sync.Mutex
	replies  map[string]Reply
	calls    map[string]int
	requests map[string][]*http.Request
}

// NewUpstream starts a fake with successful defaults for every endpoint. It is closed on test cleanup.
func NewUpstream(t *testing.T) *Upstream {
	t.Helper()

	u := &Upstream{
		replies: map[string]Reply{
			TokenPath:      {http.StatusOK, `{"access_token":"access-1","token_type":"Bearer","expires_in":3600,"scope":"user-top-read"}`},
			NowPlayingPath: {http.StatusOK, CurrentlyPlayingJSON("track", "Live Song")},
			RecentPath:     {http.StatusOK, RecentlyPlayedJSON("Recent A", "Recent B", "Recent C")},
			TopPath:        {http.StatusOK, TopTracksJSON("Top A", "Top B")},
		},
		calls:    map[string]int{},
		requests: map[string][]*http.Request{},
	}

	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == TokenPath {
			r.ParseForm()
		}

		u.mu.Lock()
		u.calls[r.URL.Path]++
		u.requests[r.URL.Path] = append(u.requests[r.URL.Path], r.Clone(context.Background()))
		reply, ok := u.replies[r.URL.Path]
		u.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.Status)
		io.WriteString(w, reply.Body)
	}))
	t.Cleanup(u.Server.Close)

	return u
}

// Set replaces the reply for path.
func (u *Upstream) Set(path string, status int, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.replies[path] = Reply{Status: status, Body: body}
}

// Calls returns the number of requests received for path.
func (u *Upstream) Calls(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[path]
}

// TotalCalls returns the number of requests received on any path.
func (u *Upstream) TotalCalls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	total := 0
	for _, n := range u.calls {
		total += n
	}
	return total
}

// LastRequest returns the most recent request for path, or nil.
func (u *Upstream) LastRequest(path string) *http.Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	reqs := u.requests[path]
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

// Config returns a configured [shared.Config] pointing at the fake.
func (u *Upstream) Config() *shared.Config {
	config := shared.DefaultConfig()
	config.Credentials.Spotify.ClientID = "client-id"
	config.Credentials.Spotify.ClientSecret = "client-secret"
	config.Credentials.Spotify.RefreshToken = "refresh-token"
	config.Spotify.AuthURL = u.Server.URL + "/authorize"
	config.Spotify.TokenURL = u.Server.URL + TokenPath
	config.Spotify.APIURL = u.Server.URL + "/v1"
	return config
}

// TrackJSON returns a Spotify track object with three album images.
func TrackJSON(name string) string {
	slug := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	track := map[string]any{
		"id":   slug,
		"name": name,
		"artists": []map[string]any{
			{"name": "Artist One"},
			{"name": "Artist Two"},
		},
		"album": map[string]any{
			"name": name + " Album",
			"images": []map[string]any{
				{"url": "https://img/" + slug + "/640", "height": 640, "width": 640},
				{"url": "https://img/" + slug + "/300", "height": 300, "width": 300},
				{"url": "https://img/" + slug + "/64", "height": 64, "width": 64},
			},
		},
		"external_urls": map[string]any{"spotify": "https://open.spotify.com/track/" + slug},
		"preview_url":   nil,
	}
	return mustJSON(track)
}

// CurrentlyPlayingJSON returns a currently-playing payload of the given type.
func CurrentlyPlayingJSON(kind, name string) string {
	return `{"is_playing":true,"currently_playing_type":"` + kind + `","item":` + TrackJSON(name) + `}`
}

// RecentlyPlayedJSON returns a recently-played payload.
func RecentlyPlayedJSON(names ...string) string {
	items := make([]string, len(names))
	for i, n := range names {
		items[i] = `{"played_at":"2024-01-01T00:00:00Z","track":` + TrackJSON(n) + `}`
	}
	return `{"items":[` + strings.Join(items, ",") + `]}`
}

// TopTracksJSON returns a top-tracks payload.
func TopTracksJSON(names ...string) string {
	items := make([]string, len(names))
	for i, n := range names {
		items[i] = TrackJSON(n)
	}
	return `{"items":[` + strings.Join(items, ",") + `]}`
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
	calls    int
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	m.calls++
	return m.response, m.err
}

// Calls returns how many requests went through the round tripper.
func (m *MockRoundTripper) Calls() int { return m.calls }

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// AssertFileExists fails the test when path does not exist.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

// MustReadFile returns the file contents or fails the test.
func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func NewLimitedWriter(maxWrites int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{maxWrites: maxWrites, target: target}
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}
