package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/folio/internal/cache"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/desertthunder/folio/internal/tasks"
	tu "github.com/desertthunder/folio/internal/testing"
	"golang.org/x/oauth2"
)

type stubEngine struct {
	snapshot models.Snapshot
	panics   bool
}

func (s *stubEngine) Snapshot(context.Context) models.Snapshot {
	if s.panics {
		panic("boom")
	}
	return s.snapshot
}

type stubOAuth struct {
	token *oauth2.Token
	err   error
	codes []string
}

func (s *stubOAuth) AuthURL() string { return "https://accounts.example/authorize?client_id=abc" }

func (s *stubOAuth) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	s.codes = append(s.codes, code)
	return s.token, s.err
}

func testLogger() *strings.Builder { return &strings.Builder{} }

func newTestServer(engine tasks.SnapshotEngine, oauth services.OAuthService) *Server {
	return New(ServerOpts{
		Engine: engine,
		OAuth:  oauth,
		Logger: shared.NewLogger(testLogger()),
	})
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestSpotifyHandler(t *testing.T) {
	t.Run("serves snapshot", func(t *testing.T) {
		engine := &stubEngine{snapshot: models.Snapshot{IsPlaying: true, NowPlaying: &models.Track{Title: "Live"}}}
		rec := do(t, newTestServer(engine, nil).Router(), http.MethodGet, "/api/spotify")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}

		var body map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if body["isPlaying"] != true {
			t.Errorf("expected isPlaying true, got %v", body["isPlaying"])
		}
	})

	t.Run("panic answers neutral payload", func(t *testing.T) {
		rec := do(t, newTestServer(&stubEngine{panics: true}, nil).Router(), http.MethodGet, "/api/spotify")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		want := `{"isPlaying":false,"nowPlaying":null,"recentTracks":[],"topTracks":[]}`
		if got := rec.Body.String(); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	})

	t.Run("unconfigured credentials", func(t *testing.T) {
		tc := []struct {
			name  string
			blank func(*shared.SpotifyConfig)
		}{
			{name: "no client id", blank: func(c *shared.SpotifyConfig) { c.ClientID = "" }},
			{name: "no client secret", blank: func(c *shared.SpotifyConfig) { c.ClientSecret = "" }},
			{name: "no refresh token", blank: func(c *shared.SpotifyConfig) { c.RefreshToken = "" }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				up := tu.NewUpstream(t)
				config := up.Config()
				tt.blank(&config.Credentials.Spotify)

				svc := services.NewSpotifyService(services.SpotifyOpts{
					Config:     config,
					Cache:      cache.NewStore(cache.DefaultTTLs(), nil),
					HTTPClient: up.Server.Client(),
					Logger:     shared.NewLogger(testLogger()),
				})
				engine := tasks.NewNowPlayingEngine(svc, shared.NewLogger(testLogger()))

				rec := do(t, newTestServer(engine, svc).Router(), http.MethodGet, "/api/spotify")

				if rec.Code != http.StatusOK {
					t.Errorf("expected 200, got %d", rec.Code)
				}
				want := `{"isPlaying":false,"recentTracks":[],"topTracks":[]}`
				if got := rec.Body.String(); got != want {
					t.Errorf("expected %s, got %s", want, got)
				}
				if up.TotalCalls() != 0 {
					t.Errorf("expected no upstream calls, got %d", up.TotalCalls())
				}
			})
		}
	})

	t.Run("rejects other methods", func(t *testing.T) {
		rec := do(t, newTestServer(&stubEngine{}, nil).Router(), http.MethodPost, "/api/spotify")

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
		if allow := rec.Header().Get("Allow"); allow != "GET, HEAD" {
			t.Errorf("expected Allow 'GET, HEAD', got %q", allow)
		}
	})
}

func TestAuthHandler(t *testing.T) {
	rec := do(t, newTestServer(&stubEngine{}, &stubOAuth{}).Router(), http.MethodGet, "/api/spotify/auth")

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://accounts.example/authorize?client_id=abc" {
		t.Errorf("unexpected Location %s", loc)
	}
}

func TestCallbackHandler(t *testing.T) {
	t.Run("upstream error", func(t *testing.T) {
		oauth := &stubOAuth{}
		rec := do(t, newTestServer(&stubEngine{}, oauth).Router(), http.MethodGet, "/callback?error=access_denied")

		body := rec.Body.String()
		if !strings.Contains(body, "Authorization Error") || !strings.Contains(body, "access_denied") {
			t.Errorf("expected authorization error page, got %s", body)
		}
		if len(oauth.codes) != 0 {
			t.Error("expected no exchange")
		}
	})

	t.Run("escapes error text", func(t *testing.T) {
		rec := do(t, newTestServer(&stubEngine{}, &stubOAuth{}).Router(), http.MethodGet, "/callback?error=%3Cscript%3E")

		if strings.Contains(rec.Body.String(), "<script>") {
			t.Error("expected error text to be escaped")
		}
	})

	t.Run("missing code", func(t *testing.T) {
		rec := do(t, newTestServer(&stubEngine{}, &stubOAuth{}).Router(), http.MethodGet, "/callback")

		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "No Code") {
			t.Errorf("expected No Code page, got %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("token error", func(t *testing.T) {
		oauth := &stubOAuth{err: &oauth2.RetrieveError{ErrorCode: "invalid_grant"}}
		rec := do(t, newTestServer(&stubEngine{}, oauth).Router(), http.MethodGet, "/callback?code=abc")

		body := rec.Body.String()
		if !strings.Contains(body, "Token Error") || !strings.Contains(body, "invalid_grant: Unknown error") {
			t.Errorf("expected token error page, got %s", body)
		}
		if len(oauth.codes) != 1 || oauth.codes[0] != "abc" {
			t.Errorf("expected exchange of code abc, got %v", oauth.codes)
		}
	})

	t.Run("new refresh token", func(t *testing.T) {
		token := (&oauth2.Token{AccessToken: "a", RefreshToken: "fresh-refresh"}).
			WithExtra(map[string]any{"scope": "user-top-read"})
		rec := do(t, newTestServer(&stubEngine{}, &stubOAuth{token: token}).Router(), http.MethodGet, "/callback?code=abc")

		body := rec.Body.String()
		for _, want := range []string{"New Refresh Token", "fresh-refresh", "user-top-read"} {
			if !strings.Contains(body, want) {
				t.Errorf("expected body to contain %q", want)
			}
		}
	})

	t.Run("exchange without refresh token", func(t *testing.T) {
		var hooked *oauth2.Token
		token := &oauth2.Token{AccessToken: "a"}
		srv := New(ServerOpts{
			Engine:  &stubEngine{},
			OAuth:   &stubOAuth{token: token},
			Logger:  shared.NewLogger(testLogger()),
			OnToken: func(tok *oauth2.Token) { hooked = tok },
		})

		rec := do(t, srv.Router(), http.MethodGet, "/callback?code=abc")

		body := rec.Body.String()
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(body, "Token Error") || !strings.Contains(body, "no refresh token in response") {
			t.Errorf("expected token error page, got %s", body)
		}
		if strings.Contains(body, "New Refresh Token") {
			t.Error("expected no refresh token heading")
		}
		if hooked != token {
			t.Error("expected OnToken to receive the exchanged token")
		}
	})

	t.Run("exchange against fake upstream", func(t *testing.T) {
		up := tu.NewUpstream(t)
		up.Set(tu.TokenPath, http.StatusOK, `{"access_token":"a","token_type":"Bearer","refresh_token":"minted","scope":"user-read-recently-played"}`)
		svc := services.NewSpotifyService(services.SpotifyOpts{
			Config:     up.Config(),
			HTTPClient: up.Server.Client(),
			Logger:     shared.NewLogger(testLogger()),
		})

		rec := do(t, newTestServer(&stubEngine{}, svc).Router(), http.MethodGet, "/callback?code=xyz")

		if !strings.Contains(rec.Body.String(), "minted") {
			t.Errorf("expected minted token, got %s", rec.Body.String())
		}
		req := up.LastRequest(tu.TokenPath)
		if req == nil || req.PostForm.Get("grant_type") != "authorization_code" || req.PostForm.Get("code") != "xyz" {
			t.Errorf("unexpected token request %+v", req)
		}
	})
}

func TestHealthHandler(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h := NewHealthHandler(func() time.Time { return fixed }, shared.NewLogger(testLogger()))

	rec := do(t, h, http.MethodGet, "/health")

	want := `{"status":"ok","timestamp":"2024-06-01T12:00:00Z"}`
	if got := rec.Body.String(); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("request id", func(t *testing.T) {
		rec := do(t, newTestServer(&stubEngine{}, nil).Router(), http.MethodGet, "/health")

		if rec.Header().Get(RequestIDHeader) == "" {
			t.Error("expected X-Request-ID header")
		}
	})

	t.Run("reuses incoming request id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		newTestServer(&stubEngine{}, nil).Router().ServeHTTP(rec, req)

		if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
			t.Errorf("expected abc-123, got %s", got)
		}
	})

	t.Run("recoverer", func(t *testing.T) {
		logs := testLogger()
		router := NewBasicRouter()
		router.Use(Recoverer(shared.NewLogger(logs)))
		router.Handle(http.MethodGet, "/panic", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("kaboom")
		}))

		rec := do(t, router, http.MethodGet, "/panic")

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(logs.String(), "kaboom") {
			t.Error("expected panic to be logged")
		}
	})

	t.Run("applies in order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mw("first"), mw("second"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		do(t, router, http.MethodGet, "/")

		if strings.Join(order, ",") != "first,second" {
			t.Errorf("expected first,second, got %v", order)
		}
	})
}

func TestServer(t *testing.T) {
	t.Run("serves until canceled", func(t *testing.T) {
		srv := newTestServer(&stubEngine{snapshot: models.NeutralSnapshot()}, nil)
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen failed: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- srv.Serve(ctx, ln) }()

		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if !strings.Contains(string(body), `"status":"ok"`) {
			t.Errorf("unexpected body %s", body)
		}

		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("expected clean shutdown, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("server did not shut down")
		}
	})

	t.Run("listen error", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen failed: %v", err)
		}
		defer ln.Close()

		config := shared.DefaultConfig()
		host, port, _ := net.SplitHostPort(ln.Addr().String())
		config.Server.Host = host
		config.Server.Port, _ = strconv.Atoi(port)

		srv := New(ServerOpts{Config: config, Engine: &stubEngine{}, Logger: shared.NewLogger(testLogger())})
		if err := srv.ListenAndServe(context.Background()); err == nil {
			t.Error("expected error for address in use")
		} else {
			var opErr *net.OpError
			if !errors.As(err, &opErr) {
				t.Errorf("expected *net.OpError, got %T", err)
			}
		}
	})
}
