package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/desertthunder/folio/internal/tasks"
)

// SpotifyHandler serves the listening snapshot.
//
// It always answers 200; any failure degrades to the neutral snapshot.
type SpotifyHandler struct {
	engine tasks.SnapshotEngine
	logger *log.Logger
}

func NewSpotifyHandler(engine tasks.SnapshotEngine, logger *log.Logger) *SpotifyHandler {
	return &SpotifyHandler{engine: engine, logger: logger}
}

func (h *SpotifyHandler) Routes() []Route {
	return []Route{{http.MethodGet, "/api/spotify"}}
}

func (h *SpotifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := models.NeutralSnapshot()

	func() {
		defer func() {
			if p := recover(); p != nil {
				h.logger.Error("snapshot failed", "panic", p, "request_id", RequestID(r.Context()))
				snapshot = models.NeutralSnapshot()
			}
		}()
		snapshot = h.engine.Snapshot(r.Context())
	}()

	writeJSON(w, h.logger, http.StatusOK, snapshot)
}

// AuthHandler redirects to the provider's authorize page.
type AuthHandler struct {
	oauth services.OAuthService
}

func NewAuthHandler(oauth services.OAuthService) *AuthHandler {
	return &AuthHandler{oauth: oauth}
}

func (h *AuthHandler) Routes() []Route {
	return []Route{{http.MethodGet, "/api/spotify/auth"}}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.oauth.AuthURL(), http.StatusFound)
}

// HealthHandler reports liveness.
type HealthHandler struct {
	now    func() time.Time
	logger *log.Logger
}

// NewHealthHandler creates a health handler. A nil clock defaults to [time.Now].
func NewHealthHandler(now func() time.Time, logger *log.Logger) *HealthHandler {
	if now == nil {
		now = time.Now
	}
	return &HealthHandler{now: now, logger: logger}
}

func (h *HealthHandler) Routes() []Route {
	return []Route{{http.MethodGet, "/health"}}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, logger *log.Logger, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		logger.Error("failed to encode response", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
