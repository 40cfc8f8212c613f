package server

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/folio/internal/services"
	"golang.org/x/oauth2"
)

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body style="background:#000;color:#fff;font-family:monospace;padding:40px;">
{{- if .RefreshToken}}
  <h2 style="color:#1DB954;">{{.Title}}</h2>
  <p>Copy this into your config as <code>credentials.spotify.refresh_token</code> (or <code>SPOTIFY_REFRESH_TOKEN</code> in <code>.env.local</code>):</p>
  <pre style="background:#111;padding:16px;border-radius:8px;word-break:break-all;white-space:pre-wrap;border:1px solid #333;">{{.RefreshToken}}</pre>
  <p style="color:#666;margin-top:16px;">Scopes granted: {{.Scope}}</p>
  <p style="color:#666;">Then restart the server.</p>
{{- else}}
  <h2 style="color:#e74c3c;">{{.Title}}</h2>
  <p>{{.Message}}</p>
  <p style="color:#666;">Try again: <a href="/api/spotify/auth" style="color:#1DB954;">Re-authorize</a></p>
{{- end}}
</body>
</html>
`))

// CallbackPage is the data rendered by [CallbackHandler].
type CallbackPage struct {
	Title        string
	Message      string
	RefreshToken string
	Scope        string
}

// CallbackHandler completes the authorization code flow and shows the issued refresh token.
//
// It is an operator tool: upstream errors are rendered as-is (escaped) and every page is a 200.
type CallbackHandler struct {
	oauth  services.OAuthService
	logger *log.Logger

	// OnToken, when set, receives every successfully exchanged token.
	OnToken func(*oauth2.Token)
}

func NewCallbackHandler(oauth services.OAuthService, logger *log.Logger) *CallbackHandler {
	return &CallbackHandler{oauth: oauth, logger: logger}
}

func (h *CallbackHandler) Routes() []Route {
	return []Route{{http.MethodGet, "/callback"}}
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if e := query.Get("error"); e != "" {
		h.logger.Warn("authorization denied", "error", e)
		h.render(w, CallbackPage{Title: "Authorization Error", Message: "Spotify returned: " + e})
		return
	}

	code := query.Get("code")
	if code == "" {
		h.render(w, CallbackPage{
			Title:   "No Code",
			Message: "No authorization code received. Start the flow from the beginning.",
		})
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange failed", "error", err)
		h.render(w, CallbackPage{Title: "Token Error", Message: exchangeMessage(err)})
		return
	}

	if h.OnToken != nil {
		h.OnToken(token)
	}

	if token.RefreshToken == "" {
		h.logger.Error("token exchange returned no refresh token")
		h.render(w, CallbackPage{Title: "Token Error", Message: "no refresh token in response"})
		return
	}

	scope, _ := token.Extra("scope").(string)
	h.logger.Info("refresh token issued", "scope", scope)
	h.render(w, CallbackPage{Title: "New Refresh Token", RefreshToken: token.RefreshToken, Scope: scope})
}

func (h *CallbackHandler) render(w http.ResponseWriter, page CallbackPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := callbackPage.Execute(w, page); err != nil {
		h.logger.Error("failed to render callback page", "error", err)
	}
}

// exchangeMessage formats a token endpoint failure as "code: description".
func exchangeMessage(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode != "" {
		desc := re.ErrorDescription
		if desc == "" {
			desc = "Unknown error"
		}
		return fmt.Sprintf("%s: %s", re.ErrorCode, desc)
	}
	return err.Error()
}
