// Package server exposes the listening snapshot over HTTP.
//
// # Routes
//
//	GET /api/spotify       snapshot JSON, always 200
//	GET /api/spotify/auth  302 to the Spotify authorize page
//	GET /callback          authorization code exchange, renders the new refresh token
//	GET /health            {"status":"ok","timestamp":"..."}
//
// Any other method on a known path is a 405 with an Allow header.
//
// # Router Infrastructure
//
// [BasicRouter] wraps [http.ServeMux] with per-method dispatch. [Middleware] is applied in
// reverse order (last added wraps first). Handlers implement [Handler], which adds the list of
// [Route] values they serve to [http.Handler].
//
// [RequestLogger] assigns an X-Request-ID and logs every request; [Recoverer] turns panics into
// 500s. The snapshot route recovers on its own so it can still answer with the neutral payload.
//
// # Lifecycle
//
// [Server.ListenAndServe] blocks until its context is canceled and then shuts down gracefully,
// bounded by the configured shutdown timeout.
package server
