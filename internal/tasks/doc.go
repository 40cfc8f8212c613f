// Package tasks composes the listening snapshot served by GET /api/spotify.
//
// # Snapshot
//
// [NowPlayingEngine.Snapshot] performs, in order:
//
//  1. Credential guard: without client id, client secret and refresh token the empty snapshot
//     is returned and no network I/O happens.
//  2. Token acquisition through the token cache. A failure yields the neutral snapshot.
//  3. Three cached fetches (now playing, recent tracks, top tracks) run concurrently; the
//     snapshot is built once all of them have settled.
//  4. Composition: a live track is reported as playing with both lists untouched. Otherwise the
//     first recent track is promoted to nowPlaying and dropped from recentTracks.
//
// Each fetch contains its own failure (stale or empty data), so one failing upstream resource
// never blocks the others. Panics anywhere in the path are recovered into the neutral snapshot.
package tasks
