// Package cache provides the in-memory, time-to-live store behind the Spotify proxy.
//
// # Slots
//
// A [Slot] holds at most one [Entry] for a single upstream resource. An entry is fresh while
// now - Timestamp < TTL. Staleness is advisory: a stale entry is kept and served again when a
// refresh attempt fails, so a failing upstream never degrades a read below the last known good
// value.
//
// [Slot.Load] reports what it served as a tagged [Result]:
//   - [Fresh] : cached within TTL, or just fetched successfully
//   - [Stale] : refresh failed, previous entry returned unchanged
//   - [Empty] : refresh failed and nothing was ever cached
//
// Concurrent loads of the same slot are coalesced with [singleflight.Group], so a burst of
// requests on an expired slot performs one upstream call. Writes replace the entry wholesale;
// the last successful writer wins.
//
// # Store
//
// [Store] groups the four slots the proxy needs (token, now playing, recent tracks, top tracks).
// It is created once per process and passed to the components that use it.
package cache
