// Package models defines the listening-activity types shared by the Spotify client, the aggregator and the HTTP layer.
//
//   - [Track] : a normalized track, derived once from a Spotify track object and never mutated
//   - [Snapshot] : the JSON document served by GET /api/spotify
//
// A [Snapshot] is built fresh for every request. Only its constituent tracks are cached.
package models
