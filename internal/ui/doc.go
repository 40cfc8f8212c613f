// Package ui implements a terminal now-playing viewer using bubbletea's Elm architecture.
//
// The [Model] polls a [SnapshotSource] (normally a running folio server) every [DefaultInterval]
// and shows:
//   - the featured track: the live track, or the most recently played one
//   - a list of recent or top tracks ([Tab]), switched with tab
//   - when the snapshot was last refreshed
//
// Keys: r refreshes immediately, tab switches lists, ? toggles full help, q quits.
// A failed refresh keeps the last snapshot on screen and shows the error in the status line.
package ui
