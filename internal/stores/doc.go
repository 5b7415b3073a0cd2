// Package stores holds the client-side state containers and the wiring between them.
//
// Key Implementations:
//   - [Session] : The credential and profile, login and account flows, restore and proactive refresh
//   - [Search] : Search form, /search location and typed result slots, with recent-search history
//   - [Files] : File list form, /files location, upload and delete
//   - [Listener] : Push channel per credential, turning file events into debounced refreshes
//   - [Navigator] : In-memory history whose listeners trigger fetches
//
// Stores never panic or return unreported failures to a front-end: every operation returns an error the caller
// can branch on and reports user-facing outcomes through a [Notifier].
package stores
