// Package server provides the small HTTP surface the client runs on localhost.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns.
//
// # Link Handler
//
// Confirmation and password reset emails carry a link with a one-time token. When the link points at the
// configured local address, [LinkHandler] captures the token from /verify-email or /reset-password, answers the
// browser with a short page, and sends the result through a channel.
//
// It only processes one link; later requests are rejected.
//
// # Current Usage
//
// The `auth await-link` command starts a temporary server on localhost:3000 (see [Await]), waits for a click, then
// confirms the email or prompts for a new password and shuts down.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
