// Package services implements the HTTP client for the media search and file description backend.
//
// # Client
//
// [Client] owns the base URL, the refresh credential and a [Pipeline]. Endpoint groups hang off it:
//   - [UserService] : login, refresh, registration, profile, email verification and password reset
//   - [MediaService] : search, detail and server-side search history
//   - [FileService] : file listing, upload and deletion
//
// # Pipeline
//
// Every request passes through an explicit middleware list:
//
//	logging -> rate limit -> extra middleware -> signer -> unauthorized interceptor -> base transport
//
// The signer is an [oauth2.Transport] over a static token source. [Pipeline.Sign] and [Pipeline.Unsign] rebuild the
// chain and publish it with one atomic store. Requests made with an [Anonymous] context skip the signer.
//
// The interceptor reports a 401 answer to a signed request through the handler registered with
// [Pipeline.OnUnauthorized], passing the bearer that was rejected so the session layer can tell a stale rejection
// from a current one.
//
// # Refresh credential
//
// The backend issues the refresh credential as the refresh_token cookie. The client captures it from Set-Cookie,
// forgets it when the backend expires it, and attaches it only to refresh and logout requests.
//
// # Error Handling
//
// Non-2xx answers become [*APIError], which matches sentinels from the shared package:
//   - [shared.ErrAPIRequest] : every API error
//   - [shared.ErrNotAuthenticated] : 401
//   - [shared.ErrInvalidInput] : 400 and 422 validation failures
//   - [shared.ErrFileNotFound] : 404
//   - [shared.ErrFileTooLarge] : 413
//
// [Message] picks the user-facing text: the first validation message, then the detail string, then a fallback.
package services
