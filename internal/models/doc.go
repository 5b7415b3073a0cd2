// Package models defines the entities exchanged with the media backend and the query types mirrored to navigation locations.
//
// The package contains three categories of types:
//
// 1. Account types: credentials and profile data for the session store
//   - [Credentials] : Username and password submitted on login
//   - [Registration] : Signup form with password confirmation
//   - [UserProfile] : The authenticated user's profile and email verification status
//   - [StoredSession] : The persisted form of a session
//
// 2. Media types: search results and their filters
//   - [SearchQuery] : Search form values, parsed from and serialized to a query string
//   - [SearchResult] : Tagged variant of [ImageResults] and [AudioResults]
//   - [Media] : Tagged variant of a single [ImageItem] or [AudioItem]
//   - [HistoryEntry] : A past search keyword
//
// 3. File types: uploaded files and their descriptions
//   - [ListFilesQuery] : Page and sort state, parsed from and serialized to a query string
//   - [FileRecord] : An uploaded file with its processing status and description versions
//   - [Notification] : A pushed processing event
//
// Query parsing never fails: unknown or invalid values fall back to defaults.
package models
