// Package repositories implements SQLite persistence for client-side state.
//
// Key Implementations:
//   - [SessionRepository] : The persisted session, one row under a fixed key
//   - [HistoryRepository] : Local search history, deduplicated by keyword and ordered newest first
//
// Schemas are created by the migrations in the shared package; repositories assume they have run.
package repositories
