// Package catalog persists categories and media assets in SQLite.
//
// The Store owns the two entities and their invariants: category normalized
// keys are unique, every asset belongs to exactly one category, storage
// locators are unique, and rating/rated_at move together. Category deletion
// cascades to assets; callers receive the removed storage locators so backing
// files can be cleaned up best-effort.
//
// Read-then-write sequences that must not interleave (serving the next asset,
// merging duplicate categories) run inside one immediate transaction.
// Timestamps are stored as fixed-width UTC text so lexical order matches
// chronological order.
package catalog
