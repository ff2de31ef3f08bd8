// Package ingest turns inbound media submissions into catalog assets.
//
// Ungrouped submissions are persisted immediately. Submissions sharing a group
// id within a chat are buffered and flushed together once no new item has
// arrived for the debounce window; each buffered item is persisted
// independently and the group reports one aggregate saved/failed outcome.
package ingest
