// Package daemon coordinates the long-running vault process.
//
// It wires configuration, the catalog store, media storage, the ingestion
// coordinator, the rating pipeline, and the chat command handler into a single
// lifecycle with flock-based locking to prevent multiple instances. The daemon
// owns the HTTP API, the periodic rating backfill, startup maintenance (merge
// and score refresh) and the shutdown drain of buffered upload groups.
//
// Keep orchestration logic here: individual operations should live in their
// respective packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
