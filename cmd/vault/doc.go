// Package main hosts the vault operator CLI.
//
// Most commands open the catalog database and media storage directly, so they
// work whether or not vaultd is running; SQLite WAL mode lets both processes
// share the database. The status command asks a running daemon over its HTTP
// API instead.
package main
