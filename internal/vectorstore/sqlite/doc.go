// Package sqlite stores resume chunk embeddings in a single SQLite file.
//
// It uses modernc.org/sqlite, a pure Go SQLite implementation, so the binary
// needs no CGO. Embeddings are stored as little-endian float32 blobs and
// ranked in process by cosine distance, which is adequate for the few
// thousand chunks a resume collection holds.
//
// # Schema
//
// The schema is managed with golang-migrate from the embedded migrations/
// directory. Several collections can share one file; every row carries the
// collection name it belongs to.
//
// # Thread Safety
//
// All operations are safe for concurrent use. The database runs in WAL mode
// and replacements run inside a transaction.
package sqlite
