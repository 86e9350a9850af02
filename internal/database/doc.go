// Package database provides SQLite-based storage for the upload history.
//
// Every upload that got past the file check is recorded in csvupload.db in
// the XDG data directory: the file name, its size and SHA3-256 digest, the
// server, the outcome and, for successful uploads, the rendered display.
// The history command lists and re-renders these records.
//
// The driver is modernc.org/sqlite, which is CGO-free. The database runs in
// WAL mode with a single connection.
package database
