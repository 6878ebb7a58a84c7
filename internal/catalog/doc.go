// Package catalog persists sessions, media items, and timeline placements in
// SQLite so the daemon can restore editing state across restarts. Writes are
// write-through: the in-memory state machines stay authoritative and the
// catalog records their latest snapshots.
package catalog
