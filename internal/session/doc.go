// Package session orchestrates editing sessions: it owns the library index
// and timeline placements per session, wires media items to their acquisition
// managers and the synchronizer, schedules metadata decoding, and writes
// every observable state change through to the catalog.
package session
