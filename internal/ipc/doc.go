// Package ipc exposes daemon control over a Unix domain socket using
// JSON-RPC. The CLI is the primary consumer; the HTTP API carries the same
// operations for remote clients.
package ipc
