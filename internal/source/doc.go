// Package source models how media bytes are obtained before decoding.
//
// A Source is one of three variants: user supplied (bytes already on disk),
// project referenced (a path recorded in a saved project that may no longer
// exist on this machine), or remote (a URL that must be downloaded). All
// variants share one status vocabulary and one acquisition/cancel/retry
// contract; the I/O itself is delegated to a Manager implementation.
//
// Every status change flows through the legality table in status.go and is
// announced through a single change callback carrying a typed acquisition
// event. Change callbacks for one source are delivered in transition order
// and must not call back into the same source.
package source
