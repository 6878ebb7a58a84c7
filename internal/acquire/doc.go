// Package acquire implements the source.Manager acquisition backends: a
// validation-only path for files already on disk and an HTTP downloader for
// remote sources. Managers report outcomes back through the source's
// Mark/Update methods rather than returning errors across the boundary.
package acquire
