package source

import "context"

// Manager performs the variant-specific acquisition I/O for a source.
//
// StartAcquisition must eventually call back into the source with
// UpdateProgress/MarkAcquired/MarkError/MarkCancelled; failures are reported
// through those callbacks, not by leaking errors across the boundary.
// CancelAcquisition aborts the task identified by taskID if it is still
// running; aborting an unknown task is a no-op.
type Manager interface {
	StartAcquisition(ctx context.Context, src *Source, taskID string) error
	CancelAcquisition(taskID string)
}
