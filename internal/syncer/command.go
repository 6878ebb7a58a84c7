package syncer

import "splice/internal/library"

// Command is a pending history entry whose recorded media details were
// captured before the media finished processing. When the watched item
// becomes ready the synchronizer refreshes the command's cached data;
// a disposed command is skipped.
type Command interface {
	ID() string
	IsDisposed() bool
	UpdateMediaData(item *library.Item, timelineItemID string)
}
