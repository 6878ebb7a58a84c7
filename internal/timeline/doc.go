// Package timeline models clips placed on the editing timeline. A timeline
// item is a non-owning reference to a library item: it tracks only what the
// player needs (a three-state loading/ready/error status, a presentation
// config, and the runtime handle used for playback once the backing media is
// ready). Synchronization with the library item's lifecycle lives in the
// syncer package.
package timeline
