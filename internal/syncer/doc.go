// Package syncer bridges library item lifecycles to their dependents. A
// timeline item or a pending history command registers interest in one media
// item under an explicit key; the synchronizer watches the media item, feeds
// progress into timeline status contexts, and on a terminal status performs
// the registration's end step exactly once before cleaning itself up. Ready
// media gets a runtime handle built through the rendering collaborator;
// failed media marks the dependent timeline items as errored.
package syncer
