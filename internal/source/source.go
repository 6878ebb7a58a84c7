package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies how a source obtains its bytes.
type Kind string

const (
	KindUserSupplied      Kind = "user_supplied"
	KindProjectReferenced Kind = "project_referenced"
	KindRemote            Kind = "remote"
)

// ChangeFunc receives every applied status change plus progress updates
// (delivered with old == new). Calls for one source never overlap and arrive
// in the order the changes were applied.
type ChangeFunc func(old, new Status, event Event)

// Snapshot is a point-in-time copy of a source's observable state.
type Snapshot struct {
	Kind         Kind
	Status       Status
	Progress     int
	Path         string
	URL          string
	ErrorMessage string
	TaskID       string
}

// Source is one media item's way of obtaining bytes. All mutation goes
// through the Mark/Update methods so the legality table is enforced on every
// edge.
type Source struct {
	// transitionMu serializes status changes together with their change
	// notification so observers see changes in order. mu guards field access
	// only and is never held while a callback runs.
	transitionMu sync.Mutex
	mu           sync.Mutex

	kind     Kind
	status   Status
	progress int
	path     string
	url      string
	errMsg   string
	taskID   string
	attempts int

	probe    func(path string) error
	manager  Manager
	onChange ChangeFunc
}

// Option adjusts construction of a Source.
type Option func(*Source)

// WithManager wires the acquisition manager the source delegates I/O to.
func WithManager(m Manager) Option {
	return func(s *Source) { s.manager = m }
}

// WithChangeFunc wires the change callback at construction time.
func WithChangeFunc(fn ChangeFunc) Option {
	return func(s *Source) { s.onChange = fn }
}

// WithProbe overrides the existence probe used by project-referenced sources.
func WithProbe(probe func(path string) error) Option {
	return func(s *Source) { s.probe = probe }
}

// NewUserSupplied wraps a file that is already on disk. Acquisition is a
// validation-only fast path.
func NewUserSupplied(path string, opts ...Option) *Source {
	return newSource(KindUserSupplied, path, "", opts...)
}

// NewProjectReferenced wraps a path recorded in a saved project. Acquisition
// probes the path before anything else and may discover the bytes are gone.
func NewProjectReferenced(path string, opts ...Option) *Source {
	s := newSource(KindProjectReferenced, path, "", opts...)
	if s.probe == nil {
		s.probe = statProbe
	}
	return s
}

// NewRemote wraps a URL that must be downloaded. This is the only variant
// with meaningful partial progress and cancellable I/O.
func NewRemote(url string, opts ...Option) *Source {
	return newSource(KindRemote, "", url, opts...)
}

// Restore rebuilds a source from persisted state without replaying
// transitions. In-flight acquisition does not survive a restart, so an
// acquiring status comes back as pending.
func Restore(kind Kind, status Status, path, url string, opts ...Option) (*Source, error) {
	if _, ok := statusSet[status]; !ok {
		return nil, fmt.Errorf("unknown source status: %s", status)
	}
	if status == StatusAcquiring {
		status = StatusPending
	}
	s := newSource(kind, path, url, opts...)
	if kind == KindProjectReferenced && s.probe == nil {
		s.probe = statProbe
	}
	s.status = status
	if status == StatusAcquired {
		s.progress = 100
	}
	return s, nil
}

func newSource(kind Kind, path, url string, opts ...Option) *Source {
	s := &Source{
		kind:   kind,
		status: StatusPending,
		path:   path,
		url:    url,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func statProbe(path string) error {
	_, err := os.Stat(path)
	return err
}

// SetManager wires the acquisition manager after construction.
func (s *Source) SetManager(m Manager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manager = m
}

// SetChangeFunc wires the change callback after construction.
func (s *Source) SetChangeFunc(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Kind returns the source variant.
func (s *Source) Kind() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

// Status returns the current acquisition status.
func (s *Source) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Progress returns the current acquisition progress in percent.
func (s *Source) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Path returns the local path holding the bytes, if any.
func (s *Source) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// URL returns the remote locator, if any.
func (s *Source) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// TaskID returns the identifier of the current acquisition task, if any.
func (s *Source) TaskID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskID
}

// ErrorMessage returns the recorded failure message, if any.
func (s *Source) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Snapshot returns a copy of the source's observable state.
func (s *Source) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Kind:         s.kind,
		Status:       s.status,
		Progress:     s.progress,
		Path:         s.path,
		URL:          s.url,
		ErrorMessage: s.errMsg,
		TaskID:       s.taskID,
	}
}

// StartAcquisition begins the variant-specific acquisition path. It is an
// idempotent no-op while acquiring or acquired; from any status other than
// pending it fails with a TransitionError. A project-referenced source whose
// path fails the existence probe goes straight to missing without entering
// acquiring.
func (s *Source) StartAcquisition(ctx context.Context) error {
	s.transitionMu.Lock()

	s.mu.Lock()
	switch s.status {
	case StatusAcquiring, StatusAcquired:
		s.mu.Unlock()
		s.transitionMu.Unlock()
		return nil
	case StatusPending:
	default:
		err := &TransitionError{From: s.status, To: StatusAcquiring}
		s.mu.Unlock()
		s.transitionMu.Unlock()
		return err
	}
	s.taskID = uuid.NewString()
	s.progress = 0
	s.errMsg = ""
	taskID := s.taskID
	path := s.path
	probe := s.probe
	s.mu.Unlock()

	if probe != nil {
		if err := probe(path); err != nil {
			message := fmt.Sprintf("file not found: %s", path)
			applyErr := s.apply(StatusMissing, func() Event {
				s.errMsg = message
				return MissingEvent{Path: path, Message: message}
			})
			s.transitionMu.Unlock()
			return applyErr
		}
	}

	_ = s.apply(StatusAcquiring, func() Event {
		return StartedEvent{TaskID: taskID}
	})
	manager := s.managerRef()
	s.transitionMu.Unlock()

	if manager == nil {
		return nil
	}
	return manager.StartAcquisition(ctx, s, taskID)
}

// UpdateProgress records acquisition progress. Values are clamped to 0..100
// and never decrease while acquiring; updates outside an active acquisition
// fail with ErrNotAcquiring.
func (s *Source) UpdateProgress(percent int) error {
	return s.updateProgress(percent, 0, 0, "", 0)
}

// UpdateTransfer records byte-level transfer progress, deriving the percent
// from the byte counts when the total is known.
func (s *Source) UpdateTransfer(bytesCopied, totalBytes int64, speed string, eta time.Duration) error {
	percent := 0
	if totalBytes > 0 {
		percent = int(bytesCopied * 100 / totalBytes)
	}
	return s.updateProgress(percent, bytesCopied, totalBytes, speed, eta)
}

func (s *Source) updateProgress(percent int, bytesCopied, totalBytes int64, speed string, eta time.Duration) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	s.mu.Lock()
	if s.status != StatusAcquiring {
		s.mu.Unlock()
		return ErrNotAcquiring
	}
	if percent <= s.progress {
		s.mu.Unlock()
		return nil
	}
	s.progress = percent
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(StatusAcquiring, StatusAcquiring, ProgressEvent{
			Progress:    percent,
			BytesCopied: bytesCopied,
			TotalBytes:  totalBytes,
			Speed:       speed,
			ETA:         eta,
		})
	}
	return nil
}

// MarkAcquired records that the bytes landed locally. Empty path/url leave
// the recorded values untouched.
func (s *Source) MarkAcquired(path, url string) error {
	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	return s.apply(StatusAcquired, func() Event {
		if path != "" {
			s.path = path
		}
		if url != "" {
			s.url = url
		}
		s.progress = 100
		return AcquiredEvent{Path: s.path, URL: s.url}
	})
}

// MarkError records a failure message and moves the source to error.
func (s *Source) MarkError(message string) error {
	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	return s.apply(StatusError, func() Event {
		s.errMsg = message
		return ErrorEvent{Message: message}
	})
}

// MarkCancelled records a cooperative cancellation.
func (s *Source) MarkCancelled() error {
	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	return s.apply(StatusCancelled, func() Event {
		return CancelledEvent{}
	})
}

// MarkMissing records that the referenced path could not be located.
func (s *Source) MarkMissing(message string) error {
	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	return s.apply(StatusMissing, func() Event {
		s.errMsg = message
		return MissingEvent{Path: s.path, Message: message}
	})
}

// Cancel aborts an in-flight acquisition. It is a no-op unless the source is
// acquiring; the manager task is signalled first, then the source is marked
// cancelled optimistically. A task that ignores the abort and reports
// acquisition later is rejected by the legality table.
func (s *Source) Cancel() error {
	s.mu.Lock()
	if s.status != StatusAcquiring {
		s.mu.Unlock()
		return nil
	}
	taskID := s.taskID
	manager := s.manager
	s.mu.Unlock()

	if manager != nil {
		manager.CancelAcquisition(taskID)
	}
	err := s.MarkCancelled()
	if errors.Is(err, ErrInvalidTransition) && s.Status() == StatusCancelled {
		// Lost the race against another cancel path; already done.
		return nil
	}
	return err
}

// Retry resets a failed, cancelled, or missing source back to pending and
// starts acquisition again. Progress restarts at zero.
func (s *Source) Retry(ctx context.Context) error {
	s.transitionMu.Lock()

	s.mu.Lock()
	if !IsRetryable(s.status) {
		err := &TransitionError{From: s.status, To: StatusPending}
		s.mu.Unlock()
		s.transitionMu.Unlock()
		return err
	}
	s.attempts++
	attempt := s.attempts
	s.mu.Unlock()

	_ = s.apply(StatusPending, func() Event {
		s.progress = 0
		s.errMsg = ""
		s.taskID = ""
		return RetryEvent{Attempt: attempt}
	})
	s.transitionMu.Unlock()

	return s.StartAcquisition(ctx)
}

// Relink replaces the recorded path so a missing source can recover through
// Retry. The URL is left untouched.
func (s *Source) Relink(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
}

// Close aborts any outstanding acquisition. Sources are closed together with
// their owning media item.
func (s *Source) Close() {
	_ = s.Cancel()
}

func (s *Source) managerRef() Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager
}

// apply validates and applies a transition, then delivers the change
// notification. Callers must hold transitionMu. mutate runs with mu held
// after the legality check and returns the event to deliver.
func (s *Source) apply(to Status, mutate func() Event) error {
	s.mu.Lock()
	if !CanTransition(s.status, to) {
		err := &TransitionError{From: s.status, To: to}
		s.mu.Unlock()
		return err
	}
	event := mutate()
	old := s.status
	s.status = to
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(old, to, event)
	}
	return nil
}
