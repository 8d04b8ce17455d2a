package api

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrStepNotRecorded is returned when a step history operation refers to a
// step that was never recorded. It indicates the handler and the history
// have gotten out of sync, which is a defect in the calling code rather
// than a user-correctable condition.
var ErrStepNotRecorded = errors.New("journey: step not recorded in history")

// Step is one URL-identified waypoint in a journey's navigation history.
//
// A step's identity is its Path (no query string); the full URL, including
// query string, is kept so the caller can redirect back to the exact page
// the user saw.
type Step struct {
	Path string
	URL  string
}

// NewStep builds a Step from a raw URL, deriving the identity path by
// stripping the query string and fragment.
func NewStep(rawURL string) Step {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	} else {
		// Fall back to a textual strip for URLs net/url rejects.
		if i := strings.IndexAny(path, "?#"); i >= 0 {
			path = path[:i]
		}
	}
	return Step{Path: path, URL: rawURL}
}

// History is the ordered sequence of steps a journey instance has passed
// through. The zero value is an empty history; NewHistory seeds one with
// the journey's entry step.
//
// History has value semantics: Advance returns a new History and never
// mutates the receiver, so a caller holding an old copy cannot observe a
// concurrent advance.
type History struct {
	Steps []Step
}

// NewHistory returns a History seeded with the journey's entry step.
func NewHistory(entry Step) History {
	return History{Steps: []Step{entry}}
}

// Contains reports whether a step with the given path has been recorded.
func (h History) Contains(path string) bool {
	return h.indexOf(path) >= 0
}

// Previous returns the step immediately before the step with the given
// path, or nil if that step is the first one (the caller falls back to a
// generic journey-start link). Asking about a path that was never recorded
// returns ErrStepNotRecorded.
func (h History) Previous(path string) (*Step, error) {
	i := h.indexOf(path)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrStepNotRecorded, path)
	}
	if i == 0 {
		return nil, nil
	}
	prev := h.Steps[i-1]
	return &prev, nil
}

// Last returns the most recently recorded step.
func (h History) Last() (Step, bool) {
	if len(h.Steps) == 0 {
		return Step{}, false
	}
	return h.Steps[len(h.Steps)-1], true
}

// Advance records that the user moved from the step at currentPath to next.
//
// If next is already present anywhere in the history (the user is
// re-visiting a step they had already passed through), the history is
// returned unchanged: forward re-navigation is idempotent. Otherwise every
// step recorded after currentPath is discarded and next is appended; a user
// who went back and took a different branch invalidates the old future.
//
// currentPath must refer to a recorded step; otherwise ErrStepNotRecorded
// is returned.
func (h History) Advance(currentPath string, next Step) (History, error) {
	i := h.indexOf(currentPath)
	if i < 0 {
		return History{}, fmt.Errorf("%w: %q", ErrStepNotRecorded, currentPath)
	}

	if h.Contains(next.Path) {
		return h, nil
	}

	steps := make([]Step, 0, i+2)
	steps = append(steps, h.Steps[:i+1]...)
	steps = append(steps, next)
	return History{Steps: steps}, nil
}

func (h History) indexOf(path string) int {
	for i, s := range h.Steps {
		if s.Path == path {
			return i
		}
	}
	return -1
}
