// Package source turns a raw install request into exactly one validated
// installation source.
package source

import (
	"fmt"
)

// Reasons reported by CommandError.
const (
	ReasonExactlyOne     = "exactly one source must be selected"
	ReasonNameRequired   = "aggregator name required"
	ReasonNameNotAllowed = "aggregator name only valid with aggregator source"
	ReasonUnknownName    = "unknown aggregator font name"
)

// CommandError reports an invalid or ambiguous install request. No
// installation work has started when it is returned.
type CommandError struct {
	Reason string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("invalid command: %s", e.Reason)
}

// Request is the raw form of an install request as parsed from the command
// line. Empty strings mean "not given"; any combination may be set.
type Request struct {
	Aggregator     bool
	AggregatorName string
	LocalPath      string
	URL            string
}

// Membership is satisfied by the font catalog.
type Membership interface {
	Contains(name string) bool
}

// Source is a validated installation source. The only implementations are
// Aggregator, Local and Remote, and only Validate constructs them from a
// Request.
type Source interface {
	fmt.Stringer
	source()
}

// Aggregator installs a catalog font from the aggregator.
type Aggregator struct {
	Name string
}

// Local installs from an archive already on disk.
type Local struct {
	Path string
}

// Remote installs from an archive fetched from a URL.
type Remote struct {
	URL string
}

func (Aggregator) source() {}
func (Local) source()      {}
func (Remote) source()     {}

func (a Aggregator) String() string { return "aggregator:" + a.Name }
func (l Local) String() string      { return "local:" + l.Path }
func (r Remote) String() string     { return "url:" + r.URL }

// Validate checks req and returns the single source it selects.
func Validate(req Request, names Membership) (Source, error) {
	selected := 0
	for _, set := range []bool{req.Aggregator, req.LocalPath != "", req.URL != ""} {
		if set {
			selected++
		}
	}
	if selected != 1 {
		return nil, &CommandError{Reason: ReasonExactlyOne}
	}

	hasName := req.AggregatorName != ""
	if req.Aggregator && !hasName {
		return nil, &CommandError{Reason: ReasonNameRequired}
	}
	if !req.Aggregator && hasName {
		return nil, &CommandError{Reason: ReasonNameNotAllowed}
	}
	if hasName && (names == nil || !names.Contains(req.AggregatorName)) {
		return nil, &CommandError{Reason: ReasonUnknownName}
	}

	switch {
	case req.Aggregator:
		return Aggregator{Name: req.AggregatorName}, nil
	case req.LocalPath != "":
		return Local{Path: req.LocalPath}, nil
	default:
		return Remote{URL: req.URL}, nil
	}
}
