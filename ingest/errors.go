package ingest

import "fmt"

// ParseError reports a transcript that could not be parsed. Lesson is empty
// for document-level failures; otherwise it holds the offending marker line
// and only that lesson was skipped.
type ParseError struct {
	Path   string
	Lesson string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Lesson == "" {
		return fmt.Sprintf("parse %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("parse %s: lesson %q: %s", e.Path, e.Lesson, e.Reason)
}
