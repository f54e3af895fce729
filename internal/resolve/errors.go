package resolve

import (
	"errors"
	"fmt"
	"strings"

	"linearmcp/internal/linear"
)

// ErrNotFound matches every NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

// Entity kinds named in NotFound messages.
const (
	KindIssue   = "issue"
	KindTeam    = "team"
	KindUser    = "user"
	KindState   = "workflow state"
	KindProject = "project"
	KindLabel   = "label"
)

// NotFoundError reports a reference that did not resolve. Ref is the caller's
// original string.
type NotFoundError struct {
	Kind string
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Ref)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(kind, ref string) error {
	return &NotFoundError{Kind: kind, Ref: ref}
}

// upstreamNotFound reports whether Linear rejected a lookup because the entity
// does not exist, as opposed to failing for another reason.
func upstreamNotFound(err error) bool {
	var upstream *linear.UpstreamError
	if !errors.As(err, &upstream) {
		return false
	}
	for _, msg := range upstream.Messages() {
		lowered := strings.ToLower(msg)
		if strings.Contains(lowered, "not found") || strings.Contains(lowered, "could not find") {
			return true
		}
	}
	return false
}
