// Package mention turns @references in comment text into notification
// recipients.
package mention

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/store"
)

// mentionPattern captures a word after @, optionally followed by a second
// word so two-part display names like "@Mary Jane" can match.
var mentionPattern = regexp.MustCompile(`@(\w+(?: [A-Za-z0-9]\w*)?)`)

// Resolver maps mention text to user IDs through the directory.
type Resolver struct {
	users store.UserStore
}

// NewResolver returns a resolver backed by users.
func NewResolver(users store.UserStore) *Resolver {
	return &Resolver{users: users}
}

// Resolve returns the users mentioned in text, deduplicated in first-seen
// order, without authorID. Each match tries the two-word name before the
// single word. Names the directory does not know are dropped.
func (r *Resolver) Resolve(ctx context.Context, text string, authorID uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	out := []uuid.UUID{}

	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		id, ok, err := r.lookup(ctx, candidates(m[1])...)
		if err != nil {
			return nil, err
		}
		if !ok || id == authorID || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// candidates lists the names to try for a match, longest first.
func candidates(match string) []string {
	if first, _, ok := strings.Cut(match, " "); ok {
		return []string{match, first}
	}
	return []string{match}
}

func (r *Resolver) lookup(ctx context.Context, names ...string) (uuid.UUID, bool, error) {
	for _, name := range names {
		id, err := r.users.LookupByName(ctx, name)
		if errors.Is(err, store.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("look up mentioned user %q: %w", name, err)
		}
		return id, true, nil
	}
	return uuid.Nil, false, nil
}
