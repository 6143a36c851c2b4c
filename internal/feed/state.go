// Package feed holds the viewer's interaction state over the social feed.
package feed

import (
	"github.com/terra-clan/impact-portal/internal/models"
)

type entryKey struct {
	id   string
	kind models.ReactionKind
}

// ViewState is one viewer's likes, bookmarks and expanded post. Toggles are
// set-membership flips, so toggling twice restores both membership and the
// displayed count.
type ViewState struct {
	active   map[entryKey]models.ReactionState
	removed  map[entryKey]models.ReactionState
	Expanded string
}

// NewViewState builds a state from stored reactions
func NewViewState(reactions []models.Reaction) *ViewState {
	s := &ViewState{
		active:  make(map[entryKey]models.ReactionState),
		removed: make(map[entryKey]models.ReactionState),
	}
	for _, r := range reactions {
		if !r.Kind.Valid() {
			continue
		}
		k := entryKey{r.EntityID, r.Kind}
		if r.State == models.ReactionWithdrawn {
			s.removed[k] = models.ReactionConfirmed
			continue
		}
		s.active[k] = r.State
	}
	return s
}

// Toggle flips membership of id for kind and returns the new membership
func (s *ViewState) Toggle(id string, kind models.ReactionKind) bool {
	k := entryKey{id, kind}
	if state, on := s.active[k]; on {
		delete(s.active, k)
		s.removed[k] = state
		return false
	}

	state, wasRemoved := s.removed[k]
	if !wasRemoved {
		state = models.ReactionPending
	}
	delete(s.removed, k)
	s.active[k] = state
	return true
}

// ToggleLike flips the like on id
func (s *ViewState) ToggleLike(id string) bool {
	return s.Toggle(id, models.ReactionLike)
}

// ToggleBookmark flips the bookmark on id
func (s *ViewState) ToggleBookmark(id string) bool {
	return s.Toggle(id, models.ReactionBookmark)
}

// Has reports whether id is in the kind set
func (s *ViewState) Has(id string, kind models.ReactionKind) bool {
	_, ok := s.active[entryKey{id, kind}]
	return ok
}

// State returns the reaction state of an active entry
func (s *ViewState) State(id string, kind models.ReactionKind) (models.ReactionState, bool) {
	st, ok := s.active[entryKey{id, kind}]
	return st, ok
}

// Withdrawn reports whether id is a confirmed reaction the viewer took back
func (s *ViewState) Withdrawn(id string, kind models.ReactionKind) bool {
	return s.removed[entryKey{id, kind}] == models.ReactionConfirmed
}

// Confirm records that the server count now includes the reaction
func (s *ViewState) Confirm(id string, kind models.ReactionKind) bool {
	k := entryKey{id, kind}
	if _, ok := s.active[k]; !ok {
		return false
	}
	s.active[k] = models.ReactionConfirmed
	return true
}

// DisplayCount is the server count plus the viewer's own uncounted reaction.
// A confirmed reaction the viewer withdrew is taken back off.
func (s *ViewState) DisplayCount(base int, id string, kind models.ReactionKind) int {
	k := entryKey{id, kind}
	if st, on := s.active[k]; on {
		if st == models.ReactionPending {
			return base + 1
		}
		return base
	}
	if s.removed[k] == models.ReactionConfirmed && base > 0 {
		return base - 1
	}
	return base
}

// Expand selects the post shown in detail; one at a time
func (s *ViewState) Expand(id string) {
	s.Expanded = id
}

// Collapse clears the expanded post
func (s *ViewState) Collapse() {
	s.Expanded = ""
}

// View applies the overlay to a post
func (s *ViewState) View(p models.Post) models.PostView {
	return models.PostView{
		Post:         p,
		Liked:        s.Has(p.ID, models.ReactionLike),
		Bookmarked:   s.Has(p.ID, models.ReactionBookmark),
		Expanded:     s.Expanded != "" && s.Expanded == p.ID,
		DisplayLikes: s.DisplayCount(p.Likes, p.ID, models.ReactionLike),
		DisplayMarks: s.DisplayCount(p.Bookmarks, p.ID, models.ReactionBookmark),
	}
}

// BaseCount returns the server count of kind on p
func BaseCount(p models.Post, kind models.ReactionKind) int {
	if kind == models.ReactionBookmark {
		return p.Bookmarks
	}
	return p.Likes
}
