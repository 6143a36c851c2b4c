package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/terra-clan/impact-portal/internal/models"
	"github.com/terra-clan/impact-portal/internal/storage"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrInvalidKind  = errors.New("invalid reaction kind")
)

// PostSource provides the feed posts
type PostSource interface {
	ListPosts() []models.Post
	GetPost(id string) (models.Post, bool)
}

// Publisher receives reaction events for the live sockets of one viewer
type Publisher interface {
	Publish(viewer string, event models.ReactionEvent)
}

// Service serves the feed with each viewer's overlay and persists toggles
type Service struct {
	posts     PostSource
	store     storage.ReactionStore
	publisher Publisher
	logger    *slog.Logger
}

// NewService creates a feed service; publisher may be nil
func NewService(posts PostSource, store storage.ReactionStore, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		posts:     posts,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// State loads the stored overlay of a viewer
func (s *Service) State(ctx context.Context, viewer string) (*ViewState, error) {
	reactions, err := s.store.ListReactions(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("failed to load reactions: %w", err)
	}
	return NewViewState(reactions), nil
}

// List returns every post with the viewer overlay applied
func (s *Service) List(ctx context.Context, viewer, expanded string) ([]models.PostView, error) {
	state, err := s.State(ctx, viewer)
	if err != nil {
		return nil, err
	}
	state.Expand(expanded)

	posts := s.posts.ListPosts()
	views := make([]models.PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, state.View(p))
	}
	return views, nil
}

// Toggle flips a like or bookmark and persists the new membership
func (s *Service) Toggle(ctx context.Context, viewer, postID string, kind models.ReactionKind) (models.ReactionEvent, error) {
	if !kind.Valid() {
		return models.ReactionEvent{}, ErrInvalidKind
	}
	post, ok := s.posts.GetPost(postID)
	if !ok {
		return models.ReactionEvent{}, ErrPostNotFound
	}

	state, err := s.State(ctx, viewer)
	if err != nil {
		return models.ReactionEvent{}, err
	}

	on := state.Toggle(postID, kind)
	switch {
	case on:
		st, _ := state.State(postID, kind)
		err = s.putReaction(ctx, viewer, postID, kind, st)
	case state.Withdrawn(postID, kind):
		// The server count still holds it; keep the row so a re-toggle
		// restores the confirmed state
		err = s.putReaction(ctx, viewer, postID, kind, models.ReactionWithdrawn)
	default:
		err = s.store.DeleteReaction(ctx, viewer, postID, kind)
	}
	if err != nil {
		return models.ReactionEvent{}, fmt.Errorf("failed to persist %s: %w", kind, err)
	}

	event := models.ReactionEvent{
		Type:     "reaction",
		EntityID: postID,
		Kind:     kind,
		Active:   on,
		Count:    state.DisplayCount(BaseCount(post, kind), postID, kind),
	}

	s.logger.Debug("reaction toggled",
		"viewer", viewer,
		"post_id", postID,
		"kind", kind,
		"active", on,
	)

	if s.publisher != nil {
		s.publisher.Publish(viewer, event)
	}
	return event, nil
}

func (s *Service) putReaction(ctx context.Context, viewer, postID string, kind models.ReactionKind, st models.ReactionState) error {
	return s.store.PutReaction(ctx, models.Reaction{
		ViewerID:  viewer,
		EntityID:  postID,
		Kind:      kind,
		State:     st,
		UpdatedAt: time.Now().UTC(),
	})
}

// Confirm marks the viewer's reaction as counted by the server
func (s *Service) Confirm(ctx context.Context, viewer, postID string, kind models.ReactionKind) error {
	if err := s.store.ConfirmReaction(ctx, viewer, postID, kind); err != nil {
		return fmt.Errorf("failed to confirm %s: %w", kind, err)
	}
	return nil
}

// Post returns one post with the viewer overlay; expanded is the viewer's
// currently expanded post id
func (s *Service) Post(ctx context.Context, viewer, postID, expanded string) (models.PostView, error) {
	post, ok := s.posts.GetPost(postID)
	if !ok {
		return models.PostView{}, ErrPostNotFound
	}
	state, err := s.State(ctx, viewer)
	if err != nil {
		return models.PostView{}, err
	}
	state.Expand(expanded)
	return state.View(post), nil
}
