// Package profile assembles the signed-in viewer's profile page.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/terra-clan/impact-portal/internal/identity"
	"github.com/terra-clan/impact-portal/internal/mappin"
	"github.com/terra-clan/impact-portal/internal/models"
	"github.com/terra-clan/impact-portal/pkg/client"
)

// Tabs of the profile page
const (
	TabChallenges = "challenges"
	TabSolutions  = "solutions"
	TabImpact     = "impact"
)

// WarnChallengesUnavailable is reported when the challenge fetch failed
const WarnChallengesUnavailable = "challenges unavailable"

// Gateway is the subset of the backend client the profile needs
type Gateway interface {
	GetUser(ctx context.Context, token, id string) (*client.UserRecord, error)
	GetUserChallenges(ctx context.Context, token, id string) ([]models.Challenge, error)
}

// Page is everything the profile page renders
type Page struct {
	User       models.User        `json:"user"`
	Challenges []models.Challenge `json:"challenges"`
	Solutions  []models.Solution  `json:"solutions"`
	Impact     mappin.TileView    `json:"impact"`
	Edited     bool               `json:"edited"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// Service loads profiles and keeps local edits
type Service struct {
	gateway Gateway
	logger  *slog.Logger

	mu    sync.RWMutex
	edits map[string]models.User
}

// NewService creates a profile service
func NewService(gateway Gateway, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gateway: gateway,
		logger:  logger,
		edits:   make(map[string]models.User),
	}
}

// Load fetches the user and the user's challenges in parallel. A failed user
// fetch fails the load; a failed challenge fetch degrades to an empty list
// with a warning.
func (s *Service) Load(ctx context.Context, sess *identity.Session) (*Page, error) {
	if !sess.Authenticated() || sess.UserID() == "" {
		return nil, identity.ErrNoSession
	}
	token, id := sess.Token(), sess.UserID()

	var (
		record     *client.UserRecord
		challenges []models.Challenge
		warnings   []string
	)

	var g errgroup.Group
	g.Go(func() error {
		r, err := s.gateway.GetUser(ctx, token, id)
		if err != nil {
			return fmt.Errorf("failed to fetch user: %w", err)
		}
		record = r
		return nil
	})
	g.Go(func() error {
		c, err := s.gateway.GetUserChallenges(ctx, token, id)
		if err != nil {
			s.logger.Warn("failed to fetch user challenges", "user_id", id, "error", err)
			warnings = append(warnings, WarnChallengesUnavailable)
			c = []models.Challenge{}
		}
		challenges = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	page := &Page{
		User:       record.Profile(id),
		Challenges: challenges,
		Solutions:  record.Solutions,
		Impact:     mappin.NewTileView(challenges),
		Warnings:   warnings,
	}
	if page.Solutions == nil {
		page.Solutions = []models.Solution{}
	}

	if edited, ok := s.savedEdit(sess.ViewerKey()); ok {
		edited.Stats = page.User.Stats
		page.User = edited
		page.Edited = true
	}

	return page, nil
}

// SaveEdit applies form on top of the current profile and keeps the result
// for this viewer. Edits are local to this service and never reach the backend.
func (s *Service) SaveEdit(ctx context.Context, sess *identity.Session, form models.EditForm) (*Page, error) {
	page, err := s.Load(ctx, sess)
	if err != nil {
		return nil, err
	}

	buf := BeginEdit(page.User)
	buf.Apply(form)
	page.User = buf.Save()
	page.Edited = true

	s.mu.Lock()
	s.edits[sess.ViewerKey()] = page.User
	s.mu.Unlock()

	return page, nil
}

// DiscardEdit drops the viewer's local edits
func (s *Service) DiscardEdit(sess *identity.Session) {
	s.mu.Lock()
	delete(s.edits, sess.ViewerKey())
	s.mu.Unlock()
}

func (s *Service) savedEdit(viewer string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.edits[viewer]
	return u, ok
}
