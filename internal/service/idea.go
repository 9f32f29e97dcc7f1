package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/halfbake/internal/model"
	"github.com/sakif/halfbake/internal/repository"
	"github.com/sakif/halfbake/internal/validation"
)

// IdeaService handles business logic for ideas.
type IdeaService struct {
	repo     repository.IdeaRepository
	validate *validation.Validator
	events   Events
	logger   *slog.Logger
}

// NewIdeaService creates a new IdeaService.
func NewIdeaService(
	repo repository.IdeaRepository,
	validate *validation.Validator,
	events Events,
	logger *slog.Logger,
) *IdeaService {
	if events == nil {
		events = NopEvents{}
	}
	return &IdeaService{
		repo:     repo,
		validate: validate,
		events:   events,
		logger:   logger,
	}
}

// List returns the newest ideas matching the q and tag query parameters.
// Either may be empty.
func (s *IdeaService) List(ctx context.Context, q, tag string) ([]model.Idea, error) {
	filter := repository.NewIdeaFilter(q, tag)

	ideas, err := s.repo.ListIdeas(ctx, filter, repository.MaxListLimit)
	if err != nil {
		return nil, fmt.Errorf("listing ideas (%s): %w", filter.Kind, err)
	}
	return ideas, nil
}

// Get returns one idea with its tags and comments.
func (s *IdeaService) Get(ctx context.Context, id int64) (*model.IdeaDetail, error) {
	idea, err := s.repo.GetIdea(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting idea %d: %w", id, err)
	}
	return idea, nil
}

// Create validates req and stores it as an idea owned by ownerID.
//
// The owner always comes from the authenticated identity; IdeaRequest has
// no owner field for a client to set.
func (s *IdeaService) Create(ctx context.Context, ownerID int64, req validation.IdeaRequest) (*model.Idea, error) {
	draft, err := s.validate.Idea(req)
	if err != nil {
		return nil, err
	}

	idea := &model.Idea{
		Title:       draft.Title,
		Summary:     draft.Summary,
		Description: draft.Description,
		RepoURL:     draft.RepoURL,
		Status:      draft.Status,
		OwnerID:     ownerID,
	}

	if err := s.repo.CreateIdea(ctx, idea, draft.Tags); err != nil {
		s.logger.Error("failed to create idea",
			slog.Int64("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating idea: %w", err)
	}

	s.events.IdeaCreated()
	s.logger.Info("idea created",
		slog.Int64("ideaID", idea.ID),
		slog.Int64("ownerID", ownerID),
		slog.Int("tags", len(idea.Tags)),
	)
	return idea, nil
}

// Upvote adds one to the idea's counter and returns the new total. The
// same user may upvote repeatedly.
func (s *IdeaService) Upvote(ctx context.Context, id int64) (int, error) {
	upvotes, err := s.repo.UpvoteIdea(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("upvoting idea %d: %w", id, err)
	}
	s.events.IdeaUpvoted()
	return upvotes, nil
}
