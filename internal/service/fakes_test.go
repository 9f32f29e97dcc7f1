package service

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sakif/halfbake/internal/apperror"
	"github.com/sakif/halfbake/internal/model"
	"github.com/sakif/halfbake/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// Hand-written in-memory implementations of the repository interfaces.
// Each has an err field per method to simulate database failures.

type fakeUserRepo struct {
	mu      sync.Mutex
	byID    map[int64]*model.User
	byEmail map[string]*model.User
	nextID  int64

	createErr error
	getErr    error
	// hideOnce makes the next GetUserByEmail miss, simulating a row
	// inserted concurrently after the up-front check.
	hideOnce bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[int64]*model.User),
		byEmail: make(map[string]*model.User),
	}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, taken := f.byEmail[u.Email]; taken {
		return apperror.Conflict("Email already in use")
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	stored := *u
	f.byID[u.ID] = &stored
	f.byEmail[u.Email] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.hideOnce {
		f.hideOnce = false
		return nil, apperror.NotFound("user", email)
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	copied := *u
	return &copied, nil
}

type fakeIdeaRepo struct {
	ideas  map[int64]*model.Idea
	nextID int64

	lastFilter repository.IdeaFilter
	lastLimit  int
	lastTags   []string

	listErr   error
	createErr error
}

func newFakeIdeaRepo() *fakeIdeaRepo {
	return &fakeIdeaRepo{ideas: make(map[int64]*model.Idea)}
}

func (f *fakeIdeaRepo) ListIdeas(_ context.Context, filter repository.IdeaFilter, limit int) ([]model.Idea, error) {
	f.lastFilter = filter
	f.lastLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Idea, 0, len(f.ideas))
	for _, idea := range f.ideas {
		out = append(out, *idea)
	}
	return out, nil
}

func (f *fakeIdeaRepo) GetIdea(_ context.Context, id int64) (*model.IdeaDetail, error) {
	idea, ok := f.ideas[id]
	if !ok {
		return nil, apperror.NotFound("idea", strconv.FormatInt(id, 10))
	}
	return &model.IdeaDetail{Idea: *idea, Comments: []model.Comment{}}, nil
}

func (f *fakeIdeaRepo) CreateIdea(_ context.Context, idea *model.Idea, tagNames []string) error {
	f.lastTags = tagNames
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	idea.ID = f.nextID
	idea.CreatedAt = time.Now()
	idea.Owner = model.UserSummary{ID: idea.OwnerID}
	idea.Tags = make([]model.Tag, len(tagNames))
	for i, name := range tagNames {
		idea.Tags[i] = model.Tag{ID: int64(i + 1), Name: name}
	}
	stored := *idea
	f.ideas[idea.ID] = &stored
	return nil
}

func (f *fakeIdeaRepo) UpvoteIdea(_ context.Context, id int64) (int, error) {
	idea, ok := f.ideas[id]
	if !ok {
		return 0, apperror.NotFound("idea", strconv.FormatInt(id, 10))
	}
	idea.Upvotes++
	return idea.Upvotes, nil
}

// recordingEvents counts every event it receives.
type recordingEvents struct {
	mu      sync.Mutex
	auth    map[string]int
	created int
	upvoted int
}

func newRecordingEvents() *recordingEvents {
	return &recordingEvents{auth: make(map[string]int)}
}

func (r *recordingEvents) AuthAttempt(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auth[outcome]++
}

func (r *recordingEvents) IdeaCreated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
}

func (r *recordingEvents) IdeaUpvoted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upvoted++
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
