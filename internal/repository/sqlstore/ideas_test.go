package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/halfbake/internal/apperror"
	"github.com/sakif/halfbake/internal/model"
	"github.com/sakif/halfbake/internal/repository"
)

func createTestIdea(t *testing.T, s *Store, owner *model.User, title, summary string, tags ...string) *model.Idea {
	t.Helper()
	idea := &model.Idea{
		Title:   title,
		Summary: summary,
		Status:  model.StatusLookingForHelp,
		OwnerID: owner.ID,
	}
	require.NoError(t, s.CreateIdea(context.Background(), idea, tags))
	return idea
}

func titles(ideas []model.Idea) []string {
	out := make([]string, len(ideas))
	for i, idea := range ideas {
		out[i] = idea.Title
	}
	return out
}

func tagNames(tags []model.Tag) []string {
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = tag.Name
	}
	return out
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateIdea(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "ada@example.com", "Ada")
	desc := "Longer description"
	url := "https://github.com/example/idea"

	idea := &model.Idea{
		Title:       "Rust notebook",
		Summary:     "Notebook for Rust snippets",
		Description: &desc,
		RepoURL:     &url,
		Status:      model.StatusDraft,
		OwnerID:     owner.ID,
	}
	require.NoError(t, s.CreateIdea(context.Background(), idea, []string{"rust", "tools"}))

	assert.Positive(t, idea.ID)
	assert.False(t, idea.CreatedAt.IsZero())
	assert.Equal(t, 0, idea.Upvotes)
	assert.Equal(t, model.UserSummary{ID: owner.ID, Name: "Ada"}, idea.Owner)
	assert.Equal(t, []string{"rust", "tools"}, tagNames(idea.Tags))

	got, err := s.GetIdea(context.Background(), idea.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, got.Status)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)
	require.NotNil(t, got.RepoURL)
	assert.Equal(t, url, *got.RepoURL)
	assert.Equal(t, owner.ID, got.OwnerID)
}

func TestCreateIdea_RepeatedTagLinksOnce(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "ada@example.com", "Ada")

	idea := createTestIdea(t, s, owner, "AI helper", "An assistant for chores", "ai", "ai")

	var links int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM idea_tags it JOIN tags t ON t.id = it.tag_id
		WHERE it.idea_id = ? AND t.name = 'ai'`, idea.ID).Scan(&links)
	require.NoError(t, err)
	assert.Equal(t, 1, links)
}

func TestCreateIdea_TagsAreShared(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "ada@example.com", "Ada")

	first := createTestIdea(t, s, owner, "First", "The first idea here", "go")
	second := createTestIdea(t, s, owner, "Second", "The second idea here", "go", "web")

	assert.Equal(t, first.Tags[0].ID, second.Tags[0].ID)

	var tagCount int
	require.NoError(t, s.conn.QueryRow(`SELECT COUNT(*) FROM tags`).Scan(&tagCount))
	assert.Equal(t, 2, tagCount)
}

func TestCreateIdea_UnknownOwner(t *testing.T) {
	s := newTestStore(t)

	idea := &model.Idea{Title: "Orphan", Summary: "Nobody owns this", Status: model.StatusDraft, OwnerID: 404}
	err := s.CreateIdea(context.Background(), idea, []string{"x"})

	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	var ideaCount int
	require.NoError(t, s.conn.QueryRow(`SELECT COUNT(*) FROM ideas`).Scan(&ideaCount))
	assert.Zero(t, ideaCount)
}

func TestCreateIdea_UnknownStatus(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "ada@example.com", "Ada")

	idea := &model.Idea{Title: "Odd", Summary: "Has a made-up status", Status: "ARCHIVED", OwnerID: owner.ID}
	err := s.CreateIdea(context.Background(), idea, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ARCHIVED"`)

	var ideaCount int
	require.NoError(t, s.conn.QueryRow(`SELECT COUNT(*) FROM ideas`).Scan(&ideaCount))
	assert.Zero(t, ideaCount)
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestListIdeas_NewestFirstWithOwnerAndTags(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "ada@example.com", "Ada")

	createTestIdea(t, s, owner, "Oldest", "Posted first of all", "a")
	createTestIdea(t, s, owner, "Middle", "Posted second of all")
	createTestIdea(t, s, owner, "Newest", "Posted last of all", "b", "a")

	ideas, err := s.ListIdeas(context.Background(), repository.NewIdeaFilter("", ""), 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"Newest", "Middle", "Oldest"}, titles(ideas))
	assert.Equal(t, []string{"a", "b"}, tagNames(ideas[0].Tags))
	assert.NotNil(t, ideas[1].Tags, "ideas without tags serialize as []")
	assert.Empty(t, ideas[1].Tags)
	assert.Equal(t, "Ada", ideas[2].Owner.Name)
}

func TestListIdeas_Filters(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "ada@example.com", "Ada")

	createTestIdea(t, s, owner, "Chat bot", "Talks to people", "ai")
	createTestIdea(t, s, owner, "Garden planner", "Plans a bot-free garden", "home")
	createTestIdea(t, s, owner, "Image tagger", "Labels photos automatically", "ai")

	cases := []struct {
		name   string
		filter repository.IdeaFilter
		want   []string
	}{
		{"none", repository.NewIdeaFilter("", ""), []string{"Image tagger", "Garden planner", "Chat bot"}},
		{"text in title or summary", repository.NewIdeaFilter("bot", ""), []string{"Garden planner", "Chat bot"}},
		{"text is case sensitive", repository.NewIdeaFilter("Bot", ""), []string{}},
		{"percent is literal", repository.NewIdeaFilter("%", ""), []string{}},
		{"tag", repository.NewIdeaFilter("", "ai"), []string{"Image tagger", "Chat bot"}},
		{"tag is exact", repository.NewIdeaFilter("", "a"), []string{}},
		{"both", repository.NewIdeaFilter("bot", "ai"), []string{"Chat bot"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ideas, err := s.ListIdeas(context.Background(), tc.filter, 0)
			require.NoError(t, err)
			assert.Equal(t, tc.want, titles(ideas))
		})
	}
}

func TestListIdeas_CappedAtFifty(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "ada@example.com", "Ada")

	for i := 0; i < repository.MaxListLimit+5; i++ {
		createTestIdea(t, s, owner, fmt.Sprintf("Idea %02d", i), "Summary long enough")
	}

	ideas, err := s.ListIdeas(context.Background(), repository.NewIdeaFilter("", ""), 500)
	require.NoError(t, err)
	assert.Len(t, ideas, repository.MaxListLimit)
	assert.Equal(t, "Idea 54", ideas[0].Title)

	few, err := s.ListIdeas(context.Background(), repository.NewIdeaFilter("", ""), 3)
	require.NoError(t, err)
	assert.Len(t, few, 3)
}

// =========================================================================
// GET TESTS
// =========================================================================

func TestGetIdea_WithComments(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "ada@example.com", "Ada")
	commenter := createTestUser(t, s, "grace@example.com", "Grace")
	idea := createTestIdea(t, s, owner, "Compiler", "A toy compiler project", "lang")

	// Comments have no write path in the store.
	_, err := s.conn.Exec(`INSERT INTO comments (body, author_id, idea_id, created_at) VALUES
		('first!', ?, ?, '2025-02-01 10:00:00+00:00'),
		('second', ?, ?, '2025-02-01 11:00:00+00:00')`,
		commenter.ID, idea.ID, owner.ID, idea.ID)
	require.NoError(t, err)

	got, err := s.GetIdea(context.Background(), idea.ID)
	require.NoError(t, err)

	assert.Equal(t, "Compiler", got.Title)
	assert.Equal(t, []string{"lang"}, tagNames(got.Tags))
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "first!", got.Comments[0].Body)
	assert.Equal(t, model.UserSummary{ID: commenter.ID, Name: "Grace"}, got.Comments[0].Author)
	assert.Equal(t, "Ada", got.Comments[1].Author.Name)
}

func TestGetIdea_NoCommentsIsEmptySlice(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "ada@example.com", "Ada")
	idea := createTestIdea(t, s, owner, "Quiet", "Nobody commented yet")

	got, err := s.GetIdea(context.Background(), idea.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Comments)
	assert.Empty(t, got.Comments)
}

func TestGetIdea_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetIdea(context.Background(), 12345)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

// =========================================================================
// UPVOTE TESTS
// =========================================================================

func TestUpvoteIdea(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "ada@example.com", "Ada")
	idea := createTestIdea(t, s, owner, "Upvote me", "Please press the button")

	n, err := s.UpvoteIdea(context.Background(), idea.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.UpvoteIdea(context.Background(), idea.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpvoteIdea_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpvoteIdea(context.Background(), 77)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestUpvoteIdea_ConcurrentIncrementsAreNotLost(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "ada@example.com", "Ada")
	idea := createTestIdea(t, s, owner, "Popular", "Everyone wants this")

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.UpvoteIdea(context.Background(), idea.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("UpvoteIdea() error = %v", err)
	}

	got, err := s.GetIdea(context.Background(), idea.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.Upvotes)
}
