// Package repository declares the storage contracts the service layer
// depends on. Implementations live in subpackages (see sqlstore).
package repository

import (
	"context"

	"github.com/sakif/halfbake/internal/model"
)

// MaxListLimit caps how many ideas a single List call returns.
const MaxListLimit = 50

// UserRepository reads and writes user accounts.
type UserRepository interface {
	// CreateUser inserts u and sets u.ID and u.CreatedAt. A duplicate email
	// yields an apperror.ErrConflict error.
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// IdeaRepository reads and writes ideas and their tags.
type IdeaRepository interface {
	// ListIdeas returns ideas matching f, newest first, at most limit rows
	// (clamped to MaxListLimit). Each idea carries its owner and tags.
	ListIdeas(ctx context.Context, f IdeaFilter, limit int) ([]model.Idea, error)

	// GetIdea returns the idea with its tags and comments, or an
	// apperror.ErrNotFound error.
	GetIdea(ctx context.Context, id int64) (*model.IdeaDetail, error)

	// CreateIdea inserts idea and links tagNames in one transaction,
	// creating tags that do not exist yet. It sets ID, CreatedAt, Owner,
	// and Tags on idea.
	CreateIdea(ctx context.Context, idea *model.Idea, tagNames []string) error

	// UpvoteIdea atomically adds one to the idea's counter and returns the
	// new value, or an apperror.ErrNotFound error.
	UpvoteIdea(ctx context.Context, id int64) (int, error)
}

// FilterKind tags which variant an IdeaFilter holds.
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterByText
	FilterByTag
	FilterByBoth
)

func (k FilterKind) String() string {
	switch k {
	case FilterByText:
		return "text"
	case FilterByTag:
		return "tag"
	case FilterByBoth:
		return "text+tag"
	default:
		return "none"
	}
}

// IdeaFilter selects ideas for ListIdeas.
//
//   - FilterByText: Text is a case-sensitive substring of title or summary
//   - FilterByTag:  the idea is linked to a tag named exactly Tag
//   - FilterByBoth: both conditions hold
//
// Build it with NewIdeaFilter so Kind always agrees with the fields.
type IdeaFilter struct {
	Kind FilterKind
	Text string
	Tag  string
}

// NewIdeaFilter builds the filter for the q and tag query parameters. An
// empty parameter does not constrain the result.
func NewIdeaFilter(q, tag string) IdeaFilter {
	switch {
	case q != "" && tag != "":
		return IdeaFilter{Kind: FilterByBoth, Text: q, Tag: tag}
	case q != "":
		return IdeaFilter{Kind: FilterByText, Text: q}
	case tag != "":
		return IdeaFilter{Kind: FilterByTag, Tag: tag}
	default:
		return IdeaFilter{Kind: FilterNone}
	}
}

// MatchesText reports whether the filter constrains title/summary text.
func (f IdeaFilter) MatchesText() bool {
	return f.Kind == FilterByText || f.Kind == FilterByBoth
}

// MatchesTag reports whether the filter constrains the tag.
func (f IdeaFilter) MatchesTag() bool {
	return f.Kind == FilterByTag || f.Kind == FilterByBoth
}
