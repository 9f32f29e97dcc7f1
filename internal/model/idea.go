package model

import "time"

// Status is the lifecycle stage of an Idea.
type Status string

const (
	StatusDraft          Status = "DRAFT"
	StatusLookingForHelp Status = "LOOKING_FOR_HELP"
	StatusInProgress     Status = "IN_PROGRESS"
	StatusCompleted      Status = "COMPLETED"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusLookingForHelp, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Idea is a user-submitted project concept.
//
// OwnerID is set once at creation from the authenticated identity and has
// no update path. Upvotes only changes through the repository's atomic
// increment.
type Idea struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Summary     string      `json:"summary"`
	Description *string     `json:"description,omitempty"`
	RepoURL     *string     `json:"repoUrl,omitempty"`
	Status      Status      `json:"status"`
	Upvotes     int         `json:"upvotes"`
	CreatedAt   time.Time   `json:"createdAt"`
	OwnerID     int64       `json:"ownerId"`
	Owner       UserSummary `json:"owner"`
	Tags        []Tag       `json:"tags"`
}

// IdeaDetail is an Idea with its comments, returned by the single-idea
// endpoint. Comments is never nil so it always serializes as an array.
type IdeaDetail struct {
	Idea
	Comments []Comment `json:"comments"`
}

// Tag is a shared, uniquely named label.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Comment is a remark left on an idea. Comments are read-only through
// this API.
type Comment struct {
	ID        int64       `json:"id"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"createdAt"`
	Author    UserSummary `json:"author"`
}
