package validation

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/halfbake/internal/apperror"
	"github.com/sakif/halfbake/internal/model"
)

// IdeaRequest is the raw body of POST /api/ideas. Fields the client may
// send but must not control (ownerId, upvotes, createdAt) have no place
// here and are dropped by the JSON decoder.
type IdeaRequest struct {
	Title       string   `json:"title"       validate:"min=3"`
	Summary     string   `json:"summary"     validate:"min=10"`
	Description *string  `json:"description"`
	RepoURL     *string  `json:"repoUrl"     validate:"omitnil,url"`
	Tags        []string `json:"tags"        validate:"dive,max=50"`
	Status      *string  `json:"status"      validate:"omitnil,oneof=DRAFT LOOKING_FOR_HELP IN_PROGRESS COMPLETED"`
}

// Idea is a validated idea draft ready to be stored.
type Idea struct {
	Title       string
	Summary     string
	Description *string
	RepoURL     *string
	Status      model.Status
	Tags        []string
}

// ideaMessages maps "<json field>.<tag>" to the reported message.
var ideaMessages = map[string]string{
	"title.min":    "Title must be at least 3 characters",
	"summary.min":  "Summary must be at least 10 characters",
	"repoUrl.url":  "Repo URL must be a valid URL",
	"status.oneof": "Status must be one of DRAFT, LOOKING_FOR_HELP, IN_PROGRESS, COMPLETED",
	"tags.max":     "Tags must be at most 50 characters",
}

// Idea validates an idea request. Title and summary are trimmed first.
// Status defaults to LOOKING_FOR_HELP and tags are normalized with
// NormalizeTags.
func (v *Validator) Idea(req IdeaRequest) (Idea, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Summary = strings.TrimSpace(req.Summary)

	if err := v.v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Idea{}, fmt.Errorf("validation: checking idea: %w", err)
		}
		return Idea{}, apperror.Invalid(ideaFieldErrors(verrs))
	}

	status := model.StatusLookingForHelp
	if req.Status != nil {
		status = model.Status(*req.Status)
	}

	return Idea{
		Title:       req.Title,
		Summary:     req.Summary,
		Description: req.Description,
		RepoURL:     req.RepoURL,
		Status:      status,
		Tags:        NormalizeTags(req.Tags),
	}, nil
}

func ideaFieldErrors(verrs validator.ValidationErrors) apperror.FieldErrors {
	fields := apperror.FieldErrors{}
	for _, fe := range verrs {
		// Element errors from "dive" come back as "tags[3]".
		field, _, _ := strings.Cut(fe.Field(), "[")

		msg, ok := ideaMessages[field+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("Invalid %s", field)
		}
		if !slices.Contains(fields[field], msg) {
			fields.Add(field, msg)
		}
	}
	return fields
}

// NormalizeTags trims each name, drops empty names, and collapses
// duplicates. The first occurrence keeps its position.
func NormalizeTags(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
