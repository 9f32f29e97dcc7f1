package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"

	"github.com/sakif/halfbake/internal/apperror"
	"github.com/sakif/halfbake/internal/model"
	"github.com/sakif/halfbake/internal/repository"
)

// compile-time check that *Store implements repository.IdeaRepository
var _ repository.IdeaRepository = (*Store)(nil)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ideaSelect selects every idea column plus the owner's name, in the order
// scanIdea expects.
func (s *Store) ideaSelect() sq.SelectBuilder {
	return s.sb.
		Select(
			"i.id", "i.title", "i.summary", "i.description", "i.repo_url",
			"i.status", "i.upvotes", "i.created_at", "i.owner_id", "u.name",
		).
		From("ideas i").
		Join("users u ON u.id = i.owner_id")
}

func scanIdea(row rowScanner) (model.Idea, error) {
	var (
		idea        model.Idea
		description sql.NullString
		repoURL     sql.NullString
	)
	err := row.Scan(
		&idea.ID,
		&idea.Title,
		&idea.Summary,
		&description,
		&repoURL,
		&idea.Status,
		&idea.Upvotes,
		&idea.CreatedAt,
		&idea.OwnerID,
		&idea.Owner.Name,
	)
	if err != nil {
		return model.Idea{}, err
	}
	idea.Description = nullableString(description)
	idea.RepoURL = nullableString(repoURL)
	idea.Owner.ID = idea.OwnerID
	idea.Tags = []model.Tag{}
	return idea, nil
}

// textMatch is a case-sensitive substring test on title OR summary.
// LIKE is avoided: it is case-insensitive for ASCII in SQLite and treats
// % and _ in the query as wildcards.
func (s *Store) textMatch(text string) sq.Sqlizer {
	fn := "instr"
	if s.dialect == Postgres {
		fn = "strpos"
	}
	return sq.Or{
		sq.Expr(fn+"(i.title, ?) > 0", text),
		sq.Expr(fn+"(i.summary, ?) > 0", text),
	}
}

func tagMatch(tag string) sq.Sqlizer {
	return sq.Expr(`EXISTS (
		SELECT 1 FROM idea_tags it
		JOIN tags t ON t.id = it.tag_id
		WHERE it.idea_id = i.id AND t.name = ?)`, tag)
}

// ListIdeas returns ideas matching f, newest first.
func (s *Store) ListIdeas(ctx context.Context, f repository.IdeaFilter, limit int) ([]model.Idea, error) {
	if limit <= 0 || limit > repository.MaxListLimit {
		limit = repository.MaxListLimit
	}

	qb := s.ideaSelect().
		OrderBy("i.created_at DESC", "i.id DESC").
		Limit(uint64(limit))
	if f.MatchesText() {
		qb = qb.Where(s.textMatch(f.Text))
	}
	if f.MatchesTag() {
		qb = qb.Where(tagMatch(f.Tag))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building idea list (%s): %w", f.Kind, err)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing ideas: %w", err)
	}
	ideas, err := collectIdeas(rows, limit)
	if err != nil {
		return nil, err
	}

	if err := s.attachTags(ctx, s.conn, ideas); err != nil {
		return nil, err
	}
	return ideas, nil
}

// collectIdeas drains and closes rows before returning, so the single
// SQLite connection is free for the follow-up tag query.
func collectIdeas(rows *sql.Rows, capacity int) ([]model.Idea, error) {
	defer rows.Close()

	ideas := make([]model.Idea, 0, capacity)
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning idea row: %w", err)
		}
		ideas = append(ideas, idea)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating ideas: %w", err)
	}
	return ideas, nil
}

// attachTags loads the tags of every idea in one query, ordered by name.
func (s *Store) attachTags(ctx context.Context, q queryer, ideas []model.Idea) error {
	if len(ideas) == 0 {
		return nil
	}

	ids := make([]int64, len(ideas))
	index := make(map[int64]int, len(ideas))
	for i, idea := range ideas {
		ids[i] = idea.ID
		index[idea.ID] = i
	}

	query, args, err := s.sb.
		Select("it.idea_id", "t.id", "t.name").
		From("idea_tags it").
		Join("tags t ON t.id = it.tag_id").
		Where(sq.Eq{"it.idea_id": ids}).
		OrderBy("it.idea_id", "t.name").
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlstore: building tag lookup: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlstore: loading tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ideaID int64
			tag    model.Tag
		)
		if err := rows.Scan(&ideaID, &tag.ID, &tag.Name); err != nil {
			return fmt.Errorf("sqlstore: scanning tag row: %w", err)
		}
		if i, ok := index[ideaID]; ok {
			ideas[i].Tags = append(ideas[i].Tags, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlstore: iterating tags: %w", err)
	}
	return nil
}

// GetIdea returns one idea with tags and comments.
func (s *Store) GetIdea(ctx context.Context, id int64) (*model.IdeaDetail, error) {
	query, args, err := s.ideaSelect().Where(sq.Eq{"i.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building idea lookup: %w", err)
	}

	idea, err := scanIdea(s.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("idea", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlstore: getting idea %d: %w", id, err)
	}

	ideas := []model.Idea{idea}
	if err := s.attachTags(ctx, s.conn, ideas); err != nil {
		return nil, err
	}

	comments, err := s.listComments(ctx, id)
	if err != nil {
		return nil, err
	}

	return &model.IdeaDetail{Idea: ideas[0], Comments: comments}, nil
}

// listComments returns an idea's comments oldest first.
func (s *Store) listComments(ctx context.Context, ideaID int64) ([]model.Comment, error) {
	query, args, err := s.sb.
		Select("c.id", "c.body", "c.created_at", "u.id", "u.name").
		From("comments c").
		Join("users u ON u.id = c.author_id").
		Where(sq.Eq{"c.idea_id": ideaID}).
		OrderBy("c.created_at ASC", "c.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building comment lookup: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: loading comments for idea %d: %w", ideaID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.Body, &c.CreatedAt, &c.Author.ID, &c.Author.Name); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating comments: %w", err)
	}
	return comments, nil
}

// CreateIdea inserts the idea and links its tags in one transaction.
//
// TAG LINKING:
// Each name is upserted with ON CONFLICT (name) DO NOTHING and then read
// back, so a tag created by a concurrent request is reused rather than
// duplicated. The link insert is ON CONFLICT DO NOTHING, so a repeated
// name yields exactly one idea_tags row.
func (s *Store) CreateIdea(ctx context.Context, idea *model.Idea, tagNames []string) error {
	if !idea.Status.Valid() {
		return fmt.Errorf("sqlstore: unknown idea status %q", idea.Status)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: beginning idea transaction: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer func() { _ = tx.Rollback() }()

	query, args, err := s.sb.Select("name").From("users").Where(sq.Eq{"id": idea.OwnerID}).ToSql()
	if err != nil {
		return fmt.Errorf("sqlstore: building owner lookup: %w", err)
	}
	var ownerName string
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&ownerName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("user", strconv.FormatInt(idea.OwnerID, 10))
		}
		return fmt.Errorf("sqlstore: looking up owner %d: %w", idea.OwnerID, err)
	}

	createdAt := s.timestamp()
	query, args, err = s.sb.
		Insert("ideas").
		Columns("title", "summary", "description", "repo_url", "status", "upvotes", "created_at", "owner_id").
		Values(idea.Title, idea.Summary, idea.Description, idea.RepoURL, string(idea.Status), 0, createdAt, idea.OwnerID).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlstore: building idea insert: %w", err)
	}

	var ideaID int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&ideaID); err != nil {
		return fmt.Errorf("sqlstore: inserting idea: %w", err)
	}

	tags := make([]model.Tag, 0, len(tagNames))
	for _, name := range tagNames {
		tag, err := s.linkTag(ctx, tx, ideaID, name)
		if err != nil {
			return err
		}
		tags = append(tags, tag)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: committing idea: %w", err)
	}

	idea.ID = ideaID
	idea.Upvotes = 0
	idea.CreatedAt = createdAt
	idea.Owner = model.UserSummary{ID: idea.OwnerID, Name: ownerName}
	idea.Tags = tags
	return nil
}

func (s *Store) linkTag(ctx context.Context, tx *sql.Tx, ideaID int64, name string) (model.Tag, error) {
	query, args, err := s.sb.
		Insert("tags").
		Columns("name").
		Values(name).
		Suffix("ON CONFLICT (name) DO NOTHING").
		ToSql()
	if err != nil {
		return model.Tag{}, fmt.Errorf("sqlstore: building tag upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return model.Tag{}, fmt.Errorf("sqlstore: upserting tag %q: %w", name, err)
	}

	query, args, err = s.sb.Select("id").From("tags").Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return model.Tag{}, fmt.Errorf("sqlstore: building tag lookup: %w", err)
	}
	tag := model.Tag{Name: name}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&tag.ID); err != nil {
		return model.Tag{}, fmt.Errorf("sqlstore: reading tag %q: %w", name, err)
	}

	query, args, err = s.sb.
		Insert("idea_tags").
		Columns("idea_id", "tag_id").
		Values(ideaID, tag.ID).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return model.Tag{}, fmt.Errorf("sqlstore: building tag link: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return model.Tag{}, fmt.Errorf("sqlstore: linking tag %q to idea %d: %w", name, ideaID, err)
	}

	return tag, nil
}

// UpvoteIdea adds one to the counter in a single statement, so concurrent
// upvotes never lose an increment.
func (s *Store) UpvoteIdea(ctx context.Context, id int64) (int, error) {
	query, args, err := s.sb.
		Update("ideas").
		Set("upvotes", sq.Expr("upvotes + 1")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING upvotes").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("sqlstore: building upvote: %w", err)
	}

	var upvotes int
	if err := s.conn.QueryRowContext(ctx, query, args...).Scan(&upvotes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound("idea", strconv.FormatInt(id, 10))
		}
		return 0, fmt.Errorf("sqlstore: upvoting idea %d: %w", id, err)
	}
	return upvotes, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
