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

// compile-time check that *Store implements repository.UserRepository
var _ repository.UserRepository = (*Store)(nil)

// MsgEmailInUse is the conflict message for a duplicate email.
const MsgEmailInUse = "Email already in use"

var userColumns = []string{"id", "email", "name", "password_hash", "created_at"}

// CreateUser inserts u and fills in its ID and CreatedAt.
//
// The UNIQUE index on email is the final arbiter: two concurrent
// registrations for one email both pass the service's up-front check, and
// the loser gets ErrConflict here.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	createdAt := s.timestamp()

	query, args, err := s.sb.
		Insert("users").
		Columns("email", "name", "password_hash", "created_at").
		Values(u.Email, u.Name, u.PasswordHash, createdAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlstore: building user insert: %w", err)
	}

	if err := s.conn.QueryRowContext(ctx, query, args...).Scan(&u.ID); err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(MsgEmailInUse)
		}
		return fmt.Errorf("sqlstore: creating user: %w", err)
	}

	u.CreatedAt = createdAt
	return nil
}

// GetUserByEmail returns apperror.ErrNotFound if no user has that email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, sq.Eq{"email": email}, "email", email)
}

// GetUserByID returns apperror.ErrNotFound if no user has that ID.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.getUser(ctx, sq.Eq{"id": id}, "id", strconv.FormatInt(id, 10))
}

func (s *Store) getUser(ctx context.Context, where sq.Eq, key, value string) (*model.User, error) {
	query, args, err := s.sb.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building user lookup: %w", err)
	}

	var u model.User
	err = s.conn.QueryRowContext(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlstore: getting user by %s: %w", key, err)
	}

	return &u, nil
}
