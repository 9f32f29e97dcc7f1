package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/halfbake/internal/apperror"
	"github.com/sakif/halfbake/internal/auth"
	"github.com/sakif/halfbake/internal/metrics"
	"github.com/sakif/halfbake/internal/model"
	"github.com/sakif/halfbake/internal/repository"
	"github.com/sakif/halfbake/internal/validation"
)

// Client-facing auth failure messages.
const (
	MsgEmailInUse         = "Email already in use"
	MsgInvalidCredentials = "Invalid credentials"
)

// dummyPassword is hashed once at construction. Logins for unknown emails
// are checked against that hash so they cost as much as a wrong password.
const dummyPassword = "halfbake-timing-equalizer"

// AuthService handles registration, login, and GitHub sign-in.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                                 ↘ PasswordService (bcrypt)
//	                                 ↘ TokenService (JWT)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	validate  *validation.Validator
	events    Events
	logger    *slog.Logger

	dummyHash string
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	validate *validation.Validator,
	events Events,
	logger *slog.Logger,
) (*AuthService, error) {
	dummyHash, err := passwords.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("service/auth: preparing dummy hash: %w", err)
	}
	if events == nil {
		events = NopEvents{}
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		validate:  validate,
		events:    events,
		logger:    logger,
		dummyHash: dummyHash,
	}, nil
}

// AuthResult bundles the user and the issued token so the handler can set
// the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register validates the request and creates the account.
//
// The email is checked up front for a friendly 409; the UNIQUE index
// catches the race where two registrations pass that check together.
// An omitted name defaults to the local part of the email.
func (s *AuthService) Register(ctx context.Context, req validation.RegisterRequest) (*model.User, error) {
	creds, err := s.validate.Registration(req)
	if err != nil {
		return nil, err
	}

	_, err = s.users.GetUserByEmail(ctx, creds.Email)
	switch {
	case err == nil:
		s.events.AuthAttempt(metrics.OutcomeEmailTaken)
		return nil, apperror.Conflict(MsgEmailInUse)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(creds.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	name := creds.Name
	if name == "" {
		name = localPart(creds.Email)
	}

	user := &model.User{Email: creds.Email, Name: name, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.events.AuthAttempt(metrics.OutcomeEmailTaken)
			return nil, apperror.Conflict(MsgEmailInUse)
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.events.AuthAttempt(metrics.OutcomeRegistered)
	s.logger.Info("user registered", slog.Int64("userID", user.ID))
	return user, nil
}

// Login verifies the credentials and issues a session token.
//
// Unknown email and wrong password produce the same error, so a caller
// cannot learn which emails have accounts.
func (s *AuthService) Login(ctx context.Context, req validation.LoginRequest) (*AuthResult, error) {
	creds, err := s.validate.Login(req)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, creds.Email)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: looking up user: %w", err)
		}
		_ = s.passwords.Verify(s.dummyHash, creds.Password)
		return nil, s.loginFailed()
	}

	// Accounts created through GitHub sign-in have no password.
	if user.PasswordHash == "" {
		_ = s.passwords.Verify(s.dummyHash, creds.Password)
		return nil, s.loginFailed()
	}

	if err := s.passwords.Verify(user.PasswordHash, creds.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, s.loginFailed()
		}
		return nil, fmt.Errorf("service/auth: verifying password for user %d: %w", user.ID, err)
	}

	return s.startSession(user, metrics.OutcomeLoginSuccess)
}

func (s *AuthService) loginFailed() error {
	s.events.AuthAttempt(metrics.OutcomeLoginFailure)
	return apperror.Unauthorized(MsgInvalidCredentials)
}

// LoginOrRegisterGitHub signs in the account owning the GitHub profile's
// verified email, creating a password-less account on first sign-in.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil || gh.Email == "" {
		s.events.AuthAttempt(metrics.OutcomeGitHubFailure)
		return nil, fmt.Errorf("service/auth: GitHub user without email")
	}
	email := strings.ToLower(strings.TrimSpace(gh.Email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		user, err = s.createGitHubUser(ctx, gh, email)
	}
	if err != nil {
		s.events.AuthAttempt(metrics.OutcomeGitHubFailure)
		return nil, fmt.Errorf("service/auth: resolving GitHub user %d: %w", gh.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.Int64("userID", user.ID),
		slog.String("login", gh.Login),
	)
	return s.startSession(user, metrics.OutcomeGitHubSuccess)
}

func (s *AuthService) createGitHubUser(ctx context.Context, gh *auth.GitHubUser, email string) (*model.User, error) {
	name := strings.TrimSpace(gh.Name)
	if name == "" {
		name = gh.Login
	}
	if name == "" {
		name = localPart(email)
	}

	user := &model.User{Email: email, Name: name}
	err := s.users.CreateUser(ctx, user)
	if errors.Is(err, apperror.ErrConflict) {
		// Lost a race with a concurrent sign-in for the same email.
		return s.users.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) startSession(user *model.User, outcome string) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %d: %w", user.ID, err)
	}
	s.events.AuthAttempt(outcome)
	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the user for the given ID.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id, err)
	}
	return user, nil
}

// localPart returns the part of email before the first "@".
func localPart(email string) string {
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	return email
}
