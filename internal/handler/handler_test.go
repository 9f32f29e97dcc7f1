package handler_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/sakif/halfbake/internal/auth"
	"github.com/sakif/halfbake/internal/model"
	"github.com/sakif/halfbake/internal/service"
	"github.com/sakif/halfbake/internal/validation"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

// MockAuthService records the last request and returns canned values.
type MockAuthService struct {
	CapturedRegister validation.RegisterRequest
	CapturedLogin    validation.LoginRequest
	CapturedGitHub   *auth.GitHubUser
	CapturedID       int64

	ReturnUser   *model.User
	ReturnResult *service.AuthResult
	ReturnErr    error
}

func (m *MockAuthService) Register(_ context.Context, req validation.RegisterRequest) (*model.User, error) {
	m.CapturedRegister = req
	return m.ReturnUser, m.ReturnErr
}

func (m *MockAuthService) Login(_ context.Context, req validation.LoginRequest) (*service.AuthResult, error) {
	m.CapturedLogin = req
	return m.ReturnResult, m.ReturnErr
}

func (m *MockAuthService) LoginOrRegisterGitHub(_ context.Context, gh *auth.GitHubUser) (*service.AuthResult, error) {
	m.CapturedGitHub = gh
	return m.ReturnResult, m.ReturnErr
}

func (m *MockAuthService) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	m.CapturedID = id
	return m.ReturnUser, m.ReturnErr
}

// MockIdeaService records the last arguments and returns canned values.
type MockIdeaService struct {
	CapturedQ      string
	CapturedTag    string
	CapturedID     int64
	CapturedOwner  int64
	CapturedCreate validation.IdeaRequest
	Calls          int

	ReturnIdeas   []model.Idea
	ReturnDetail  *model.IdeaDetail
	ReturnIdea    *model.Idea
	ReturnUpvotes int
	ReturnErr     error
}

func (m *MockIdeaService) List(_ context.Context, q, tag string) ([]model.Idea, error) {
	m.Calls++
	m.CapturedQ, m.CapturedTag = q, tag
	return m.ReturnIdeas, m.ReturnErr
}

func (m *MockIdeaService) Get(_ context.Context, id int64) (*model.IdeaDetail, error) {
	m.Calls++
	m.CapturedID = id
	return m.ReturnDetail, m.ReturnErr
}

func (m *MockIdeaService) Create(_ context.Context, ownerID int64, req validation.IdeaRequest) (*model.Idea, error) {
	m.Calls++
	m.CapturedOwner = ownerID
	m.CapturedCreate = req
	return m.ReturnIdea, m.ReturnErr
}

func (m *MockIdeaService) Upvote(_ context.Context, id int64) (int, error) {
	m.Calls++
	m.CapturedID = id
	return m.ReturnUpvotes, m.ReturnErr
}

// MockGitHub stands in for the OAuth provider.
type MockGitHub struct {
	CapturedState string
	CapturedCode  string
	ReturnUser    *auth.GitHubUser
	ReturnErr     error
}

func (m *MockGitHub) AuthURL(state string) string {
	m.CapturedState = state
	return "https://github.example/authorize?state=" + state
}

func (m *MockGitHub) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	m.CapturedCode = code
	return m.ReturnUser, m.ReturnErr
}

// withIdentity marks req as coming from user id, as RequireAuth would.
func withIdentity(req *http.Request, id int64) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{ID: id, Email: "user@example.com"}))
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
