package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-rbac-auth/internal/audit"
	"github.com/oksasatya/go-rbac-auth/internal/domain/entity"
	repo "github.com/oksasatya/go-rbac-auth/internal/domain/repository"
	"github.com/oksasatya/go-rbac-auth/internal/observability"
)

// AuthService handles login, registration and principal resolution.
type AuthService struct {
	Users   repo.UserRepository
	Hasher  PasswordHasher
	Tokens  TokenIssuer
	Logger  *logrus.Logger
	Audit   audit.Recorder
	Metrics *observability.Metrics

	dummyMu     sync.Mutex
	dummyDigest string
}

func NewAuthService(users repo.UserRepository, hasher PasswordHasher, tokens TokenIssuer, logger *logrus.Logger, rec audit.Recorder, metrics *observability.Metrics) *AuthService {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &AuthService{
		Users:   users,
		Hasher:  hasher,
		Tokens:  tokens,
		Logger:  logger,
		Audit:   rec,
		Metrics: metrics,
	}
}

// AuthResult is returned by Login and Register.
type AuthResult struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *entity.User `json:"user"`
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Login verifies credentials and issues an access token. An unknown email
// and a wrong password produce the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	u, err := s.Users.FindByEmail(ctx, email, true)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.Metrics.ObserveLogin("error")
			return nil, fmt.Errorf("login: find user: %w", err)
		}
		// keep timing aligned with the wrong-password path
		s.Hasher.Verify(s.dummy(), password)
		return nil, s.loginFailed(ctx, email)
	}
	if !s.Hasher.Verify(u.Password, password) {
		return nil, s.loginFailed(ctx, email)
	}

	res, err := s.issue(u)
	if err != nil {
		s.Metrics.ObserveLogin("error")
		return nil, err
	}
	s.Metrics.ObserveLogin("success")
	s.Audit.Record(ctx, audit.Event{Action: audit.LoginSucceeded, ActorID: u.ID, Email: u.Email, TargetType: "user", TargetID: u.ID})
	return res, nil
}

func (s *AuthService) loginFailed(ctx context.Context, email string) error {
	s.Metrics.ObserveLogin("invalid_credentials")
	s.Audit.Record(ctx, audit.Event{Action: audit.LoginFailed, Email: email})
	return ErrInvalidCredentials
}

// Register creates an account without roles and logs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	u, err := createAccount(ctx, s.Users, s.Hasher, in.Name, in.Email, in.Password, true)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			s.Metrics.ObserveRegistration("conflict")
		} else {
			s.Metrics.ObserveRegistration("error")
		}
		return nil, err
	}
	u.Roles = []entity.Role{}

	res, err := s.issue(u)
	if err != nil {
		s.Metrics.ObserveRegistration("error")
		return nil, err
	}
	s.Metrics.ObserveRegistration("success")
	s.Audit.Record(ctx, audit.Event{Action: audit.Registered, ActorID: u.ID, Email: u.Email, TargetType: "user", TargetID: u.ID})
	return res, nil
}

// LoadPrincipal resolves a verified token subject into the user with roles
// and permissions loaded.
func (s *AuthService) LoadPrincipal(ctx context.Context, userID int64) (*entity.User, error) {
	u, err := s.Users.FindByID(ctx, userID, true)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("load principal: %w", err)
	}
	return u, nil
}

func (s *AuthService) issue(u *entity.User) (*AuthResult, error) {
	token, exp, err := s.Tokens.Issue(u.ID, u.Email)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("issue access token failed")
		}
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{AccessToken: token, ExpiresAt: exp, User: u}, nil
}

// dummy returns a digest to verify against when the email is unknown. A
// hashing failure is logged and retried on the next call.
func (s *AuthService) dummy() string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyDigest != "" {
		return s.dummyDigest
	}
	digest, err := s.Hasher.Hash("not-a-real-password")
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).Error("compute dummy password digest failed")
		}
		return ""
	}
	s.dummyDigest = digest
	return digest
}

// createAccount validates, hashes and stores a new user.
func createAccount(ctx context.Context, users repo.UserRepository, hasher PasswordHasher, name, email, password string, active bool) (*entity.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	switch {
	case name == "":
		return nil, ErrNameRequired
	case email == "":
		return nil, ErrEmailRequired
	case password == "":
		return nil, ErrPasswordRequired
	}

	digest, err := hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{Email: email, Name: name, Password: digest, IsActive: active}
	if err := users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}
