package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/auth"
)

var (
	ErrSelfSubscription   = errors.New("self subscription is not allowed")
	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrWeakPassword       = errors.New("password is too weak")
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

const minPasswordLength = 8

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Register(ctx context.Context, in NewUser) (User, error) {
	if in.Username == "me" || !usernamePattern.MatchString(in.Username) {
		return User{}, ErrInvalidUsername
	}
	if err := checkPassword(in.Password, in.Username, in.Email); err != nil {
		return User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}

	return s.repo.Create(ctx, User{
		Email:        strings.TrimSpace(in.Email),
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Role:         "user",
	})
}

func (s *Service) Get(ctx context.Context, id, viewerID int64) (User, error) {
	return s.repo.GetByID(ctx, id, viewerID)
}

func (s *Service) List(ctx context.Context, viewerID int64) ([]User, error) {
	return s.repo.List(ctx, viewerID)
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	u, err := s.repo.GetByID(ctx, userID, 0)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(u.PasswordHash, current); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return ErrWrongPassword
		}
		return err
	}
	if err := checkPassword(next, u.Username, u.Email); err != nil {
		return err
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, hash)
}

// Authenticate resolves email and password to a user. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	return u, nil
}

func (s *Service) Subscribe(ctx context.Context, followerID, authorID int64, recipesLimit int) (Subscription, error) {
	if followerID == authorID {
		return Subscription{}, ErrSelfSubscription
	}
	if err := s.repo.Subscribe(ctx, followerID, authorID); err != nil {
		return Subscription{}, err
	}
	return s.repo.Subscription(ctx, authorID, recipesLimit)
}

func (s *Service) Unsubscribe(ctx context.Context, followerID, authorID int64) error {
	if followerID == authorID {
		return ErrSelfSubscription
	}
	if _, err := s.repo.GetByID(ctx, authorID, followerID); err != nil {
		return err
	}
	return s.repo.Unsubscribe(ctx, followerID, authorID)
}

func (s *Service) Subscriptions(ctx context.Context, followerID int64, recipesLimit int) ([]Subscription, error) {
	return s.repo.Subscriptions(ctx, followerID, recipesLimit)
}

func checkPassword(password, username, email string) error {
	if len([]rune(password)) < minPasswordLength {
		return fmt.Errorf("%w: must contain at least %d characters", ErrWeakPassword, minPasswordLength)
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return fmt.Errorf("%w: must not be entirely numeric", ErrWeakPassword)
	}
	lowered := strings.ToLower(password)
	if lowered == strings.ToLower(username) || lowered == strings.ToLower(email) {
		return fmt.Errorf("%w: too similar to the username or email", ErrWeakPassword)
	}
	return nil
}
