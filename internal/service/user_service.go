package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"parkdesk/internal/database"
	"parkdesk/internal/domain"
	"parkdesk/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

type UserService struct {
	repo   domain.UserRepository
	logger *zerolog.Logger
	cost   int
}

func NewUserService(repo domain.UserRepository, logger *zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger, cost: bcrypt.DefaultCost}
}

func (s *UserService) CreateGroup(ctx context.Context, g *models.UserGroup) (*models.UserGroup, error) {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return nil, invalidf("group name is required")
	}
	if _, err := s.repo.CreateUserGroup(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *UserService) ListGroups(ctx context.Context) ([]*models.UserGroup, error) {
	return s.repo.ListUserGroups(ctx)
}

type RegisterUserRequest struct {
	GroupID    int64
	Username   string
	FullName   string
	Email      string
	Phone      string
	TelegramID int64
	Password   string
}

func (s *UserService) Register(ctx context.Context, req RegisterUserRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	switch {
	case username == "":
		return nil, invalidf("username is required")
	case strings.TrimSpace(req.FullName) == "":
		return nil, invalidf("full name is required")
	case len(req.Password) < minPasswordLen:
		return nil, invalidf("password must be at least %d characters", minPasswordLen)
	}
	if _, err := s.repo.GetUserGroup(ctx, req.GroupID); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		GroupID:      req.GroupID,
		Username:     username,
		FullName:     strings.TrimSpace(req.FullName),
		Email:        req.Email,
		Phone:        req.Phone,
		TelegramID:   req.TelegramID,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if _, err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("user_id", u.ID).Str("username", u.Username).Msg("user registered")
	return u, nil
}

// Authenticate checks the password. Unknown users and wrong passwords give
// the same error.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	return u, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if len(newPassword) < minPasswordLen {
		return invalidf("password must be at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return s.repo.UpdateUser(ctx, u)
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *UserService) Deactivate(ctx context.Context, id int64) error {
	return s.repo.DeactivateUser(ctx, id)
}

// Permissions returns the group flags of the user.
func (s *UserService) Permissions(ctx context.Context, userID int64) (*models.UserGroup, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetUserGroup(ctx, u.GroupID)
}
