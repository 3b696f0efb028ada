package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"metro-ticketing/internal/models"
	"metro-ticketing/internal/store"
)

type UserService struct {
	users  UserRepository
	auth   *AuthService
	logger zerolog.Logger
	now    func() time.Time
}

func NewUserService(users UserRepository, auth *AuthService, logger zerolog.Logger) *UserService {
	return &UserService{
		users:  users,
		auth:   auth,
		logger: logger,
		now:    time.Now,
	}
}

func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.Phone)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, models.ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		s.logger.Error().Err(err).Msg("Error checking existing email")
		return nil, fmt.Errorf("check email: %w", err)
	}
	if _, err := s.users.GetByPhone(ctx, phone); err == nil {
		return nil, models.ErrPhoneTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		s.logger.Error().Err(err).Msg("Error checking existing phone")
		return nil, fmt.Errorf("check phone: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error hashing password")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hashedPassword),
		Balance:      decimal.Zero,
		TotalExpense: decimal.Zero,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent registration can still win the unique key.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, models.ErrEmailTaken
		}
		s.logger.Error().Err(err).Msg("Error creating user")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Str("email", user.Email).Msg("User registered successfully")
	return &models.AuthResponse{User: user, Token: token}, nil
}

func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Error querying user")
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn().Str("email", req.Email).Msg("Failed authentication attempt")
		return nil, models.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, models.ErrAccountInactive
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to record last login")
	} else {
		user.LastLogin = &now
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Str("email", user.Email).Msg("User authenticated successfully")
	return &models.AuthResponse{User: user, Token: token}, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, models.ErrUserNotFound)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone != user.Phone {
			if other, err := s.users.GetByPhone(ctx, phone); err == nil && other.ID != user.ID {
				return nil, models.ErrPhoneTaken
			} else if err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("check phone: %w", err)
			}
		}
		user.Phone = phone
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("user_id", user.ID).Msg("Profile updated")
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID int64, req *models.ChangePasswordRequest) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return models.ErrWrongPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hashed)
	if err := s.save(ctx, user); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", user.ID).Msg("Password changed")
	return nil
}

func (s *UserService) List(ctx context.Context, filter models.UserFilter, page, limit int) ([]models.User, int, error) {
	users, total, err := s.users.List(ctx, filter, Offset(page, limit), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error listing users")
		return nil, 0, err
	}
	return users, total, nil
}

// AdminUpdate changes role, status or name of any account.
func (s *UserService) AdminUpdate(ctx context.Context, userID int64, req *models.AdminUpdateUserRequest) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Bool("is_active", user.IsActive).Msg("User updated by admin")
	return user, nil
}

// Deactivate soft-deletes the account.
func (s *UserService) Deactivate(ctx context.Context, userID int64) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	user.IsActive = false
	if err := s.save(ctx, user); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", user.ID).Msg("User deactivated")
	return nil
}

func (s *UserService) save(ctx context.Context, user *models.User) error {
	err := s.users.Update(ctx, user)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrDuplicate):
		return models.ErrPhoneTaken
	case errors.Is(err, store.ErrNotFound):
		return models.ErrUserNotFound
	default:
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("Error updating user")
		return fmt.Errorf("failed to update user: %w", err)
	}
}
