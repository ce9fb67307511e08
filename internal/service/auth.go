package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"wetalk/internal/config"
	"wetalk/internal/domain"
	"wetalk/internal/repository"
	apperrors "wetalk/pkg/errors"
	"wetalk/pkg/jwt"
	"wetalk/pkg/logger"
)

type AuthService interface {
	// Authenticate resolves an access token to an active user. Every failure
	// is reported as ErrUnauthenticated.
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

type LoginResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type authService struct {
	userRepo repository.UserRepository
	jwtCfg   config.JWTConfig
	log      logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, jwtCfg config.JWTConfig, log logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		jwtCfg:   jwtCfg,
		log:      log,
	}
}

func (s *authService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	if accessToken == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	claims, err := jwt.ValidateToken(accessToken, s.jwtCfg.AccessSecret)
	if err != nil {
		s.log.Debug("Access token rejected", "error", err)
		return nil, apperrors.ErrUnauthenticated
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.log.Warn("Failed to load user for token", "error", err, "user_id", claims.UserID)
		}
		return nil, apperrors.ErrUnauthenticated
	}

	if !user.IsActive {
		return nil, apperrors.ErrUnauthenticated
	}

	return user, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", apperrors.ErrBadRequest)
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	// Проверка пароля
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, apperrors.ErrInvalidCredentials
	}

	tokens, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.log.Info("User logged in", "user_id", user.ID)

	return &LoginResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.jwtCfg.RefreshSecret)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, apperrors.ErrInvalidToken
	}

	return s.issue(user)
}

func (s *authService) issue(user *domain.User) (*TokenResponse, error) {
	accessToken, err := jwt.GenerateAccessToken(user.ID, user.Username, s.jwtCfg.AccessSecret, s.jwtCfg.Issuer, s.jwtCfg.AccessTTL)
	if err != nil {
		s.log.Error("Failed to generate access token", "error", err)
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := jwt.GenerateRefreshToken(user.ID, s.jwtCfg.RefreshSecret, s.jwtCfg.Issuer, s.jwtCfg.RefreshTTL)
	if err != nil {
		s.log.Error("Failed to generate refresh token", "error", err)
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenResponse{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
