package service

import (
	"context"
	"errors"
	"time"

	"github.com/zolijavos/KGC-3-sub017/internal/apperror"
	"github.com/zolijavos/KGC-3-sub017/internal/dto"
	"github.com/zolijavos/KGC-3-sub017/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.LoginResponse, error)
}

type authService struct {
	users        repository.UserRepository
	secret       []byte
	accessHours  int
	refreshHours int
}

func NewAuthService(users repository.UserRepository, secret string, accessHours, refreshHours int) AuthService {
	return &authService{
		users:        users,
		secret:       []byte(secret),
		accessHours:  accessHours,
		refreshHours: refreshHours,
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return nil, apperror.Validation("invalid tenant id")
	}
	user, err := s.users.FindByUsername(ctx, tenantID, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Validation("invalid credentials")
		}
		return nil, err
	}
	if !user.Active {
		return nil, apperror.Validation("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, apperror.Validation("invalid credentials")
	}
	return s.issueTokens(user.ID, user.TenantID, user.Username, user.Name, user.Role)
}

func (s *authService) Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.LoginResponse, error) {
	token, err := jwt.Parse(req.RefreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.Validation("invalid refresh token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != "refresh" {
		return nil, apperror.Validation("invalid refresh token")
	}
	userID, err := uuid.Parse(claims["sub"].(string))
	if err != nil {
		return nil, apperror.Validation("invalid refresh token")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Validation("invalid refresh token")
		}
		return nil, err
	}
	if !user.Active {
		return nil, apperror.Validation("invalid refresh token")
	}
	return s.issueTokens(user.ID, user.TenantID, user.Username, user.Name, user.Role)
}

func (s *authService) issueTokens(userID, tenantID uuid.UUID, username, name, role string) (*dto.LoginResponse, error) {
	now := time.Now().UTC()
	accessExp := now.Add(time.Duration(s.accessHours) * time.Hour)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       userID.String(),
		"tenant_id": tenantID.String(),
		"username":  username,
		"role":      role,
		"typ":       "access",
		"iat":       now.Unix(),
		"exp":       accessExp.Unix(),
	})
	accessToken, err := access.SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"typ": "refresh",
		"iat": now.Unix(),
		"exp": now.Add(time.Duration(s.refreshHours) * time.Hour).Unix(),
	})
	refreshToken, err := refresh.SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(time.Until(accessExp).Seconds()),
		User: dto.UserResponse{
			ID:       userID.String(),
			Username: username,
			Name:     name,
			Role:     role,
		},
	}, nil
}
