package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/jrrjunior25/pdv-fiscal/internal/apperr"
	"github.com/jrrjunior25/pdv-fiscal/internal/config"
	"github.com/jrrjunior25/pdv-fiscal/internal/dto"
	"github.com/jrrjunior25/pdv-fiscal/internal/middleware"
	"github.com/jrrjunior25/pdv-fiscal/internal/model"
	"github.com/jrrjunior25/pdv-fiscal/internal/repository"
)

var decimalOne = decimal.NewFromInt(1)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.LoginResponse, error)
	CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error)
	ListUsers(ctx context.Context) ([]dto.UserResponse, error)
}

type authService struct {
	users repository.UserRepository
	cfg   *config.Config
}

func NewAuthService(users repository.UserRepository, cfg *config.Config) AuthService {
	return &authService{users: users, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperr.Validation("credenciais inválidas")
	}
	if !user.Active {
		return nil, apperr.State("usuário desativado")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.Validation("credenciais inválidas")
	}
	return s.buildTokens(user)
}

func (s *authService) Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.LoginResponse, error) {
	claims := &middleware.JWTClaims{}
	token, err := jwt.ParseWithClaims(req.RefreshToken, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid || !claims.Refresh {
		return nil, apperr.Validation("refresh token inválido")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperr.Validation("refresh token inválido")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil || !user.Active {
		return nil, apperr.Validation("refresh token inválido")
	}
	return s.buildTokens(user)
}

func (s *authService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	if req.CommissionRate.IsNegative() || req.CommissionRate.GreaterThan(decimalOne) {
		return nil, apperr.Validation("taxa de comissão deve estar entre 0 e 1")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:           req.Name,
		Email:          req.Email,
		PasswordHash:   string(hash),
		Role:           req.Role,
		CommissionRate: req.CommissionRate,
		Active:         true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperr.Conflict("e-mail já cadastrado")
	}
	return userToResponse(user), nil
}

func (s *authService) ListUsers(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, *userToResponse(&users[i]))
	}
	return out, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *authService) buildTokens(user *model.User) (*dto.LoginResponse, error) {
	access, err := s.signToken(user, false, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refresh, err := s.signToken(user, true, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token:        access,
		RefreshToken: refresh,
		User:         *userToResponse(user),
	}, nil
}

func (s *authService) signToken(user *model.User, refresh bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := middleware.JWTClaims{
		Role:    user.Role,
		Name:    user.Name,
		Refresh: refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func userToResponse(u *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		CommissionRate: u.CommissionRate,
		Active:         u.Active,
	}
}
