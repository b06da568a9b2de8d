package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/lu-jeremy/food-bridge/internal/geo"
	"github.com/lu-jeremy/food-bridge/internal/models"
	"github.com/lu-jeremy/food-bridge/internal/repository"
)

type IdentityService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.Account, error)
	Login(ctx context.Context, req *models.LoginRequest) (string, error)
	GetAccountByID(ctx context.Context, id int64) (*models.Account, error)
}

type identityService struct {
	repo      repository.AccountRepository
	geocoder  geo.Geocoder
	jwtSecret string
}

func NewIdentityService(repo repository.AccountRepository, geocoder geo.Geocoder, jwtSecret string) IdentityService {
	return &identityService{
		repo:      repo,
		geocoder:  geocoder,
		jwtSecret: jwtSecret,
	}
}

func (s *identityService) Register(ctx context.Context, req *models.RegisterRequest) (*models.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lat, lng, err := s.geocoder.Resolve(ctx, req.Address)
	if err != nil {
		if errors.Is(err, geo.ErrUnresolvable) {
			return nil, models.ErrAddressUnresolvable
		}
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Role:         req.Role,
		Name:         req.Name,
		Address:      req.Address,
		Lat:          lat,
		Lng:          lng,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

func (s *identityService) Login(ctx context.Context, req *models.LoginRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	account, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return "", models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return "", models.ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"account_id": account.ID,
		"email":      account.Email,
		"role":       account.Role,
		"exp":        time.Now().Add(24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

func (s *identityService) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	return s.repo.FindByID(ctx, id)
}
