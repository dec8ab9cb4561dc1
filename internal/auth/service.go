// internal/auth/service.go
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"classquiz/internal/apperr"
	"classquiz/internal/models"
)

type Service struct {
	repo      *Repository
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewService(repo *Repository, jwtSecret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

type SignupInput struct {
	Username string      `json:"username" validate:"required,min=3,max=64"`
	Password string      `json:"password" validate:"required,min=6"`
	FullName string      `json:"full_name" validate:"required"`
	Email    string      `json:"email" validate:"omitempty,email"`
	Role     models.Role `json:"role" validate:"required,oneof=teacher student"`
}

type UpdateInput struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
}

type LoginResult struct {
	Token string      `json:"token"`
	Role  models.Role `json:"role"`
	User  models.User `json:"user"`
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := &models.User{
		Username: strings.TrimSpace(in.Username),
		Password: string(hashedPassword),
		FullName: strings.TrimSpace(in.FullName),
		Email:    strings.TrimSpace(in.Email),
		Role:     in.Role,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.New(apperr.KindInvalidCredential, "invalid username or password")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.New(apperr.KindInvalidCredential, "invalid username or password")
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &LoginResult{Token: token, Role: user.Role, User: *user}, nil
}

func (s *Service) IssueToken(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"exp":      s.now().Add(s.tokenTTL).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

// Resolve verifies a bearer token and returns the principal it names.
func (s *Service) Resolve(tokenString string) (Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, apperr.New(apperr.KindInvalidCredential, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, apperr.New(apperr.KindInvalidCredential, "invalid token claims")
	}
	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return Principal{}, apperr.New(apperr.KindInvalidCredential, "invalid user ID in token")
	}
	role := models.Role(fmt.Sprint(claims["role"]))
	if !role.Valid() {
		return Principal{}, apperr.New(apperr.KindInvalidCredential, "invalid role in token")
	}
	return Principal{ID: uint(userID), Role: role}, nil
}

func (s *Service) Me(ctx context.Context, p Principal) (*models.User, error) {
	return s.repo.GetUserByID(ctx, p.ID)
}

func (s *Service) UpdateMe(ctx context.Context, p Principal, in UpdateInput) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		user.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Email != nil {
		user.Email = strings.TrimSpace(*in.Email)
	}
	if in.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		user.Password = string(hashed)
	}
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
