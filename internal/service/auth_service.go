package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/weiawesome/snapgram/internal/audit"
	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/internal/repository"
	"github.com/weiawesome/snapgram/pkg/log"
	"github.com/weiawesome/snapgram/pkg/pubsub"
)

type authServiceImpl struct {
	users     repository.UserRepository
	tokens    TokenIssuer
	publisher pubsub.Publisher
}

// NewAuthService creates a new auth service.
func NewAuthService(users repository.UserRepository, tokens TokenIssuer, publisher pubsub.Publisher) AuthService {
	return &authServiceImpl{users: users, tokens: tokens, publisher: publisher}
}

// Register creates an account with empty profile fields and signs a token.
// Store failures, duplicates included, are returned unchanged.
func (s *authServiceImpl) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		l.Error().Err(err).Msg("failed to hash password")
		return nil, err
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
	}
	if err := s.users.Create(ctx, user); err != nil {
		l.Error().Err(err).Msg("failed to create user")
		return nil, err
	}

	token, exp, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to sign token after register")
		return nil, err
	}

	audit.Log(ctx, audit.ActionRegister, user.ID, user.ID, "user registered")
	publish(ctx, s.publisher, pubsub.EventUserRegistered, user.ID, user.ID, pubsub.UserPayload{
		UserID:   user.ID,
		Username: user.Username,
	})

	return &domain.AuthResponse{
		Message:   "User registered successfully",
		Token:     token,
		ExpiresAt: exp.Unix(),
	}, nil
}

// Login checks the password of the user whose email or username matches.
func (s *authServiceImpl) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	login := req.Identifier()
	if login == "" {
		return nil, ErrMissingLogin
	}

	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			audit.LogWithDetail(ctx, audit.ActionLoginFailed, "", login, "login failed: user not found")
			return nil, ErrUserNotFound
		}
		l.Error().Err(err).Msg("failed to get user by login")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		audit.LogWithDetail(ctx, audit.ActionLoginFailed, user.ID, login, "login failed: wrong password")
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to sign token after login")
		return nil, err
	}

	audit.Log(ctx, audit.ActionLogin, user.ID, user.ID, "user logged in")

	return &domain.AuthResponse{
		Message:   "Login successful",
		Token:     token,
		ExpiresAt: exp.Unix(),
	}, nil
}
