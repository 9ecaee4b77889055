package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/sebuszqo/CardVault/internal/user"
	log "github.com/sirupsen/logrus"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInternalError      = errors.New("internal Server Error")
)

type Service interface {
	Signup(ctx context.Context, email, password string) (*user.User, string, error)
	Login(ctx context.Context, email, password string) (*user.User, string, error)
	JWTAccessTokenMiddleware() func(http.Handler) http.Handler
}

type service struct {
	userService user.Service
	jwtManager  JWTManagerInterface
}

func NewAuthService(userService user.Service, jwtManager JWTManagerInterface) Service {
	return &service{
		userService: userService,
		jwtManager:  jwtManager,
	}
}

// Signup registers the user and returns a fresh access token for it.
func (s *service) Signup(ctx context.Context, email, password string) (*user.User, string, error) {
	newUser, err := s.userService.Register(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.jwtManager.GenerateAccessJWT(newUser.ID)
	if err != nil {
		log.Printf("error during JWT generation: %v", err)
		return nil, "", ErrInternalError
	}
	return newUser, token, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*user.User, string, error) {
	existingUser, err := s.userService.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", ErrInternalError
	}

	token, err := s.jwtManager.GenerateAccessJWT(existingUser.ID)
	if err != nil {
		log.Printf("error during JWT generation: %v", err)
		return nil, "", ErrInternalError
	}
	return existingUser, token, nil
}
