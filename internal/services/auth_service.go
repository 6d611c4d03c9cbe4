package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/apperr"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/repositories"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/session"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest is the body of a sign-up.
type RegisterRequest struct {
	Username string      `json:"username" validate:"required,min=3,max=100"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6"`
	Role     models.Role `json:"role" validate:"required"`
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which a session token is valid
	denylist   session.Denylist
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService. A non-positive tokenDuration
// falls back to 24 hours.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenDuration time.Duration, logger *zap.Logger) *AuthService {
	if tokenDuration <= 0 {
		tokenDuration = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenDuration,
		logger:     logger,
	}
}

// UseDenylist makes Logout revoke tokens and ValidateToken reject revoked
// ones. Without a denylist a token stays valid until it expires.
func (s *AuthService) UseDenylist(d session.Denylist) {
	s.denylist = d
}

// TokenDuration is how long issued session tokens stay valid.
func (s *AuthService) TokenDuration() time.Duration {
	return s.tokenDurat
}

// RegisterUser registers a new user, hashes their password, and saves them to the database.
func (s *AuthService) RegisterUser(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !models.ValidRole(req.Role) {
		return nil, apperr.Invalid(map[string]string{"Role": fmt.Sprintf("unknown role '%s'", req.Role)})
	}
	if req.Role == models.RoleAdmin {
		return nil, apperr.New(apperr.Forbidden, "admin accounts cannot be self-registered")
	}

	// Check if username or email already exists
	if existingUser, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil && existingUser != nil {
		return nil, apperr.New(apperr.Conflict, "username '%s' already taken", req.Username)
	}
	if existingUser, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil && existingUser != nil {
		return nil, apperr.New(apperr.Conflict, "email '%s' already registered", req.Email)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to hash password")
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     req.Role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, storeError(err, "failed to register user")
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// LoginUser authenticates a user and returns a signed session token.
func (s *AuthService) LoginUser(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil || user == nil {
		// Do not reveal whether the username exists.
		return "", nil, apperr.New(apperr.Unauthenticated, "invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, apperr.New(apperr.Unauthenticated, "invalid credentials")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"exp":      now.Add(s.tokenDurat).Unix(),
		"iat":      now.Unix(),
		"jti":      uuid.NewString(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.Internal, err, "failed to generate token")
	}
	return tokenString, user, nil
}

// ValidateToken parses and validates a session token, returning the caller
// identity it carries. Revoked tokens are rejected; if the denylist cannot be
// consulted the token is rejected too.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (models.Identity, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return models.Identity{}, err
	}
	userID, _ := claims["user_id"].(string)
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	if userID == "" || !models.ValidRole(models.Role(role)) {
		return models.Identity{}, apperr.New(apperr.Unauthenticated, "invalid token: missing identity claims")
	}

	if s.denylist != nil {
		jti, _ := claims["jti"].(string)
		revoked, err := s.denylist.Revoked(ctx, jti)
		if err != nil {
			s.logger.Warn("session denylist unavailable", zap.Error(err))
			return models.Identity{}, apperr.Wrap(apperr.Unauthenticated, err, "session could not be verified")
		}
		if revoked {
			return models.Identity{}, apperr.New(apperr.Unauthenticated, "session has been revoked")
		}
	}
	return models.Identity{UserID: userID, Username: username, Role: models.Role(role)}, nil
}

// Logout revokes a session token until it expires. Tokens that do not
// validate have nothing to revoke.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	if s.denylist == nil || tokenString == "" {
		return nil
	}
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil
	}
	jti, _ := claims["jti"].(string)
	exp, _ := claims["exp"].(float64)
	if jti == "" {
		return nil
	}
	if err := s.denylist.Revoke(ctx, jti, time.Unix(int64(exp), 0)); err != nil {
		return apperr.Wrap(apperr.Internal, err, "failed to revoke session")
	}
	s.logger.Info("session revoked", zap.String("user_id", fmt.Sprint(claims["user_id"])))
	return nil
}

func (s *AuthService) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		s.logger.Debug("token validation failed", zap.Error(err))
		return nil, apperr.Wrap(apperr.Unauthenticated, err, "invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, apperr.New(apperr.Unauthenticated, "invalid token")
	}
	return claims, nil
}

// CurrentUser loads the account behind an identity.
func (s *AuthService) CurrentUser(ctx context.Context, caller models.Identity) (*models.User, error) {
	if caller.IsZero() {
		return nil, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	user, err := s.userRepo.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.Wrap(apperr.Unauthenticated, err, "session user no longer exists")
		}
		return nil, storeError(err, "failed to load user")
	}
	return user, nil
}
