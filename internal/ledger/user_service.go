package ledger

import (
	"context"
	"fmt"

	"agrimarket-ledger/internal/models"
	"agrimarket-ledger/internal/store"
	"agrimarket-ledger/internal/util"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserService handles registration and profile access. Credential
// verification on login is an external collaborator's job; this service
// only guarantees the stored hash is never a plaintext password.
type UserService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(st *store.Store) *UserService {
	return &UserService{
		store:  st,
		logger: util.GetLogger(),
	}
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=farmer consumer"`
	Phone    string `json:"phone,omitempty"`
}

// Register creates a user with a bcrypt password hash. Email is unique
// across all users.
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "UserService.Register")
	defer span.End()

	existing, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", mapStoreError(err))
	}
	if existing != nil {
		return nil, fmt.Errorf("email %s: %w", req.Email, ErrEmailTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         req.Name,
		Role:         req.Role,
		Email:        req.Email,
		PasswordHash: string(hash),
		Phone:        req.Phone,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		// The pre-check above races with concurrent registrations; the
		// unique index on email is the real arbiter.
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("email %s: %w", req.Email, ErrEmailTaken)
		}
		return nil, fmt.Errorf("failed to create user: %w", mapStoreError(err))
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", user.Role))

	return user, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", id, mapStoreError(err))
	}
	return user, nil
}

// UpdateProfileRequest represents a profile update. Role, email and
// wallet balance are not writable through this path.
type UpdateProfileRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone,omitempty"`
}

// UpdateProfile updates mutable profile fields
func (s *UserService) UpdateProfile(ctx context.Context, id int64, req *UpdateProfileRequest) (*models.User, error) {
	user, err := s.store.UpdateUserProfile(ctx, id, req.Name, req.Phone)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", id, mapStoreError(err))
	}
	return user, nil
}
