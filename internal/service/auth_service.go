package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is inactive")
)

const minPasswordLength = 8

type AuthService struct {
	store      store.Store
	jwtManager *auth.JWTManager
	auditSvc   *AuditService
	hashCost   int
	log        *zap.Logger
}

func NewAuthService(st store.Store, jwtManager *auth.JWTManager, auditSvc *AuditService, log *zap.Logger) *AuthService {
	return &AuthService{
		store:      st,
		jwtManager: jwtManager,
		auditSvc:   auditSvc,
		hashCost:   bcrypt.DefaultCost,
		log:        log,
	}
}

type LoginResult struct {
	Tokens *domain.TokenPair `json:"tokens"`
	User   *UserView         `json:"user"`
}

type CreateStaffCommand struct {
	Username string
	Email    string
	Password string
	FullName string
	Phone    string
	Role     string
}

func (s *AuthService) Login(ctx context.Context, username, password, ip string) (*LoginResult, error) {
	user, err := s.store.Users().GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("failed to load user for login", zap.Error(err))
			return nil, fmt.Errorf("loading user: %w", err)
		}
		// Spend the same time as a real comparison so unknown usernames
		// are not distinguishable by latency.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("failed login attempt",
			zap.String("username", username),
			zap.String("ip", ip),
		)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if err := s.store.Users().TouchLastLogin(ctx, user.ID); err != nil {
		s.log.Warn("failed to record last login", zap.Error(err))
	}

	pair, err := s.jwtManager.GenerateTokenPair(&domain.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        domain.Actor{UserID: user.ID, Role: user.Role, IP: ip},
		Action:       domain.ActionLogin,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
	})
	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("ip", ip),
	)

	return &LoginResult{Tokens: pair, User: newUserView(user)}, nil
}

// RefreshToken issues a new pair for a valid refresh token whose user is
// still active.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.Users().GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(&domain.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
}

func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*UserView, error) {
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return newUserView(u), nil
}

// CreateStaff registers a staff account. Only admins may call it.
func (s *AuthService) CreateStaff(ctx context.Context, actor domain.Actor, cmd *CreateStaffCommand) (*UserView, error) {
	if !actor.HasRole(domain.RoleAdmin) {
		return nil, ErrForbidden
	}

	u, err := s.createUser(ctx, cmd)
	if err != nil {
		logFailure(s.log, "failed to create staff", err)
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "user",
		ResourceID:   u.ID.String(),
		Changes:      fmt.Sprintf(`{"username":%q,"role":%q}`, u.Username, u.Role),
	})
	s.log.Info("staff account created",
		zap.String("user_id", u.ID.String()),
		zap.String("role", string(u.Role)),
	)

	return newUserView(u), nil
}

// EnsureAdmin creates the configured admin account unless an active admin
// already exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error {
	if cfg.Password == "" {
		return nil
	}
	n, err := s.store.Users().CountActiveByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("counting admins: %w", err)
	}
	if n > 0 {
		return nil
	}

	u, err := s.createUser(ctx, &CreateStaffCommand{
		Username: cfg.Username,
		Email:    cfg.Email,
		Password: cfg.Password,
		FullName: cfg.FullName,
		Role:     string(domain.RoleAdmin),
	})
	if err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	s.log.Info("admin account seeded", zap.String("username", u.Username))
	return nil
}

func (s *AuthService) createUser(ctx context.Context, cmd *CreateStaffCommand) (*domain.User, error) {
	role, err := validateStaffCommand(cmd)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(cmd.Username)
	if _, err := s.store.Users().GetByUsername(ctx, username); err == nil {
		return nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("checking username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &domain.User{
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(cmd.Email)),
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(cmd.FullName),
		Phone:        strings.TrimSpace(cmd.Phone),
		Role:         role,
		IsActive:     true,
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		// The username was free a moment ago, so a conflict here is the email.
		if errors.Is(err, store.ErrConflict) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

func validateStaffCommand(cmd *CreateStaffCommand) (domain.Role, error) {
	var errs []string

	if strings.TrimSpace(cmd.Username) == "" {
		errs = append(errs, "username is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(cmd.Email)); err != nil {
		errs = append(errs, "email is invalid")
	}
	if len(cmd.Password) < minPasswordLength {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if strings.TrimSpace(cmd.FullName) == "" {
		errs = append(errs, "full_name is required")
	}
	role, err := domain.ParseRole(cmd.Role)
	if err != nil {
		errs = append(errs, "role is invalid")
	}

	if len(errs) > 0 {
		return "", &ValidationError{Fields: errs}
	}
	return role, nil
}
