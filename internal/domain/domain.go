package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Error kinds. Every rule failure raised by the domain packages wraps exactly
// one of these so callers can classify it with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidReference = errors.New("invalid reference")
	ErrInvalidState     = errors.New("invalid state")
	ErrInvalidInput     = errors.New("invalid input")
)

var (
	ErrUserNotFound   = NewError(ErrNotFound, "user not found")
	ErrNotADoctor     = NewError(ErrInvalidInput, "selected user is not a doctor")
	ErrUsernameTaken  = NewError(ErrInvalidInput, "username is already taken")
	ErrEmailTaken     = NewError(ErrInvalidInput, "email is already registered")
	ErrInvalidRole    = NewError(ErrInvalidInput, "invalid role")
	ErrUserNotDoctor  = NewError(ErrInvalidInput, "user is not a doctor")
	ErrActorNotDoctor = NewError(ErrInvalidInput, "current user is not a doctor")
)

// kindError carries a message while reporting its kind through errors.Is.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// NewError returns a sentinel with the given message that matches kind.
func NewError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleDoctor  Role = "DOCTOR"
	RoleNurse   Role = "NURSE"
	RoleBilling Role = "BILLING"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleNurse, RoleBilling:
		return true
	}
	return false
}

// ParseRole accepts any letter case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Username     string `gorm:"column:username;type:varchar(50);uniqueIndex;not null"`
	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`
	FullName     string `gorm:"column:full_name;type:varchar(200);not null"`
	Phone        string `gorm:"column:phone;type:varchar(20)"`
	Role         Role   `gorm:"column:role;type:varchar(20);not null;index"`

	IsActive    bool       `gorm:"column:is_active;default:true;index"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
}

func (User) TableName() string {
	return "auth.users"
}

func (u *User) IsDoctor() bool {
	return u.Role == RoleDoctor
}

// Actor is the already-authenticated staff member on whose behalf an
// operation runs. It is passed explicitly to every use case.
type Actor struct {
	UserID uuid.UUID
	Role   Role
	IP     string
}

func (a Actor) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
	ActionLogin  AuditAction = "login"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	UserRole  Role      `gorm:"column:user_role;type:varchar(20);not null"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	Changes string `gorm:"column:changes;type:jsonb"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	UserID   uuid.UUID `json:"sub"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
}
