package core

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codegate/entity"
	"codegate/lib/sl"
	"codegate/lib/validate"

	"github.com/google/uuid"
)

// Sentinel errors returned by registry operations. Callers translate them
// into user-facing replies; none of them is fatal to the process.
var (
	ErrCodeNotFound = errors.New("code not found")
	ErrCodeUsed     = errors.New("code already used")
	ErrCodeExpired  = errors.New("code expired")
)

// Database defines the storage operations the core depends on.
// Implemented by internal/database (MongoDB) and internal/mysql.
type Database interface {
	SaveCode(code *entity.Code) error
	GetCode(value string) (*entity.Code, error)
	GetCodes() ([]*entity.Code, error)
	MarkCodeUsed(value string) error
	DeleteCode(value string) (bool, error)
	DeleteCodesAddedBefore(cutoff time.Time) (int64, error)
	GetAllowedUsers() ([]*entity.AllowedUser, error)
	SaveAllowedUser(user *entity.AllowedUser) error
	DeleteAllowedUser(userId int64) (bool, error)
	IsAllowedUser(userId int64) (bool, error)
}

// Core owns the code registry and the allow-list. Every operation is a single
// round trip to the store; there is no cross-operation locking because a
// single admin and a handful of users never contend.
type Core struct {
	db         Database
	adminId    int64
	codeLength int
	log        *slog.Logger
	now        func() time.Time
}

func New(db Database, adminId int64, codeLength int, log *slog.Logger) *Core {
	if db == nil {
		panic("database is nil")
	}
	if codeLength <= 0 {
		codeLength = 8
	}
	return &Core{
		db:         db,
		adminId:    adminId,
		codeLength: codeLength,
		log:        log.With(sl.Module("core")),
		now:        time.Now,
	}
}

// Init seeds the administrator into the allow-list. Idempotent; called once
// on startup so the admin can pass the membership check like everyone else.
func (c *Core) Init() error {
	err := c.db.SaveAllowedUser(&entity.AllowedUser{
		UserId:    c.adminId,
		GrantedAt: c.now(),
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	c.log.With(sl.User(c.adminId)).Debug("admin seeded into allow-list")
	return nil
}

func (c *Core) Now() time.Time {
	return c.now()
}

// AddCode upserts a code with a fresh AddedAt and Used reset to false.
// Re-adding an existing code is a designed idempotent reset, not a conflict.
func (c *Core) AddCode(value string) (*entity.Code, error) {
	code := &entity.Code{
		Code:    value,
		AddedAt: c.now(),
		Used:    false,
	}
	if err := validate.Struct(code); err != nil {
		return nil, fmt.Errorf("invalid code: %w", err)
	}
	if err := c.db.SaveCode(code); err != nil {
		return nil, fmt.Errorf("save code: %w", err)
	}
	c.log.With(sl.Code(value)).Info("code added")
	return code, nil
}

// GenerateCode issues a random code and registers it like AddCode.
func (c *Core) GenerateCode() (*entity.Code, error) {
	value := uuid.New().String()[:c.codeLength]
	return c.AddCode(value)
}

// DeleteCode removes a code, reporting ErrCodeNotFound when no row matched.
// The existence check and the delete are one atomic store operation.
func (c *Core) DeleteCode(value string) error {
	deleted, err := c.db.DeleteCode(value)
	if err != nil {
		return fmt.Errorf("delete code: %w", err)
	}
	if !deleted {
		return ErrCodeNotFound
	}
	c.log.With(sl.Code(value)).Info("code deleted")
	return nil
}

// CheckCode returns the stored code or ErrCodeNotFound.
func (c *Core) CheckCode(value string) (*entity.Code, error) {
	code, err := c.db.GetCode(value)
	if err != nil {
		return nil, fmt.Errorf("get code: %w", err)
	}
	if code == nil {
		return nil, ErrCodeNotFound
	}
	return code, nil
}

// UseCode marks a code used after the full validity check: the code must
// exist, must not be used yet, and must be inside the validity window.
// Each failure is reported with its own sentinel so replies can distinguish
// not-found from already-used from expired.
func (c *Core) UseCode(value string) error {
	code, err := c.CheckCode(value)
	if err != nil {
		return err
	}
	switch code.Status(c.now()).State {
	case entity.StateUsed:
		return ErrCodeUsed
	case entity.StateExpired:
		return ErrCodeExpired
	}
	if err = c.db.MarkCodeUsed(value); err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}
	c.log.With(sl.Code(value)).Info("code used")
	return nil
}

// ListCodes returns all stored codes, oldest first.
func (c *Core) ListCodes() ([]*entity.Code, error) {
	codes, err := c.db.GetCodes()
	if err != nil {
		return nil, fmt.Errorf("get codes: %w", err)
	}
	return codes, nil
}

// PurgeExpired removes every code older than the retention window,
// used or not. Validity (30 days) and retention (60 days) are independent:
// an expired code stays listed until retention removes it.
func (c *Core) PurgeExpired() (int64, error) {
	cutoff := c.now().AddDate(0, 0, -entity.RetentionDays)
	removed, err := c.db.DeleteCodesAddedBefore(cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge codes: %w", err)
	}
	if removed > 0 {
		c.log.With(slog.Int64("removed", removed)).Info("retention purge")
	}
	return removed, nil
}

// IsAdmin checks against the configured administrator identity only.
// Removing the admin from the allow-list does not touch this.
func (c *Core) IsAdmin(userId int64) bool {
	return userId == c.adminId
}

func (c *Core) IsAllowed(userId int64) (bool, error) {
	allowed, err := c.db.IsAllowedUser(userId)
	if err != nil {
		return false, fmt.Errorf("check allowed: %w", err)
	}
	return allowed, nil
}

// Grant inserts a user into the allow-list. Idempotent.
func (c *Core) Grant(userId int64) error {
	err := c.db.SaveAllowedUser(&entity.AllowedUser{
		UserId:    userId,
		GrantedAt: c.now(),
	})
	if err != nil {
		return fmt.Errorf("grant user: %w", err)
	}
	c.log.With(sl.User(userId)).Info("user granted")
	return nil
}

// Revoke removes a user from the allow-list. Idempotent: revoking a
// non-member is not an error.
func (c *Core) Revoke(userId int64) error {
	if _, err := c.db.DeleteAllowedUser(userId); err != nil {
		return fmt.Errorf("revoke user: %w", err)
	}
	c.log.With(sl.User(userId)).Info("user revoked")
	return nil
}

// ToggleUser revokes a current member or grants a non-member and reports
// which way it went. This is the single manage-user operation the admin uses.
func (c *Core) ToggleUser(userId int64) (bool, error) {
	allowed, err := c.IsAllowed(userId)
	if err != nil {
		return false, err
	}
	if allowed {
		return false, c.Revoke(userId)
	}
	return true, c.Grant(userId)
}

// ListUsers returns the allow-list membership.
func (c *Core) ListUsers() ([]*entity.AllowedUser, error) {
	users, err := c.db.GetAllowedUsers()
	if err != nil {
		return nil, fmt.Errorf("get allowed users: %w", err)
	}
	return users, nil
}
