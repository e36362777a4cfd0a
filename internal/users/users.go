// Package users provides the gorm-backed user store shared by the API
// service's auth and admin endpoints.
package users

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Role is the authorization tier carried in access tokens.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleUser     Role = "user"
	RoleReadOnly Role = "readonly"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleReadOnly:
		return true
	}
	return false
}

// ErrNotFound is returned when a lookup matches no user.
var ErrNotFound = errors.New("user not found")

// User is a tracked account. PasswordHash is empty for Google-only sign-ins,
// GoogleSub is empty for email/password accounts.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"uniqueIndex;size:255" json:"email"`
	Name         string `gorm:"size:255" json:"name"`
	PictureURL   string `gorm:"size:512" json:"picture_url,omitempty"`
	PasswordHash string `gorm:"size:255" json:"-"`
	GoogleSub    string `gorm:"index;size:64" json:"-"`
	Role         Role   `gorm:"size:16;default:user" json:"role"`
	Disabled     bool   `json:"disabled"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"-"`
	LastLoginAt *time.Time `json:"-"`
}

// Stats is the platform-wide summary served to the admin dashboard.
type Stats struct {
	TotalUsers      int64 `json:"total_users"`
	RecentSignups7d int64 `json:"recent_signups_7d"`
	ActiveUsers7d   int64 `json:"active_users_7d"`
}

// Open connects to the configured database and migrates the user table.
// Supported types: sqlite, postgres, mysql.
func Open(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dbType {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("users: unknown database type %q", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, err
	}
	return db, nil
}

// Repository wraps gorm access to the user table.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(u *User) error {
	return r.db.Create(u).Error
}

func (r *Repository) GetByID(id uint) (*User, error) {
	var u User
	if err := r.db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetByEmail(email string) (*User, error) {
	var u User
	if err := r.db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetByGoogleSub(sub string) (*User, error) {
	var u User
	if err := r.db.Where("google_sub = ?", sub).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) Update(u *User) error {
	return r.db.Save(u).Error
}

// TouchLogin records a successful sign-in for the activity stats.
func (r *Repository) TouchLogin(id uint) error {
	now := time.Now()
	return r.db.Model(&User{}).Where("id = ?", id).Update("last_login_at", now).Error
}

func (r *Repository) List(limit, offset int) ([]User, error) {
	var out []User
	if err := r.db.Order("id").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) Stats() (*Stats, error) {
	var s Stats
	weekAgo := time.Now().AddDate(0, 0, -7)

	if err := r.db.Model(&User{}).Count(&s.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&User{}).Where("created_at > ?", weekAgo).Count(&s.RecentSignups7d).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&User{}).Where("last_login_at > ?", weekAgo).Count(&s.ActiveUsers7d).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
