// Package users persists permanent user accounts
package users

import (
	"context"
	"errors"
	"fmt"

	"carlyn/auth-api/internal/model"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("email already registered")
)

// Profile is what's needed to create a user
type Profile struct {
	FullName     string
	Email        string
	Phone        string
	PasswordHash string
}

type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.find(ctx, "email = ?", email)
}

func (s *Store) FindByID(ctx context.Context, id string) (*model.User, error) {
	return s.find(ctx, "id = ?", id)
}

func (s *Store) find(ctx context.Context, query string, arg string) (*model.User, error) {
	var u model.User

	if err := s.DB.WithContext(ctx).Where(query, arg).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user, %w", err)
	}

	return &u, nil
}

// Create inserts a new user. The unique email index makes a concurrent
// duplicate fail with ErrDuplicate.
func (s *Store) Create(ctx context.Context, p Profile) (*model.User, error) {
	id, err := gonanoid.Generate(charset, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID, %w", err)
	}

	u := &model.User{
		ID:           id,
		FullName:     p.FullName,
		Email:        p.Email,
		Phone:        p.Phone,
		PasswordHash: p.PasswordHash,
	}

	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create user, %w", err)
	}

	return u, nil
}

func (s *Store) UpdatePassword(ctx context.Context, id, hash string) error {
	r := s.DB.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if r.Error != nil {
		return fmt.Errorf("failed to update password, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
