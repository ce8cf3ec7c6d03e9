package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"whisper-server/internal/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameTaken  = errors.New("username taken")
	ErrNoPrekeyBundle = errors.New("user has not published a prekey bundle")
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user, enforcing username uniqueness inside one
// transaction.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("username = ?", user.Username).First(&existing).Error
		if err == nil {
			return ErrUsernameTaken
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check username: %w", err)
		}

		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdatePrekeys replaces the user's published key bundle.
func (r *UserRepository) UpdatePrekeys(ctx context.Context, userID string, req *models.PublishPrekeysRequest) error {
	prekeys := req.OneTimePrekeys
	if prekeys == nil {
		prekeys = []string{}
	}
	encoded, err := json.Marshal(prekeys)
	if err != nil {
		return fmt.Errorf("failed to encode one-time prekeys: %w", err)
	}

	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"identity_key_public":     req.IdentityKeyPublic,
		"signed_prekey_public":    req.SignedPrekeyPublic,
		"signed_prekey_signature": req.SignedPrekeySignature,
		"one_time_prekeys":        string(encoded),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// TakePrekeyBundle returns the user's bundle, consuming one one-time prekey
// if any remain. The pop happens in a transaction so two concurrent fetches
// never hand out the same prekey.
func (r *UserRepository) TakePrekeyBundle(ctx context.Context, userID string) (*models.PrekeyBundleResponse, error) {
	var bundle *models.PrekeyBundleResponse

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.IdentityKeyPublic == "" {
			return ErrNoPrekeyBundle
		}

		bundle = &models.PrekeyBundleResponse{
			UserID:                user.ID,
			IdentityKeyPublic:     user.IdentityKeyPublic,
			SignedPrekeyPublic:    user.SignedPrekeyPublic,
			SignedPrekeySignature: user.SignedPrekeySignature,
		}

		var prekeys []string
		if user.OneTimePrekeys != "" {
			if err := json.Unmarshal([]byte(user.OneTimePrekeys), &prekeys); err != nil {
				return fmt.Errorf("failed to decode one-time prekeys: %w", err)
			}
		}
		if len(prekeys) == 0 {
			return nil
		}

		bundle.OneTimePrekey = prekeys[0]
		remaining, err := json.Marshal(prekeys[1:])
		if err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).
			Update("one_time_prekeys", string(remaining)).Error
	})
	if err != nil {
		return nil, err
	}
	return bundle, nil
}
