package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"whisper-server/internal/models"
)

var (
	ErrServerNotFound    = errors.New("server not found")
	ErrInvalidInviteCode = errors.New("invalid invite code")
)

type ServerRepository struct {
	db *gorm.DB
}

func NewServerRepository(db *gorm.DB) *ServerRepository {
	return &ServerRepository{db: db}
}

// CreateWithOwner creates the server, its owner membership, and the default
// general channel in one transaction.
func (r *ServerRepository) CreateWithOwner(ctx context.Context, server *models.Server) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(server).Error; err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		member := &models.ServerMember{
			UserID:   server.OwnerID,
			ServerID: server.ID,
			Role:     models.RoleOwner,
		}
		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("failed to add owner membership: %w", err)
		}

		general := &models.Channel{
			ServerID: server.ID,
			Name:     "general",
			Type:     models.ChannelText,
		}
		if err := tx.Create(general).Error; err != nil {
			return fmt.Errorf("failed to create default channel: %w", err)
		}
		return nil
	})
}

func (r *ServerRepository) FindByID(ctx context.Context, id string) (*models.Server, error) {
	var server models.Server
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&server).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServerNotFound
		}
		return nil, err
	}
	return &server, nil
}

func (r *ServerRepository) FindByInviteCode(ctx context.Context, code string) (*models.Server, error) {
	var server models.Server
	err := r.db.WithContext(ctx).Where("invite_code = ?", code).First(&server).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, err
	}
	return &server, nil
}

// ListByMember returns the servers the user belongs to.
func (r *ServerRepository) ListByMember(ctx context.Context, userID string) ([]models.Server, error) {
	var servers []models.Server
	err := r.db.WithContext(ctx).
		Joins("JOIN server_members ON server_members.server_id = servers.id").
		Where("server_members.user_id = ?", userID).
		Find(&servers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	return servers, nil
}

// AddMember is idempotent: adding an existing member is a no-op.
func (r *ServerRepository) AddMember(ctx context.Context, userID, serverID string, role models.MemberRole) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ServerMember
		err := tx.Where("user_id = ? AND server_id = ?", userID, serverID).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		member := &models.ServerMember{UserID: userID, ServerID: serverID, Role: role}
		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}
		return nil
	})
}

func (r *ServerRepository) IsMember(ctx context.Context, userID, serverID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ServerMember{}).
		Where("user_id = ? AND server_id = ?", userID, serverID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListMembers returns the server's members with usernames joined in.
func (r *ServerRepository) ListMembers(ctx context.Context, serverID string) ([]models.MemberResponse, error) {
	var members []models.MemberResponse
	err := r.db.WithContext(ctx).Model(&models.ServerMember{}).
		Select("server_members.user_id, users.username, server_members.role").
		Joins("JOIN users ON users.id = server_members.user_id").
		Where("server_members.server_id = ?", serverID).
		Scan(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}
