package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"whisper-server/internal/models"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateChannelMessage stores a channel message. The insert is a single
// statement: either the row exists with its generated id and timestamp, or
// nothing was written.
func (r *MessageRepository) CreateChannelMessage(ctx context.Context, channelID, senderID, ciphertext string) (*models.Message, error) {
	msg := &models.Message{
		ChannelID:  &channelID,
		SenderID:   senderID,
		Ciphertext: ciphertext,
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to store channel message: %w", err)
	}
	return msg, nil
}

// CreateDirectMessage stores a direct-message conversation message.
func (r *MessageRepository) CreateDirectMessage(ctx context.Context, conversationID, senderID, ciphertext string) (*models.Message, error) {
	msg := &models.Message{
		ConversationID: &conversationID,
		SenderID:       senderID,
		Ciphertext:     ciphertext,
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to store direct message: %w", err)
	}
	return msg, nil
}

type historyRow struct {
	models.Message
	SenderUsername string
}

// ChannelHistory returns up to limit messages from the channel in ascending
// creation order, ending before the given timestamp when set.
func (r *MessageRepository) ChannelHistory(ctx context.Context, channelID string, before *time.Time, limit int) ([]models.MessageResponse, error) {
	return r.history(ctx, "channel_id", channelID, before, limit)
}

// DMHistory is ChannelHistory scoped to a conversation.
func (r *MessageRepository) DMHistory(ctx context.Context, conversationID string, before *time.Time, limit int) ([]models.MessageResponse, error) {
	return r.history(ctx, "conversation_id", conversationID, before, limit)
}

func (r *MessageRepository) history(ctx context.Context, column, id string, before *time.Time, limit int) ([]models.MessageResponse, error) {
	query := r.db.WithContext(ctx).Model(&models.Message{}).
		Select("messages.*, users.username AS sender_username").
		Joins("JOIN users ON users.id = messages.sender_id").
		Where(fmt.Sprintf("messages.%s = ?", column), id)
	if before != nil {
		query = query.Where("messages.created_at < ?", *before)
	}

	var rows []historyRow
	err := query.Order("messages.created_at DESC").Limit(limit).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load message history: %w", err)
	}

	// Newest page fetched descending, returned ascending.
	out := make([]models.MessageResponse, len(rows))
	for i, row := range rows {
		resp := models.MessageResponse{
			ID:             row.ID,
			SenderID:       row.SenderID,
			SenderUsername: row.SenderUsername,
			Content:        row.Ciphertext,
			CreatedAt:      row.CreatedAt.UTC().Format(time.RFC3339),
		}
		if row.Message.ChannelID != nil {
			resp.ChannelID = *row.Message.ChannelID
		}
		if row.Message.ConversationID != nil {
			resp.ConversationID = *row.Message.ConversationID
		}
		out[len(rows)-1-i] = resp
	}
	return out, nil
}
