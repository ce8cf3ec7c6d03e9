package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"whisper-server/internal/repositories/postgres"
	"whisper-server/internal/ws"
)

// ChatService is the persistence collaborator for the realtime layer: it
// stores messages, resolves sender display names, and emits an audit event
// to Kafka for each stored message. The audit publish is fire and forget; a
// broker outage never fails a send.
type ChatService struct {
	messages *postgres.MessageRepository
	users    *postgres.UserRepository
	producer sarama.SyncProducer
	topic    string
}

func NewChatService(messages *postgres.MessageRepository, users *postgres.UserRepository, producer sarama.SyncProducer, topic string) *ChatService {
	return &ChatService{
		messages: messages,
		users:    users,
		producer: producer,
		topic:    topic,
	}
}

func (s *ChatService) SaveChannelMessage(ctx context.Context, channelID, senderID, content string) (*ws.MessageRecord, error) {
	msg, err := s.messages.CreateChannelMessage(ctx, channelID, senderID, content)
	if err != nil {
		return nil, err
	}
	s.audit("channel", channelID, msg.ID, senderID, msg.CreatedAt)
	return &ws.MessageRecord{ID: msg.ID, CreatedAt: msg.CreatedAt}, nil
}

func (s *ChatService) SaveDirectMessage(ctx context.Context, conversationID, senderID, content string) (*ws.MessageRecord, error) {
	msg, err := s.messages.CreateDirectMessage(ctx, conversationID, senderID, content)
	if err != nil {
		return nil, err
	}
	s.audit("dm", conversationID, msg.ID, senderID, msg.CreatedAt)
	return &ws.MessageRecord{ID: msg.ID, CreatedAt: msg.CreatedAt}, nil
}

func (s *ChatService) DisplayName(ctx context.Context, userID string) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

type messageAuditEvent struct {
	MessageID string `json:"message_id"`
	RoomKind  string `json:"room_kind"`
	RoomID    string `json:"room_id"`
	SenderID  string `json:"sender_id"`
	CreatedAt string `json:"created_at"`
}

func (s *ChatService) audit(roomKind, roomID, messageID, senderID string, createdAt time.Time) {
	if s.producer == nil {
		return
	}

	data, err := json.Marshal(messageAuditEvent{
		MessageID: messageID,
		RoomKind:  roomKind,
		RoomID:    roomID,
		SenderID:  senderID,
		CreatedAt: createdAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(roomID),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		slog.Warn("failed to publish message audit event", "messageID", messageID, "error", err)
	}
}
