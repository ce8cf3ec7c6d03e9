package services

import (
	"context"
	"errors"
	"time"

	"whisper-server/internal/models"
	"whisper-server/internal/repositories/postgres"
)

// ChannelService manages channels and answers channel-room authorization
// for the realtime layer: may this user join this channel's room, by current
// membership of the channel's owning server.
//
// Authorization is consulted at join time only. A user removed from a server
// after joining its channel room keeps live send/receive rights until the
// subscription is dropped or the connection closes; whether sends should
// re-validate is an open product decision.
type ChannelService struct {
	channels *postgres.ChannelRepository
	servers  *postgres.ServerRepository
	messages *postgres.MessageRepository
}

func NewChannelService(channels *postgres.ChannelRepository, servers *postgres.ServerRepository, messages *postgres.MessageRepository) *ChannelService {
	return &ChannelService{
		channels: channels,
		servers:  servers,
		messages: messages,
	}
}

func (s *ChannelService) Create(ctx context.Context, userID string, req *models.CreateChannelRequest) (*models.ChannelResponse, error) {
	ok, err := s.servers.IsMember(ctx, userID, req.ServerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAMember
	}

	chType := req.Type
	if chType == "" {
		chType = models.ChannelText
	}
	if !chType.IsValid() {
		return nil, errors.New("invalid channel type")
	}

	channel := &models.Channel{
		ServerID: req.ServerID,
		Name:     req.Name,
		Type:     chType,
	}
	if err := s.channels.Create(ctx, channel); err != nil {
		return nil, err
	}
	return channelResponse(channel), nil
}

func (s *ChannelService) ListByServer(ctx context.Context, userID, serverID string) ([]models.ChannelResponse, error) {
	ok, err := s.servers.IsMember(ctx, userID, serverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAMember
	}

	channels, err := s.channels.ListByServer(ctx, serverID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ChannelResponse, len(channels))
	for i := range channels {
		out[i] = *channelResponse(&channels[i])
	}
	return out, nil
}

// ChannelMessages returns channel history; only members of the owning
// server may read.
func (s *ChannelService) ChannelMessages(ctx context.Context, userID, channelID string, before *time.Time, limit int) ([]models.MessageResponse, error) {
	channel, err := s.channels.FindByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	ok, err := s.servers.IsMember(ctx, userID, channel.ServerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAMember
	}
	return s.messages.ChannelHistory(ctx, channelID, before, limit)
}

// DMMessages returns conversation history. Like the realtime DM join path,
// there is no participant check to authorize against.
func (s *ChannelService) DMMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]models.MessageResponse, error) {
	return s.messages.DMHistory(ctx, conversationID, before, limit)
}

// CanJoinChannel implements the realtime layer's channel gate: the channel
// must exist and the user must currently belong to its owning server. A
// missing channel denies rather than errors.
func (s *ChannelService) CanJoinChannel(ctx context.Context, userID, channelID string) (bool, error) {
	channel, err := s.channels.FindByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, postgres.ErrChannelNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.servers.IsMember(ctx, userID, channel.ServerID)
}

func channelResponse(channel *models.Channel) *models.ChannelResponse {
	return &models.ChannelResponse{
		ID:       channel.ID,
		ServerID: channel.ServerID,
		Name:     channel.Name,
		Type:     string(channel.Type),
	}
}
