package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"whisper-server/internal/models"
	"whisper-server/internal/repositories/postgres"
)

var ErrNotAMember = errors.New("not a member of this server")

// ServerService manages servers and their durable memberships.
type ServerService struct {
	servers *postgres.ServerRepository
}

func NewServerService(servers *postgres.ServerRepository) *ServerService {
	return &ServerService{servers: servers}
}

func (s *ServerService) Create(ctx context.Context, ownerID string, req *models.CreateServerRequest) (*models.ServerResponse, error) {
	code, err := newInviteCode()
	if err != nil {
		return nil, err
	}

	server := &models.Server{
		Name:       req.Name,
		OwnerID:    ownerID,
		InviteCode: code,
	}
	if err := s.servers.CreateWithOwner(ctx, server); err != nil {
		return nil, err
	}
	return serverResponse(server), nil
}

func (s *ServerService) ListMine(ctx context.Context, userID string) ([]models.ServerResponse, error) {
	servers, err := s.servers.ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ServerResponse, len(servers))
	for i := range servers {
		out[i] = *serverResponse(&servers[i])
	}
	return out, nil
}

// Join adds the user to the server behind the invite code. Joining a server
// the user already belongs to returns the server unchanged.
func (s *ServerService) Join(ctx context.Context, userID, inviteCode string) (*models.ServerResponse, error) {
	server, err := s.servers.FindByInviteCode(ctx, inviteCode)
	if err != nil {
		return nil, err
	}
	if err := s.servers.AddMember(ctx, userID, server.ID, models.RoleMember); err != nil {
		return nil, err
	}
	return serverResponse(server), nil
}

// Members lists a server's members; only members may look.
func (s *ServerService) Members(ctx context.Context, userID, serverID string) ([]models.MemberResponse, error) {
	ok, err := s.servers.IsMember(ctx, userID, serverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAMember
	}
	return s.servers.ListMembers(ctx, serverID)
}

func serverResponse(server *models.Server) *models.ServerResponse {
	return &models.ServerResponse{
		ID:         server.ID,
		Name:       server.Name,
		OwnerID:    server.OwnerID,
		InviteCode: server.InviteCode,
		IconURL:    server.IconURL,
	}
}

func newInviteCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
