package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"golang.org/x/crypto/bcrypt"

	"whisper-server/internal/config"
	"whisper-server/internal/database"
	"whisper-server/internal/models"
	"whisper-server/internal/repositories/postgres"
)

// Seeds a local database with a demo account and server for development.
func main() {
	username := flag.String("username", "demo", "demo account username")
	password := flag.String("password", "demo-password", "demo account password")
	serverName := flag.String("server", "Demo Server", "demo server name")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	users := postgres.NewUserRepository(db)
	servers := postgres.NewServerRepository(db)

	hashed, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		os.Exit(1)
	}

	user := &models.User{
		Username:       *username,
		Password:       string(hashed),
		OneTimePrekeys: "[]",
	}
	if err := users.Create(ctx, user); err != nil {
		slog.Error("failed to create demo user", "error", err)
		os.Exit(1)
	}

	server := &models.Server{
		Name:       *serverName,
		OwnerID:    user.ID,
		InviteCode: "demo-invite",
	}
	if err := servers.CreateWithOwner(ctx, server); err != nil {
		slog.Error("failed to create demo server", "error", err)
		os.Exit(1)
	}

	slog.Info("seeded demo data",
		"userID", user.ID,
		"serverID", server.ID,
		"inviteCode", server.InviteCode,
	)
}
