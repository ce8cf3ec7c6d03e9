package ws

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		allowed := []string{
			"http://localhost:5173",
			"https://localhost:5173",
			"http://127.0.0.1:5173",
		}
		if custom := os.Getenv("ALLOWED_ORIGINS"); custom != "" {
			for _, o := range strings.Split(custom, ",") {
				allowed = append(allowed, strings.TrimSpace(o))
			}
		}
		for _, o := range allowed {
			if origin == o {
				return true
			}
		}
		return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
	},
}

// ServeWS upgrades an already-authenticated request, attaches the connection
// under userID, and runs the read and write pumps. The caller must have
// verified the client's token first: no registry or room state is touched
// for a rejected connection.
func ServeWS(reg *Registry, h *Handler, w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "userID", userID, "error", err)
		return
	}

	client := NewClient(conn, userID)
	reg.Attach(userID, client)
	slog.Info("websocket connection established", "clientID", client.ID(), "userID", userID)

	go client.writePump()
	go client.readPump(context.Background(), reg, h)
}
