package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"classquiz-service/internal/app"
	"classquiz-service/internal/domain"
)

// WSHandler streams active-user snapshots to connected clients and
// accepts heartbeat messages that refresh the sender's last-active time.
type WSHandler struct {
	identity *app.IdentityService
	presence *app.Tracker
	upgrader websocket.Upgrader
}

func NewWSHandler(identity *app.IdentityService, presence *app.Tracker) *WSHandler {
	return &WSHandler{
		identity: identity,
		presence: presence,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the connection and pushes an active-users snapshot on
// every presence tick. The client authenticates with its session token,
// passed as a token query parameter (browsers cannot set headers on a
// websocket upgrade) or a bearer header; inbound heartbeats are
// attributed to the authenticated user.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			token = bearer
		}
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	profile, err := h.identity.Authenticate(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	userID := profile.ID

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.presence.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[[]domain.PublicProfile], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snapshot, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[[]domain.PublicProfile]{Type: "activeUsers", Payload: snapshot}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "heartbeat":
			if err := h.identity.Heartbeat(r.Context(), userID); err != nil {
				log.Printf("ws heartbeat for %s: %v", userID, err)
			}
		default:
			if data, err := json.Marshal(inbound); err == nil {
				log.Printf("ws unsupported message: %s", data)
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
