package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"rollup-dashboard/internal/logging"
	"rollup-dashboard/models"
)

// Commander is the control surface clients drive over the socket. The
// request coordinator implements it.
type Commander interface {
	SetTimeRange(r models.TimeRange)
	SetFilter(address string)
	HandleManualRefresh(ctx context.Context)
}

// command is an inbound client control message.
type command struct {
	Type    string `json:"type"`
	Range   string `json:"range,omitempty"`
	Address string `json:"address,omitempty"`
}

// Handler upgrades HTTP requests and runs client sessions.
type Handler struct {
	hub       *Hub
	commander Commander
	upgrader  websocket.Upgrader
	log       zerolog.Logger
}

// NewHandler creates the WebSocket endpoint handler.
func NewHandler(hub *Hub, commander Commander) *Handler {
	return &Handler{
		hub:       hub,
		commander: commander,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: logging.Component("ws"),
	}
}

// ServeHTTP upgrades the connection and runs the read/write pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("upgrade failed")
		return
	}

	client := NewClient(uuid.NewString(), conn, h.log, h.hub.Remove)
	h.hub.Add(client)
	h.log.Info().Str("client", client.ID).Int("clients", h.hub.Count()).Msg("client connected")

	client.Send(struct {
		Type      string `json:"type"`
		ClientID  string `json:"clientId"`
		Timestamp int64  `json:"timestamp"`
	}{
		Type:      "connected",
		ClientID:  client.ID,
		Timestamp: time.Now().UnixMilli(),
	})

	go client.WritePump()
	go client.ReadPump(h.handleMessage)
}

func (h *Handler) handleMessage(client *Client, message []byte) {
	var cmd command
	if err := json.Unmarshal(message, &cmd); err != nil {
		h.log.Debug().Err(err).Str("client", client.ID).Msg("ignoring malformed command")
		return
	}

	switch cmd.Type {
	case "set_range":
		r := models.TimeRange(cmd.Range)
		if !r.IsValid() {
			client.Send(errorFrame("invalid time range: " + cmd.Range))
			return
		}
		h.commander.SetTimeRange(r)

	case "set_filter":
		h.commander.SetFilter(cmd.Address)

	case "refresh":
		h.commander.HandleManualRefresh(context.Background())

	default:
		h.log.Debug().Str("type", cmd.Type).Str("client", client.ID).Msg("unknown command")
	}
}

func errorFrame(message string) any {
	return struct {
		Type      string `json:"type"`
		Message   string `json:"message"`
		Timestamp int64  `json:"timestamp"`
	}{
		Type:      "error",
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	}
}
