// Package ws is the realtime transport for the bid acceptance protocol:
// one websocket per client, join/leave/place_bid inbound, history replay,
// acceptance broadcasts and unicast rejections outbound.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/revisaosegura/copartbr-sub000/internal/auctionerrors"
	"github.com/revisaosegura/copartbr-sub000/internal/identity"
	"github.com/revisaosegura/copartbr-sub000/internal/room"
	"github.com/revisaosegura/copartbr-sub000/utils"
)

// SessionCookie is the cookie carrying the signed session token at the
// websocket handshake.
const SessionCookie = "session"

// Handler upgrades connections and runs the per-connection read loop.
type Handler struct {
	registry *room.Registry
	resolver *identity.Resolver
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler over the registry.
func NewHandler(registry *room.Registry, resolver *identity.Resolver) *Handler {
	return &Handler{
		registry: registry,
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsing is open to any origin; bidding still requires a
			// valid session token.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws. Identity resolution happens once at the
// handshake and never refuses the connection: a missing or invalid token
// observes anonymously.
func (h *Handler) Serve(c *gin.Context) {
	token := ""
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		token = cookie
	}
	if token == "" {
		token = c.Query("token")
	}
	id := h.resolver.Resolve(c.Request.Context(), token)

	sock, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.Warn("websocket upgrade failed", map[string]any{"error": err.Error()})
		return
	}

	conn := newConn(sock, id)
	utils.Info("client connected", map[string]any{
		"conn_id":   conn.ID(),
		"user_id":   id.UserID,
		"anonymous": id.Anonymous(),
	})

	go conn.writePump()
	h.readLoop(conn)
}

// readLoop decodes inbound envelopes and feeds them to the registry.
// Messages from one connection are processed in order; the loop exits on
// the first read error and the connection is dropped from every room.
func (h *Handler) readLoop(conn *Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		h.registry.Drop(conn)
		conn.close()
		utils.Info("client disconnected", map[string]any{"conn_id": conn.ID()})
	}()

	_ = conn.sock.SetReadDeadline(time.Now().Add(pongWait))
	conn.sock.SetPongHandler(func(string) error {
		return conn.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := conn.sock.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			conn.write(EventError, ErrorPayload{Message: "malformed message"})
			continue
		}

		switch msg.Type {
		case MsgJoin:
			if msg.LotID == "" {
				conn.write(EventError, ErrorPayload{Message: "join requires lot_id"})
				continue
			}
			if err := h.registry.Join(ctx, msg.LotID, conn); err != nil {
				conn.write(EventError, ErrorPayload{Message: joinErrorMessage(err)})
			}

		case MsgLeave:
			if msg.LotID == "" {
				conn.write(EventError, ErrorPayload{Message: "leave requires lot_id"})
				continue
			}
			h.registry.Leave(msg.LotID, conn)

		case MsgPlaceBid:
			if msg.LotID == "" {
				conn.write(EventError, ErrorPayload{Message: "place_bid requires lot_id"})
				continue
			}
			h.placeBid(ctx, conn, msg)

		default:
			conn.write(EventError, ErrorPayload{Message: "unrecognized message type: " + msg.Type})
		}
	}
}

// placeBid routes the bid through the lot's room. Acceptance reaches the
// bidder via the same broadcast every other observer gets; only
// rejections are sent here, unicast.
func (h *Handler) placeBid(ctx context.Context, conn *Conn, msg ClientMessage) {
	_, err := h.registry.PlaceBid(ctx, msg.LotID, conn.Identity(), msg.Amount)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	conn.write(EventBidRejected, BidRejectedPayload{
		LotID:   msg.LotID,
		Reason:  auctionerrors.Reason(err),
		Message: rejectionMessage(err),
	})
}

func joinErrorMessage(err error) string {
	if errors.Is(err, auctionerrors.ErrLotNotFound) {
		return auctionerrors.ErrLotNotFound.Error()
	}
	return "could not load auction history, try again"
}

func rejectionMessage(err error) string {
	for _, sentinel := range []error{
		auctionerrors.ErrUnauthenticated,
		auctionerrors.ErrInvalidAmount,
		auctionerrors.ErrStaleBid,
		auctionerrors.ErrLotClosed,
		auctionerrors.ErrLotNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return auctionerrors.ErrTransient.Error()
}
